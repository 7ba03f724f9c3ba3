// Package confirmation turns registration confirmations into encrypted codes
// and QR images, and reads those codes back at the check-in desk.
package confirmation

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/skip2/go-qrcode"

	"ms-registration/internal/models"
)

var ErrInvalidCode = errors.New("invalid confirmation code")

type QRGenerator struct {
	secret []byte
	size   int
}

func NewQRGenerator(secret string, size int) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	if size <= 0 {
		size = 256
	}
	return &QRGenerator{secret: hashed[:], size: size}
}

// Encode returns the URL-safe encrypted code for c.
func (q *QRGenerator) Encode(c models.Confirmation) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return encryptAES(data, q.secret)
}

// GenerateEncryptedQR renders the encrypted code as a PNG QR image.
func (q *QRGenerator) GenerateEncryptedQR(c models.Confirmation) ([]byte, error) {
	code, err := q.Encode(c)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(code, qrcode.Medium, q.size)
}

// Decode reverses Encode. Codes produced with another secret, or altered in
// any way, fail with ErrInvalidCode.
func (q *QRGenerator) Decode(code string) (models.Confirmation, error) {
	data, err := decryptAES(code, q.secret)
	if err != nil {
		return models.Confirmation{}, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	var c models.Confirmation
	if err := json.Unmarshal(data, &c); err != nil {
		return models.Confirmation{}, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	return c, nil
}

func encryptAES(data []byte, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, data, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func decryptAES(code string, key []byte) ([]byte, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil {
		return nil, err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("code too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// FromRegistration builds the confirmation shown for reg.
func FromRegistration(reg models.Registration) models.Confirmation {
	return models.Confirmation{
		StudentName:      reg.StudentName,
		StudentID:        reg.StudentID,
		EventName:        reg.EventName,
		RegistrationID:   reg.ID,
		RegistrationDate: reg.RegistrationDate,
	}
}
