package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ms-registration/internal/kafka"
	"ms-registration/internal/models"
	"ms-registration/internal/registration"
	"ms-registration/internal/utils"
)

func newEventsCmd(a *app) *cobra.Command {
	var registrable, asJSON bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List events and remaining slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			var events []models.Event
			if registrable {
				for e := range a.store.ListRegistrableEvents() {
					events = append(events, e)
				}
			} else {
				events = a.store.ListEvents()
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), events)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tDATE\tVENUE\tSLOTS\tSTATUS")
			for _, e := range events {
				status := "open"
				if !e.Registrable() {
					status = "fully booked"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", e.ID, e.Name, utils.FormatEventDate(e.Date.Time), e.Venue, e.Slots, status)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&registrable, "registrable", false, "only events with free slots")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newRegistrationsCmd(a *app) *cobra.Command {
	var orphans, asJSON bool

	cmd := &cobra.Command{
		Use:   "registrations",
		Short: "List registrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			regs := a.store.ListRegistrations()
			if orphans {
				regs = a.store.OrphanedRegistrations()
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), regs)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTUDENT\tSTUDENT ID\tEVENT\tREGISTERED")
			for _, r := range regs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.StudentName, r.StudentID, r.EventName, utils.FormatLongDate(r.RegistrationDate))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&orphans, "orphans", false, "only registrations whose event no longer exists")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var name, studentID string
	var eventID int

	cmd := &cobra.Command{
		Use:     "register",
		Short:   "Register a student for an event",
		Example: `  eventctl register --name "Jane Doe" --student-id 665437 --event 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.store.RegisterStudent(cmd.Context(), name, studentID, eventID)
			if err != nil {
				var validationErr *registration.ValidationError
				if errors.As(err, &validationErr) {
					return errors.New(strings.Join(validationErr.Violations, "\n"))
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s) for %s, registration #%d\n", reg.StudentName, reg.StudentID, reg.EventName, reg.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "student full name")
	cmd.Flags().StringVar(&studentID, "student-id", "", "6-digit student id")
	cmd.Flags().IntVar(&eventID, "event", 0, "event id")
	return cmd
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all registrations and restore the built-in events",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes every registration; pass --yes to confirm")
			}
			if err := a.store.ResetAll(cmd.Context()); err != nil {
				return err
			}
			if err := a.store.Initialize(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset complete, %d events restored\n", len(a.store.ListEvents()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var groupID string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print registrations as they are published to Kafka",
		// watch reads the topic only and never opens the store
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.logger(cmd)
			return a.loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			consumer := kafka.NewConsumer(a.cfg.Kafka.Brokers, a.cfg.Kafka.Topic, groupID, a.log)
			defer consumer.Close()

			return watch(ctx, consumer, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&groupID, "group", "", "consumer group id; empty reads without committing offsets")
	return cmd
}

func watch(ctx context.Context, consumer *kafka.Consumer, out io.Writer) error {
	return consumer.Start(ctx, func(e models.RegistrationCreatedEvent) {
		fmt.Fprintf(out, "%s  #%d  %s (%s) -> %s, %d slots left\n",
			e.RegisteredAt.Format("2006-01-02 15:04:05"), e.RegistrationID, e.StudentName, e.StudentID, e.EventName, e.SlotsRemaining)
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
