package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/botherd/botherd/internal/store"
	"github.com/botherd/botherd/internal/trigger"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Manage scheduled triggers",
}

var (
	trigAgent   string
	trigChannel string
	trigKind    string
	trigName    string
	trigContent string
	trigAt      string
	trigPattern string
	trigEvery   int
	trigDOW     int
	trigDOM     int
	trigTime    string
	trigTZ      string
)

var triggerAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a one-time or recurring trigger",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		tr := store.Trigger{
			AgentID:    trigAgent,
			ChannelID:  trigChannel,
			Kind:       trigKind,
			Name:       trigName,
			Content:    trigContent,
			Mode:       store.TriggerModeOnce,
			Interval:   trigEvery,
			Timezone:   trigTZ,
			TimeOfDay:  trigTime,
			Enabled:    true,
			CreatedVia: "admin",
		}
		if trigPattern != "" {
			tr.Mode = store.TriggerModeRecurring
			tr.Pattern = trigPattern
			if cmd.Flags().Changed("day-of-week") {
				tr.DayOfWeek = &trigDOW
			}
			if cmd.Flags().Changed("day-of-month") {
				tr.DayOfMonth = &trigDOM
			}
		}
		if trigAt != "" {
			at, err := time.Parse(time.RFC3339, trigAt)
			if err != nil {
				return fmt.Errorf("parse --at: %w", err)
			}
			tr.ScheduledTime = &at
		}

		first, err := trigger.InitialFireTime(tr, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("compute first fire: %w", err)
		}
		tr.NextFireTime = first

		created, err := st.CreateTrigger(tr)
		if errors.Is(err, store.ErrTriggerQuota) {
			return fmt.Errorf("agent already has its maximum number of active triggers")
		}
		if err != nil {
			return err
		}
		if created.NextFireTime != nil {
			fmt.Printf("Trigger %s created, first fire %s\n",
				created.Name, created.NextFireTime.Format(time.RFC3339))
		} else {
			fmt.Printf("Trigger %s created (nothing scheduled)\n", created.Name)
		}
		return nil
	},
}

var triggerListCmd = &cobra.Command{
	Use:   "list <agent-id>",
	Short: "List an agent's triggers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		triggers, err := st.ListTriggers(args[0])
		if err != nil {
			return err
		}
		for _, tr := range triggers {
			next := "-"
			if tr.NextFireTime != nil {
				next = tr.NextFireTime.Format(time.RFC3339)
			}
			state := "off"
			if tr.Enabled {
				state = "on"
			}
			fmt.Printf("%-36s %-8s %-10s %-3s fired %3d  next %s  %s\n",
				tr.ID, tr.Kind, tr.Mode, state, tr.FireCount, next, tr.Name)
		}
		return nil
	},
}

var triggerRemoveCmd = &cobra.Command{
	Use:   "remove <trigger-id>",
	Short: "Delete a trigger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.DeleteTrigger(args[0]); err != nil {
			return err
		}
		fmt.Println("Removed.")
		return nil
	},
}

func init() {
	triggerAddCmd.Flags().StringVar(&trigAgent, "agent", "", "owning agent id")
	triggerAddCmd.Flags().StringVar(&trigChannel, "channel", "", "target channel id")
	triggerAddCmd.Flags().StringVar(&trigKind, "kind", "reminder", "reminder or task")
	triggerAddCmd.Flags().StringVar(&trigName, "name", "", "trigger name")
	triggerAddCmd.Flags().StringVar(&trigContent, "content", "", "message or task instruction")
	triggerAddCmd.Flags().StringVar(&trigAt, "at", "", "one-time fire time (RFC 3339)")
	triggerAddCmd.Flags().StringVar(&trigPattern, "pattern", "", "daily, weekly, monthly, or custom")
	triggerAddCmd.Flags().IntVar(&trigEvery, "every", 1, "recurrence interval")
	triggerAddCmd.Flags().IntVar(&trigDOW, "day-of-week", 0, "weekly: 0=Sunday .. 6=Saturday")
	triggerAddCmd.Flags().IntVar(&trigDOM, "day-of-month", 1, "monthly: 1-31, clamped")
	triggerAddCmd.Flags().StringVar(&trigTime, "time", "09:00", "time of day, HH:MM")
	triggerAddCmd.Flags().StringVar(&trigTZ, "timezone", "UTC", "IANA timezone")
	triggerAddCmd.MarkFlagRequired("agent")
	triggerAddCmd.MarkFlagRequired("channel")
	triggerAddCmd.MarkFlagRequired("name")
	triggerAddCmd.MarkFlagRequired("content")

	triggerCmd.AddCommand(triggerAddCmd)
	triggerCmd.AddCommand(triggerListCmd)
	triggerCmd.AddCommand(triggerRemoveCmd)
}
