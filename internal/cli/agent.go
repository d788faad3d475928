package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/botherd/botherd/internal/config"
	"github.com/botherd/botherd/internal/store"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage agents",
}

var (
	agentName    string
	agentModel   string
	agentPhone   string
	agentChannel string
	agentVia     string
	agentPrompt  string
	agentChance  int
	agentWindow  int
)

var agentAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		a, err := st.CreateAgent(store.Agent{
			Name:             agentName,
			Model:            agentModel,
			PhoneNumber:      agentPhone,
			Transport:        agentVia,
			SystemPrompt:     agentPrompt,
			Enabled:          true,
			RespondOnMention: true,
			RandomChancePct:  agentChance,
			ContextWindow:    agentWindow,
			TypingEnabled:    true,
			ReactionEnabled:  true,
			TriggersEnabled:  true,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Agent %s created (%s)\n", a.Name, a.ID)
		return nil
	},
}

var agentAssignCmd = &cobra.Command{
	Use:   "assign <agent-id> <channel-id>",
	Short: "Assign an agent to a channel",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.AssignAgent(args[0], args[1]); err != nil {
			return err
		}
		fmt.Println("Assigned.")
		return nil
	},
}

var channelCmd = &cobra.Command{
	Use:   "channel",
	Short: "Manage channels",
}

var channelAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Register a channel (Signal group id or Slack channel id)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		c, err := st.CreateChannel(store.Channel{
			ID:      args[0],
			Name:    agentChannel,
			Enabled: true,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Channel %s registered (%s)\n", c.Name, c.ID)
		return nil
	},
}

func openStore() (*store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return store.Open(cfg.Paths.DBPath)
}

func init() {
	agentAddCmd.Flags().StringVar(&agentName, "name", "", "agent display name")
	agentAddCmd.Flags().StringVar(&agentModel, "model", "", "completion model")
	agentAddCmd.Flags().StringVar(&agentPhone, "phone", "", "signal account number")
	agentAddCmd.Flags().StringVar(&agentVia, "transport", "signal", "transport (signal or slack)")
	agentAddCmd.Flags().StringVar(&agentPrompt, "prompt", "", "system prompt")
	agentAddCmd.Flags().IntVar(&agentChance, "random-chance", 15, "random response chance percent")
	agentAddCmd.Flags().IntVar(&agentWindow, "window", 25, "context window in turns")
	agentAddCmd.MarkFlagRequired("name")

	channelAddCmd.Flags().StringVar(&agentChannel, "name", "", "channel display name")

	agentCmd.AddCommand(agentAddCmd)
	agentCmd.AddCommand(agentAssignCmd)
	channelCmd.AddCommand(channelAddCmd)
}
