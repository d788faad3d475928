package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/botherd/botherd/internal/config"
	"github.com/botherd/botherd/internal/store"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ botherd Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configured agents, channels, and triggers",
	RunE: func(cmd *cobra.Command, args []string) error {
		printHeader("📊 botherd Status")
		fmt.Printf("Version: %s\n", version)

		if configPath, err := config.ConfigPath(); err == nil {
			if _, err := os.Stat(configPath); err == nil {
				fmt.Println("Config:  ✓ Found (" + configPath + ")")
			} else {
				fmt.Println("Config:  ✗ Not found (defaults in effect)")
			}
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Completion.APIKey != "" {
			fmt.Println("API Key: ✓ Found")
		} else {
			fmt.Println("API Key: ✗ Not found")
		}

		st, err := store.Open(cfg.Paths.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		agents, err := st.ListAgents()
		if err != nil {
			return err
		}
		fmt.Printf("\nAgents (%d):\n", len(agents))
		for _, a := range agents {
			state := "disabled"
			if a.Enabled {
				state = "enabled"
			}
			count, _ := st.ActiveTriggerCount(a.ID)
			fmt.Printf("  %-16s %-7s %-8s triggers %d/%d\n",
				a.Name, a.Transport, state, count, a.MaxTriggers)
			channels, err := st.AgentChannels(a.ID)
			if err != nil {
				continue
			}
			for _, ch := range channels {
				if last, err := st.LastTurnAt(ch.ID); err == nil && !last.IsZero() {
					fmt.Printf("    ↳ %-20s last message %s\n", ch.Name, last.Format("01-02 15:04"))
				} else {
					fmt.Printf("    ↳ %s\n", ch.Name)
				}
			}
		}

		activity, err := st.RecentActivity(10)
		if err != nil {
			return err
		}
		if len(activity) > 0 {
			fmt.Println("\nRecent activity:")
			for _, ev := range activity {
				fmt.Printf("  %s %-14s %s\n",
					ev.Timestamp.Format("01-02 15:04"), ev.EventType, ev.Description)
			}
		}
		return nil
	},
}
