package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Collapse duplicate member memory rows",
	Long: "Deduplicates member memory: for each member and slot type only the most\n" +
		"recently updated row survives, and rows are re-pointed at the member id\n" +
		"seen most often. Safe to run repeatedly.",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		deleted, err := st.ConsolidateSlots()
		if err != nil {
			return err
		}
		fmt.Printf("Consolidated member memory, %d duplicate rows removed\n", deleted)
		return nil
	},
}
