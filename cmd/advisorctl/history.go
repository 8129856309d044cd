package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"budgetadvisor/internal/cli"
	"budgetadvisor/internal/services"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <username>",
	Short: "Show a user's recent advice",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 10, "Number of entries to show")
	historyCmd.Flags().StringVar(&flagPassword, "password", "", "Password (default $ADVISOR_PASSWORD, else prompt)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyLimit < 1 {
		return fmt.Errorf("--limit must be at least 1")
	}
	repo, err := openStore()
	if err != nil {
		return err
	}
	defer repo.Close()

	id, err := login(cmd, repo, args[0])
	if err != nil {
		return err
	}
	entries, err := services.NewAdviceService(nil, repo, nil).History(cmd.Context(), id, historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("\n  No advice saved yet.")
		return nil
	}
	fmt.Print(cli.RenderTable(cli.HistoryTable(entries)))
	return nil
}
