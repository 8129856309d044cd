package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"budgetadvisor/internal/advisor"
	"budgetadvisor/internal/cli"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the advice rules in evaluation order",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		fmt.Print(cli.RenderTable(cli.RulesTable(advisor.Rules())))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
