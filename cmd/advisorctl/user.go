package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"budgetadvisor/internal/cli"
	"budgetadvisor/internal/services"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

func init() {
	userAddCmd.Flags().StringVar(&flagPassword, "password", "", "Password (default $ADVISOR_PASSWORD, else prompt)")
	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	pw, err := passwordFor(args[0])
	if err != nil {
		return err
	}
	if flagPassword == "" {
		confirm, err := cli.PromptPassword("Confirm password")
		if err != nil {
			return err
		}
		if confirm != pw {
			return errors.New("passwords do not match")
		}
	}

	repo, err := openStore()
	if err != nil {
		return err
	}
	defer repo.Close()

	id, err := services.NewCredentialService(repo).Create(cmd.Context(), args[0], pw)
	if err != nil {
		return err
	}
	fmt.Printf("Created user %s (id %d)\n", id.Username, id.UserID)
	return nil
}
