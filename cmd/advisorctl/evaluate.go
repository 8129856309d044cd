package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"budgetadvisor/internal/cli"
	"budgetadvisor/internal/core"
	"budgetadvisor/internal/services"
)

var (
	evalAnswers     cli.Answers
	evalFile        string
	evalInteractive bool
	evalUser        string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a budget profile",
	Long: `Evaluate a budget profile given by flags, a TOML file (--file) or an
interactive form (--interactive). Flags override values from the file.
With --user the run is saved to that user's history.`,
	Example: `  advisorctl evaluate --savings-percent 5 --debt-percent 45
  advisorctl evaluate --file profile.toml --user alice`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

func init() {
	f := evaluateCmd.Flags()
	f.StringVar(&evalAnswers.SavingsPercent, "savings-percent", "", "Share of income saved (%)")
	f.StringVar(&evalAnswers.DebtPercent, "debt-percent", "", "Share of income spent on debt (%)")
	f.StringVar(&evalAnswers.SubscriptionPercent, "subscription-percent", "", "Share of income spent on subscriptions (%)")
	f.StringVar(&evalAnswers.WantsPercent, "wants-percent", "", "Share of income spent on wants (%)")
	f.StringVar(&evalAnswers.EmergencyFund, "emergency-fund", "", "Emergency fund balance")
	f.StringVar(&evalAnswers.Savings, "savings", "", "Saved toward the goal so far")
	f.StringVar(&evalAnswers.GoalAmount, "goal-amount", "", "Goal amount")
	f.StringVar(&evalAnswers.ExpensesTracking, "tracks-expenses", "", "Whether expenses are tracked (yes/no)")
	f.StringVar(&evalAnswers.GoalExists, "has-goal", "", "Whether there is a savings goal (yes/no)")
	f.StringVarP(&evalFile, "file", "f", "", "Read the profile from a TOML file")
	f.BoolVarP(&evalInteractive, "interactive", "i", false, "Fill in the profile with a form")
	f.StringVarP(&evalUser, "user", "u", "", "Save the run to this user's history")
	f.StringVar(&flagPassword, "password", "", "Password for --user (default $ADVISOR_PASSWORD, else prompt)")
	evaluateCmd.MarkFlagsMutuallyExclusive("file", "interactive")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	profile, err := buildProfile(evalFile, evalInteractive, evalAnswers)
	if err != nil {
		return err
	}

	advice := services.NewAdviceService(nil, nil, nil)
	var id core.Identity
	if evalUser != "" {
		repo, err := openStore()
		if err != nil {
			return err
		}
		defer repo.Close()
		if id, err = login(cmd, repo, evalUser); err != nil {
			return err
		}
		advice = services.NewAdviceService(nil, repo, nil)
	}

	res, err := advice.Advise(cmd.Context(), id, profile)
	if err != nil {
		return err
	}

	fmt.Println(cli.RenderTitle("Budget advice"))
	fmt.Print(cli.RenderAdvice(res))
	if evalUser != "" && !res.Saved {
		return fmt.Errorf("advice was not saved to history")
	}
	return nil
}

// buildProfile reads the profile from the selected source. Flag answers
// override the file and seed the form.
func buildProfile(file string, interactive bool, flags cli.Answers) (core.FinancialProfile, error) {
	if interactive {
		return cli.PromptProfile(flags)
	}

	fromFlags, err := flags.Profile()
	if err != nil {
		return core.FinancialProfile{}, err
	}
	if file == "" {
		return fromFlags, nil
	}

	fromFile, err := cli.LoadProfileFile(file)
	if err != nil {
		return core.FinancialProfile{}, err
	}
	return overlay(fromFile, fromFlags), nil
}

// overlay returns base with every field answered in top replaced.
func overlay(base, top core.FinancialProfile) core.FinancialProfile {
	out := base
	if top.SavingsPercent != nil {
		out.SavingsPercent = top.SavingsPercent
	}
	if top.DebtPercent != nil {
		out.DebtPercent = top.DebtPercent
	}
	if top.SubscriptionPercent != nil {
		out.SubscriptionPercent = top.SubscriptionPercent
	}
	if top.WantsPercent != nil {
		out.WantsPercent = top.WantsPercent
	}
	if top.EmergencyFund != nil {
		out.EmergencyFund = top.EmergencyFund
	}
	if top.Savings != nil {
		out.Savings = top.Savings
	}
	if top.GoalAmount != nil {
		out.GoalAmount = top.GoalAmount
	}
	if top.ExpensesTracking != nil {
		out.ExpensesTracking = top.ExpensesTracking
	}
	if top.GoalExists != nil {
		out.GoalExists = top.GoalExists
	}
	return out
}
