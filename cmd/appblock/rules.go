package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/eliteGoblin/focusd/app_block/internal/api"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage block rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all rules",
	Args:  cobra.NoArgs,
	RunE:  runRulesList,
}

var rulesGetCmd = &cobra.Command{
	Use:   "get <app>",
	Short: "Show one rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesGet,
}

var rulesAddCmd = &cobra.Command{
	Use:   "add <app>",
	Short: "Create or replace a rule",
	Long: `Creates or replaces the rule for an app. Use --start/--end for a daily
window (it may cross midnight, e.g. 22:00 to 06:00) or --all-day.`,
	Args: cobra.ExactArgs(1),
	RunE: runRulesAdd,
}

var rulesRmCmd = &cobra.Command{
	Use:   "rm <app>",
	Short: "Delete a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesRm,
}

var rulesEnableCmd = &cobra.Command{
	Use:   "enable <app>",
	Short: "Enable a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setActive(cmd, args[0], true) },
}

var rulesDisableCmd = &cobra.Command{
	Use:   "disable <app>",
	Short: "Disable a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setActive(cmd, args[0], false) },
}

var rulesScheduleCmd = &cobra.Command{
	Use:   "schedule <app>",
	Short: "Replace a rule's schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesSchedule,
}

var rulesSecretCmd = &cobra.Command{
	Use:   "secret <app> [secret]",
	Short: "Set a rule's unlock secret (omit to clear)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runRulesSecret,
}

var (
	ruleName     string
	ruleInactive bool
	ruleSchedule api.ScheduleRequest
)

func addScheduleFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ruleSchedule.Start, "start", "", "Window start, HH:MM")
	cmd.Flags().StringVar(&ruleSchedule.End, "end", "", "Window end, HH:MM")
	cmd.Flags().BoolVar(&ruleSchedule.AllDay, "all-day", false, "Block for the whole day")
	cmd.Flags().StringVar(&ruleSchedule.Days, "days", "daily", "Days: daily, weekdays, weekends or mon,tue,...")
	cmd.Flags().StringVar(&ruleSchedule.Secret, "secret", "", "Unlock secret")
}

func init() {
	addScheduleFlags(rulesAddCmd)
	addScheduleFlags(rulesScheduleCmd)
	rulesAddCmd.Flags().StringVar(&ruleName, "name", "", "Display name")
	rulesAddCmd.Flags().BoolVar(&ruleInactive, "inactive", false, "Create the rule disabled")

	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesGetCmd)
	rulesCmd.AddCommand(rulesAddCmd)
	rulesCmd.AddCommand(rulesRmCmd)
	rulesCmd.AddCommand(rulesEnableCmd)
	rulesCmd.AddCommand(rulesDisableCmd)
	rulesCmd.AddCommand(rulesScheduleCmd)
	rulesCmd.AddCommand(rulesSecretCmd)
}

func runRulesList(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	rules, err := c.Rules(cmd.Context())
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		fmt.Println("No rules. Add one with 'appblock rules add <app>'.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "APP\tACTIVE\tWHEN\tDAYS\tSECRET")
	for _, r := range rules {
		fmt.Fprintf(w, "%s\t%t\t%s\t%s\t%t\n", r.AppID, r.Active, window(r), r.Days, r.HasSecret)
	}
	return w.Flush()
}

func runRulesGet(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	r, err := c.Rule(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printRule(r)
	return nil
}

func runRulesAdd(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	active := !ruleInactive
	r, err := c.PutRule(cmd.Context(), args[0], api.RuleRequest{
		DisplayName:     ruleName,
		Active:          &active,
		ScheduleRequest: ruleSchedule,
	})
	if err != nil {
		return err
	}
	printRule(r)
	return nil
}

func runRulesRm(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.DeleteRule(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted rule for %s\n", args[0])
	return nil
}

func setActive(cmd *cobra.Command, appID string, active bool) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.SetActive(cmd.Context(), appID, active); err != nil {
		return err
	}
	state := "disabled"
	if active {
		state = "enabled"
	}
	fmt.Printf("Rule for %s %s\n", appID, state)
	return nil
}

func runRulesSchedule(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.SetSchedule(cmd.Context(), args[0], ruleSchedule); err != nil {
		return err
	}
	fmt.Printf("Schedule updated for %s\n", args[0])
	return nil
}

func runRulesSecret(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	secret := ""
	if len(args) == 2 {
		secret = args[1]
	}
	if err := c.SetSecret(cmd.Context(), args[0], secret); err != nil {
		return err
	}
	if secret == "" {
		fmt.Printf("Secret cleared for %s\n", args[0])
	} else {
		fmt.Printf("Secret set for %s\n", args[0])
	}
	return nil
}

func window(r api.RuleView) string {
	switch {
	case r.AllDay:
		return "all day"
	case r.Start != "" && r.End != "":
		return r.Start + "-" + r.End
	default:
		return "never"
	}
}

func printRule(r *api.RuleView) {
	fmt.Printf("\n[%s]", r.AppID)
	if r.DisplayName != "" {
		fmt.Printf(" %s", r.DisplayName)
	}
	fmt.Println()
	fmt.Printf("  Active: %t\n", r.Active)
	fmt.Printf("  When:   %s\n", window(*r))
	fmt.Printf("  Days:   %s\n", r.Days)
	fmt.Printf("  Secret: %t\n", r.HasSecret)
}
