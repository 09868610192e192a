package main

import (
	"github.com/spf13/cobra"

	"github.com/smithisrealdev/aigo-engine/internal/itinerary"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

var (
	replanKind       string
	replanDesc       string
	replanDay        int
	replanDelay      int
	replanPreference string
	replanOutput     string
)

var replanCmd = &cobra.Command{
	Use:   "replan [plan-id]",
	Short: "Replan an itinerary after a disruption",
	Long: `Submits a replan task against a stored plan and follows its progress.
The trigger kind selects the adjustment strategy: weather swaps outdoor
activities for indoor alternatives, traffic reroutes transit, crowd prefers
hidden gems, and user_request honors an explicit preference.

Example:
  aigo-engine replan 6f1c... --kind weather --description "typhoon warning" --day 2`,
	Args: cobra.ExactArgs(1),
	RunE: runReplan,
}

func init() {
	replanCmd.Flags().StringVar(&replanKind, "kind", "", "Trigger kind: weather, traffic, crowd, or user_request")
	replanCmd.Flags().StringVar(&replanDesc, "description", "", "What happened")
	replanCmd.Flags().IntVar(&replanDay, "day", 0, "Restrict the replan to one day number")
	replanCmd.Flags().IntVar(&replanDelay, "delay", 0, "Reported delay in minutes (traffic)")
	replanCmd.Flags().StringVar(&replanPreference, "preference", "", "Requested change (user_request)")
	replanCmd.Flags().StringVarP(&replanOutput, "output", "o", "yaml", "Output format: yaml or json")
	_ = replanCmd.MarkFlagRequired("kind")
}

func runReplan(cmd *cobra.Command, args []string) error {
	planID, err := types.ParseID(args[0])
	if err != nil {
		return err
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	trigger := itinerary.ReplanTrigger{
		Kind:         itinerary.TriggerKind(replanKind),
		Description:  replanDesc,
		Day:          replanDay,
		DelayMinutes: replanDelay,
		Preference:   replanPreference,
	}

	ctx := cmd.Context()
	taskID, hint, err := rt.engine.SubmitReplan(ctx, planID, trigger)
	if err != nil {
		return err
	}
	cmd.PrintErrf("Replan queued (task %s), targeting version %d\n", taskID, hint)

	if err := followTask(ctx, cmd, rt.engine, taskID); err != nil {
		return err
	}

	snap, err := rt.engine.GetPlan(ctx, planID)
	if err != nil {
		return err
	}
	return printSnapshot(cmd, snap, replanOutput)
}
