package main

import (
	"github.com/spf13/cobra"

	"github.com/smithisrealdev/aigo-engine/internal/types"
)

var (
	statusVersion int
	statusHistory bool
	statusOutput  string
)

var statusCmd = &cobra.Command{
	Use:   "status [plan-id]",
	Short: "Show a stored plan and its version history",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusVersion, "version", 0, "Show a specific stored version")
	statusCmd.Flags().BoolVar(&statusHistory, "history", false, "List version history instead of the plan")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "yaml", "Output format: yaml or json")
}

func runStatus(cmd *cobra.Command, args []string) error {
	planID, err := types.ParseID(args[0])
	if err != nil {
		return err
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := cmd.Context()

	if statusHistory {
		entries, err := rt.engine.History(ctx, planID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			cmd.Println("No replans recorded.")
			return nil
		}
		for _, e := range entries {
			cmd.Printf("v%d  %s  %s  %s\n", e.Version, e.CreatedAt.Format("2006-01-02 15:04"), e.TriggerKind, e.Summary)
		}
		return nil
	}

	if statusVersion > 0 {
		snap, err := rt.engine.GetPlanVersion(ctx, planID, statusVersion)
		if err != nil {
			return err
		}
		return printSnapshot(cmd, snap, statusOutput)
	}

	snap, err := rt.engine.GetPlan(ctx, planID)
	if err != nil {
		return err
	}
	return printSnapshot(cmd, snap, statusOutput)
}
