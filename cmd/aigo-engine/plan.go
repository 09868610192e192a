package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/smithisrealdev/aigo-engine/internal/itinerary"
	"github.com/smithisrealdev/aigo-engine/internal/progress"
	"github.com/smithisrealdev/aigo-engine/internal/service"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

var (
	planPrefs  []string
	planOutput string
)

var planCmd = &cobra.Command{
	Use:   "plan [prompt]",
	Short: "Generate a travel plan from a free-text prompt",
	Long: `Submits a generation task, follows its progress, and prints the
finished plan.

Example:
  aigo-engine plan "5 days in Tokyo in late September, love food and temples"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringArrayVar(&planPrefs, "pref", nil, "Preference as key=value (repeatable)")
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "yaml", "Output format: yaml or json")
}

func runPlan(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	prompt := strings.Join(args, " ")
	prefs := parsePrefs(planPrefs)

	ctx := cmd.Context()
	planID, taskID, err := rt.engine.SubmitGeneration(ctx, prompt, prefs)
	if err != nil {
		return err
	}
	cmd.PrintErrf("Plan %s queued (task %s)\n", planID, taskID)

	if err := followTask(ctx, cmd, rt.engine, taskID); err != nil {
		return err
	}

	snap, err := rt.engine.GetPlan(ctx, planID)
	if err != nil {
		return err
	}
	return printSnapshot(cmd, snap, planOutput)
}

// followTask subscribes to a task and prints progress lines until it
// reaches a terminal state.
func followTask(ctx context.Context, cmd *cobra.Command, engine *service.Engine, taskID types.ID) error {
	updates, cancel, err := engine.SubscribeProgress(ctx, taskID)
	if err != nil {
		return err
	}
	defer cancel()

	// The subscription only carries updates published after it was
	// created, so check the current state too.
	if u, err := engine.GetProgress(ctx, taskID); err == nil && u.Terminal() {
		return terminalResult(u)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, open := <-updates:
			if !open {
				return fmt.Errorf("progress stream closed unexpectedly")
			}
			if u.Terminal() {
				return terminalResult(u)
			}
			if u.Status == types.TaskStatusProgress {
				cmd.PrintErrf("  [%3d%%] %s %s\n", u.Progress, u.Stage, u.Message)
			} else if u.Status == types.TaskStatusRetrying {
				cmd.PrintErrf("  retrying: %s\n", u.Message)
			}
		}
	}
}

func terminalResult(u progress.Update) error {
	switch u.Status {
	case types.TaskStatusCompleted:
		return nil
	case types.TaskStatusCancelled:
		return fmt.Errorf("task was cancelled")
	default:
		if u.Message != "" {
			return fmt.Errorf("task failed: %s (%s)", u.Message, u.Error)
		}
		return fmt.Errorf("task failed: %s", u.Error)
	}
}

func parsePrefs(pairs []string) map[string]any {
	if len(pairs) == 0 {
		return nil
	}
	prefs := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			prefs[pair] = true
			continue
		}
		prefs[key] = value
	}
	return prefs
}

func printSnapshot(cmd *cobra.Command, snap *itinerary.Snapshot, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
	default:
		data, err := yaml.Marshal(snap)
		if err != nil {
			return err
		}
		cmd.Print(string(data))
	}
	return nil
}
