package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dshills/deepresearch/research"
)

var researchCmd = &cobra.Command{
	Use:   "research [query]",
	Short: "Run one research query from the command line",
	Long: `Runs a single research query to completion and streams
progress to stdout. Repeating a thread ID continues that conversation's
checkpointed state.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		threadID, _ := cmd.Flags().GetString("thread")
		userID, _ := cmd.Flags().GetString("user")
		showThinking, _ := cmd.Flags().GetBool("thinking")
		maxIterations, _ := cmd.Flags().GetInt("max-iterations")

		app, err := buildApp(cmd.Context(), cfgPath)
		if err != nil {
			return err
		}
		defer app.close()

		if threadID == "" {
			threadID = uuid.NewString()
		}

		req := research.Request{
			Query:         strings.Join(args, " "),
			ThreadID:      threadID,
			UserID:        userID,
			ShowThinking:  showThinking,
			MaxIterations: maxIterations,
		}

		var failed bool
		for ev := range app.workflow.Stream(cmd.Context(), req) {
			switch ev.Type {
			case research.EventThinking:
				if entry, ok := ev.Content.(research.TraceEntry); ok {
					printThinking(entry)
				}
			case research.EventSources:
				if sources, ok := ev.Content.([]research.Source); ok {
					fmt.Fprintf(os.Stderr, "[sources] gathered %d\n", len(sources))
				}
			case research.EventAnswer:
				fmt.Print(ev.Content)
			case research.EventDone:
				fmt.Println()
				if done, ok := ev.Content.(research.DoneContent); ok {
					fmt.Fprintf(os.Stderr, "\n%d sources, thread %s\n", len(done.Sources), threadID)
				}
			case research.EventError:
				failed = true
				fmt.Fprintf(os.Stderr, "research failed: %v\n", ev.Content)
			}
		}
		if failed {
			os.Exit(1)
		}
		return nil
	},
}

func printThinking(entry research.TraceEntry) {
	if entry.Plan != nil {
		plan, _ := json.MarshalIndent(entry.Plan, "", "  ")
		fmt.Fprintf(os.Stderr, "[%s] plan:\n%s\n", entry.Step, plan)
		return
	}
	fmt.Fprintf(os.Stderr, "[%s] %s\n", entry.Step, entry.Content)
}

func init() {
	researchCmd.Flags().String("thread", "", "thread ID to continue (default: new thread)")
	researchCmd.Flags().String("user", "cli", "user ID scoping memory and checkpoints")
	researchCmd.Flags().Bool("thinking", false, "print trace entries while the run progresses")
	researchCmd.Flags().Int("max-iterations", 0, "search loop budget (0 = config default)")
	rootCmd.AddCommand(researchCmd)
}
