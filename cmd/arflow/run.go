package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mshields/arflow/credit"
	"github.com/mshields/arflow/flow"
)

// runCmd executes a single approval run from the command line. If the run
// suspends for a management decision it can be finished in the same
// invocation with --decision, which mirrors how a reviewer would answer
// the escalation.
var runCmd = &cobra.Command{
	Use:   "run CUSTOMER_ID",
	Short: "Run the approval workflow for one customer's pending order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		decision, _ := cmd.Flags().GetString("decision")

		exec, cleanup, err := buildExecutor(cmd, nil)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := context.Background()
		res, err := exec.Start(ctx, flow.State{credit.FieldCustomerID: args[0]})
		if err != nil {
			return err
		}

		if res.Status == flow.StatusSuspended {
			if decision == "" {
				payload, _ := json.MarshalIndent(res.Payload, "", "  ")
				fmt.Fprintf(os.Stderr, "run %s suspended awaiting a management decision:\n%s\n", res.RunID, payload)
				fmt.Printf("checkpoint: %s\n", res.CheckpointID)
				fmt.Println("re-run with --decision approved or --decision rejected to finish")
				return nil
			}
			res, err = exec.Resume(ctx, res.CheckpointID, decision)
			if err != nil {
				return err
			}
		}

		out, err := json.MarshalIndent(res.FinalState, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

// resumeCmd finishes a previously suspended run by checkpoint ID. Useful
// with --store=sqlite or mysql, where checkpoints survive process restarts.
var resumeCmd = &cobra.Command{
	Use:   "resume CHECKPOINT_ID DECISION",
	Short: "Resume a suspended run with a management decision",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		exec, cleanup, err := buildExecutor(cmd, nil)
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := exec.Resume(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(res.FinalState, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	runCmd.Flags().String("decision", "", "answer a suspended escalation in the same invocation (approved or rejected)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
}
