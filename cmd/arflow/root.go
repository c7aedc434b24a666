package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mshields/arflow/assess"
	"github.com/mshields/arflow/assess/anthropic"
	"github.com/mshields/arflow/assess/google"
	"github.com/mshields/arflow/assess/openai"
	"github.com/mshields/arflow/credit"
	"github.com/mshields/arflow/flow"
	"github.com/mshields/arflow/flow/emit"
	"github.com/mshields/arflow/flow/store"
)

var rootCmd = &cobra.Command{
	Use:   "arflow",
	Short: "arflow runs credit approval workflows for accounts receivable",
	Long: `arflow executes an order-approval workflow over customer master and
sales order data. Runs that need a management decision suspend to a
checkpoint store and resume once the decision arrives.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("data-dir", "data", "directory containing customer_master.csv and sales_order.csv")
	pf.String("store", "memory", "checkpoint store backend: memory, sqlite or mysql")
	pf.String("db", "arflow.db", "sqlite file path, or mysql DSN when --store=mysql")
	pf.String("assessor", "rule", "credit assessor: rule, anthropic, openai or google")
	pf.String("model", "", "model name override for LLM assessors")
	pf.String("policy", "", "path to a credit policy document (optional)")
	pf.Bool("log-json", false, "emit workflow events as JSON lines")
	pf.BoolP("verbose", "v", false, "log workflow events to stderr")
}

// buildExecutor assembles the workflow executor from the persistent flags.
// The returned cleanup closes any store that holds a database handle.
func buildExecutor(cmd *cobra.Command, reg *prometheus.Registry) (*flow.Executor, func(), error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	storeKind, _ := cmd.Flags().GetString("store")
	db, _ := cmd.Flags().GetString("db")
	assessorKind, _ := cmd.Flags().GetString("assessor")
	model, _ := cmd.Flags().GetString("model")
	policyPath, _ := cmd.Flags().GetString("policy")
	logJSON, _ := cmd.Flags().GetBool("log-json")
	verbose, _ := cmd.Flags().GetBool("verbose")

	source, err := credit.NewCSVDataSource(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading data from %s: %w", dataDir, err)
	}

	assessor, err := newAssessor(assessorKind, model)
	if err != nil {
		return nil, nil, err
	}

	policy := credit.DefaultPolicy
	if policyPath != "" {
		policy = credit.LoadPolicy(policyPath)
	}

	def, err := credit.Build(credit.Deps{
		Source:   source,
		Assessor: assessor,
		Notifier: credit.NewLogNotifier(os.Stderr),
		Policy:   policy,
	})
	if err != nil {
		return nil, nil, err
	}

	cs, cleanup, err := newStore(storeKind, db)
	if err != nil {
		return nil, nil, err
	}

	opts := []flow.Option{}
	if verbose {
		opts = append(opts, flow.WithEmitter(emit.NewLogEmitter(os.Stderr, logJSON)))
	}
	if reg != nil {
		opts = append(opts, flow.WithMetrics(flow.NewMetrics(reg)))
	}

	exec, err := flow.NewExecutor(def, cs, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return exec, cleanup, nil
}

func newStore(kind, db string) (store.CheckpointStore, func(), error) {
	switch kind {
	case "memory":
		return store.NewMemStore(), func() {}, nil
	case "sqlite":
		s, err := store.NewSQLiteStore(db)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, func() { s.Close() }, nil
	case "mysql":
		s, err := store.NewMySQLStore(db)
		if err != nil {
			return nil, nil, fmt.Errorf("opening mysql store: %w", err)
		}
		return s, func() { s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", kind)
	}
}

func newAssessor(kind, model string) (assess.Service, error) {
	switch kind {
	case "rule":
		return assess.NewRuleService(), nil
	case "anthropic":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
		return anthropic.NewService(key, model), nil
	case "openai":
		return openai.NewService(os.Getenv("OPENAI_API_KEY"), model)
	case "google":
		key := os.Getenv("GOOGLE_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY is not set")
		}
		return google.NewService(key, model), nil
	default:
		return nil, fmt.Errorf("unknown assessor %q", kind)
	}
}
