package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentstation/confmap/pkg/logging"
	"github.com/agentstation/confmap/pkg/reconcile"
	"github.com/agentstation/confmap/pkg/records"
	"github.com/agentstation/confmap/pkg/store"
)

var (
	inputFile    string
	engineConfig string
	asOfDay      string
	dryRun       bool
	showDetail   bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile source records into a validated snapshot",
	Long: `Reconcile reads a multi-source records file, merges records that
describe the same venue, resolves disagreement between sources, and
applies the validated snapshot to the store.

With --dry-run the report is printed but nothing is written.`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVarP(&inputFile, "input", "i", "",
		"records file to reconcile (required)")
	reconcileCmd.Flags().StringVar(&engineConfig, "engine-config", "",
		"engine configuration file (defaults apply when omitted)")
	reconcileCmd.Flags().StringVar(&asOfDay, "as-of", "",
		"reference date for recency decay, YYYY-MM-DD (default today)")
	reconcileCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"report without writing to the store")
	reconcileCmd.Flags().BoolVar(&showDetail, "detail", false,
		"print every conflict and its resolution")
	_ = reconcileCmd.MarkFlagRequired("input")
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	log := logging.Default()

	schema, ok := records.ByName(viper.GetString("entity"))
	if !ok {
		return fmt.Errorf("unknown entity kind %q", viper.GetString("entity"))
	}

	cfg := reconcile.DefaultConfig()
	if engineConfig != "" {
		data, err := os.ReadFile(engineConfig)
		if err != nil {
			return fmt.Errorf("reading engine config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("decoding engine config: %w", err)
		}
	}

	opts := []reconcile.Option{reconcile.WithConfig(cfg)}
	if asOfDay != "" {
		d, err := records.ParseDate(asOfDay)
		if err != nil {
			return err
		}
		opts = append(opts, reconcile.WithAsOf(d.Time()))
	}

	engine, err := reconcile.New(schema, opts...)
	if err != nil {
		return err
	}

	input, warnings, err := records.ReadFile(inputFile, schema)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		log.Warn().Msg(w)
	}
	log.Info().
		Str("entity", schema.Entity).
		Int("records", len(input)).
		Msg("loaded source records")

	start := time.Now()
	result, err := engine.Run(cmd.Context(), input)
	if err != nil {
		return err
	}
	log.Info().
		Int("entities", len(result.Entities)).
		Int("conflicts", result.Report.TotalConflicts()).
		Dur("elapsed", time.Since(start)).
		Msg("reconciliation complete")

	fmt.Print(result.Report.Summary())
	if showDetail {
		fmt.Println()
		fmt.Print(result.Report.Detail())
	}

	if dryRun {
		fmt.Println("\nDry run: store not modified.")
		return nil
	}

	dir, err := storeDir()
	if err != nil {
		return err
	}
	st, err := store.NewFileStore(dir)
	if err != nil {
		return err
	}
	applied, err := st.Apply(cmd.Context(), result)
	if err != nil {
		return err
	}
	fmt.Printf("\nApplied to %s: %d added, %d updated, %d removed, %d unchanged.\n",
		dir, applied.Added, applied.Updated, applied.Removed, applied.Unchanged)
	if applied.BackupID != "" {
		fmt.Printf("Previous snapshot backed up as %s.\n", applied.BackupID)
	}
	return nil
}
