package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vsianalytics/lakeetl/internal/config"
	"github.com/vsianalytics/lakeetl/internal/lake"
	"github.com/vsianalytics/lakeetl/internal/pipeline"
)

// newPipeline builds a pipeline from the resolved configuration.
func newPipeline() (*pipeline.Pipeline, error) {
	settings := config.Settings{
		LakeRoot:    viper.GetString("lake_root"),
		ConfigDir:   viper.GetString("config_dir"),
		Workers:     viper.GetInt("workers"),
		BatchSize:   viper.GetInt("batch_size"),
		Compression: viper.GetString("compression"),
		WindowStart: viper.GetString("window_start"),
		WindowEnd:   viper.GetString("window_end"),
	}.WithDefaults()

	store, err := lake.NewLocalStore(settings.LakeRoot)
	if err != nil {
		return nil, err
	}

	return pipeline.New(store, settings, slog.Default())
}

// expandGroups replaces the predefined group names "transactions" and
// "other" with the table names they stand for.
func expandGroups(args []string) []string {
	var tables []string
	for _, arg := range args {
		switch arg {
		case "transactions":
			tables = append(tables, lake.TransactionTypes...)
		case "other":
			tables = append(tables, pipeline.TableCustomer, pipeline.TableVendor,
				pipeline.TableItem, pipeline.TableNewCategories)
		default:
			tables = append(tables, arg)
		}
	}
	return tables
}

func consolidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consolidate [table...]",
		Short: "Consolidate landed JSON objects into raw Parquet tables",
		Long: `Reads the JSON objects landed under landing/netsuite/<table> and
writes one raw Parquet table per source table. With no arguments all
tables are consolidated. The groups "transactions" and "other" stand
for the transaction types and the supporting tables.`,
		RunE: func(_ *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}
			return p.Consolidate(expandGroups(args))
		},
	}
}

func repairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repair [table...]",
		Short: "Coerce raw tables to their declared column types",
		RunE: func(_ *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}
			return p.Repair(expandGroups(args))
		},
	}
}

func cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [table...]",
		Short: "Filter and normalize repaired tables into the cleaned tier",
		RunE: func(_ *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}
			return p.Clean(expandGroups(args))
		},
	}
}

func augmentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "augment [table...]",
		Short: "Enrich cleaned tables with derived columns",
		RunE: func(_ *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}
			return p.Augment(args)
		},
	}
}

func curateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "curate [type...]",
		Short: "Filter enhanced line items into the curated tier",
		RunE: func(_ *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}
			return p.Curate(args)
		},
	}
}

// runCmd executes every stage in order, the way a scheduled full
// refresh does.
func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run all pipeline stages in order",
		RunE: func(_ *cobra.Command, _ []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}

			stages := []struct {
				name string
				fn   func([]string) error
			}{
				{"consolidate", p.Consolidate},
				{"repair", p.Repair},
				{"clean", p.Clean},
				{"augment", p.Augment},
				{"curate", p.Curate},
			}
			for _, stage := range stages {
				slog.Info("running stage", "stage", stage.name)
				if err := stage.fn(nil); err != nil {
					return fmt.Errorf("stage %s: %w", stage.name, err)
				}
			}
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile <type>",
		Short: "Compare transaction net amounts against line item totals",
		Long: `Sums enhanced line item totals per transaction and compares them with
the header net amounts, listing the largest mismatches first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transType := args[0]
			if !lake.ValidTransactionType(transType) {
				return fmt.Errorf("unknown transaction type %q", transType)
			}

			p, err := newPipeline()
			if err != nil {
				return err
			}

			report, err := p.Reconcile(transType)
			if err != nil {
				return err
			}

			limit := viper.GetInt("reconcile.limit")
			if limit <= 0 || limit > report.Len() {
				limit = report.Len()
			}

			cmd.Printf("%-20s %14s %14s %14s\n", "tranid", "net_amount", "total_amount", "difference")
			for row := 0; row < limit; row++ {
				var cells []string
				for _, name := range report.Columns() {
					col, _ := report.Column(name)
					cells = append(cells, col.GetAsString(row))
				}
				cmd.Printf("%-20s %14s %14s %14s\n", cells[0], cells[1], cells[2], cells[3])
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "number of mismatches to print (0 = all)")
	_ = viper.BindPFlag("reconcile.limit", cmd.Flags().Lookup("limit"))

	return cmd
}
