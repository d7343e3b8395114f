package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/thinkbridge/factsheet/config"
	"github.com/thinkbridge/factsheet/internal/ingest"
	"github.com/thinkbridge/factsheet/internal/pipeline"
)

func runCMD() *cobra.Command {
	var cfgPath string
	var inputPath string
	var outputDir string
	var workers int
	var resume bool

	var run = &cobra.Command{
		Use:   "run",
		Short: "Process a CSV of companies into factsheets and accuracy reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if outputDir != "" {
				cfg.Output.Dir = outputDir
			}
			if workers > 0 {
				cfg.Pipeline.Workers = workers
			}
			if !resume {
				cfg.Output.CheckpointBackend = "none"
			}
			companies, rowErrs, err := ingest.ReadCompaniesFile(inputPath)
			if err != nil {
				return err
			}
			for _, re := range rowErrs {
				fmt.Fprintf(os.Stderr, "skipping row %d: %s\n", re.Line, re.Reason)
			}
			if len(companies) == 0 {
				return fmt.Errorf("no usable companies in %s", inputPath)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := buildApp(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer app.Close()
			if app.metrics != nil {
				serveMetrics(app.metrics, cfg.Telemetry.MetricsPort)
			}

			app.runner.RunID = uuid.NewString()
			if app.store != nil {
				if err := app.store.StartRun(ctx, app.runner.RunID, len(companies)); err != nil {
					return err
				}
			}

			summary, err := app.runner.Run(ctx, companies)
			if err != nil {
				return err
			}
			if app.store != nil {
				processed, failed := countStatuses(summary)
				if serr := app.store.FinishRun(ctx, summary.RunID, processed, failed,
					summary.Usage.SpentUSD, summary.Usage.Tokens); serr != nil {
					fmt.Fprintf(os.Stderr, "recording run totals: %v\n", serr)
				}
			}

			printSummary(summary)
			return nil
		},
	}
	run.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config)")
	run.Flags().StringVar(&inputPath, "input", "companies.csv", "input CSV with url and industry columns")
	run.Flags().StringVar(&outputDir, "output", "", "output directory (overrides config)")
	run.Flags().IntVar(&workers, "workers", 0, "concurrent companies (overrides config)")
	run.Flags().BoolVar(&resume, "resume", true, "skip companies finished in a previous run")
	return run
}

func countStatuses(s pipeline.Summary) (processed, failed int) {
	for _, st := range s.Statuses {
		switch st.Status {
		case "processed":
			processed++
		case "failed":
			failed++
		}
	}
	return processed, failed
}

func printSummary(s pipeline.Summary) {
	fmt.Printf("run %s\n", s.RunID)
	for _, st := range s.Statuses {
		switch st.Status {
		case "processed":
			fmt.Printf("  %-30s %s (%d words, accuracy %.2f)\n", st.Company.URL, st.Status, st.WordCount, st.OverallScore)
		case "failed":
			fmt.Printf("  %-30s %s [%s]: %v\n", st.Company.URL, st.Status, st.FailureKind, st.Err)
		default:
			fmt.Printf("  %-30s %s\n", st.Company.URL, st.Status)
		}
	}
	fmt.Printf("spent $%.4f of $%.2f (%d tokens)\n", s.Usage.SpentUSD, s.Usage.CeilingUSD, s.Usage.Tokens)
}
