package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thinkbridge/factsheet/config"
	"github.com/thinkbridge/factsheet/internal/output"
)

func validateCMD() *cobra.Command {
	var cfgPath string
	var companyURL string
	var factsheetPath string

	var cmdValidate = &cobra.Command{
		Use:   "validate",
		Short: "Score an existing factsheet against the company's site",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			ctx := context.Background()
			app, err := buildApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer app.Close()

			companyID := output.Slugify(companyURL)
			if factsheetPath == "" {
				factsheetPath = app.runner.Writer.FactsheetPath(companyURL)
			}
			factsheetText, err := os.ReadFile(factsheetPath)
			if err != nil {
				return fmt.Errorf("reading factsheet: %w", err)
			}

			chunks, _, err := scrapeAndChunk(ctx, app, companyURL, companyID)
			if err != nil {
				return err
			}
			var sb strings.Builder
			for _, c := range chunks {
				sb.WriteString(c.Text)
				sb.WriteString("\n\n")
			}

			report, valErr := app.runner.Validator.Validate(ctx, companyID, sb.String(), string(factsheetText))
			path, _, werr := app.runner.Writer.WriteReport(companyURL, report)
			if werr != nil {
				return werr
			}
			fmt.Printf("wrote %s (stage %s, accuracy %.2f, passed=%t)\n", path, report.Stage, report.OverallScore, report.Passed)
			return valErr
		},
	}
	cmdValidate.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config)")
	cmdValidate.Flags().StringVar(&companyURL, "url", "", "company website URL")
	cmdValidate.Flags().StringVar(&factsheetPath, "factsheet", "", "factsheet file (default <output dir>/<slug>.md)")
	_ = cmdValidate.MarkFlagRequired("url")
	return cmdValidate
}
