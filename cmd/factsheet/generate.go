package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thinkbridge/factsheet/config"
	"github.com/thinkbridge/factsheet/internal/generate"
	"github.com/thinkbridge/factsheet/internal/output"
	"github.com/thinkbridge/factsheet/internal/template"
)

func generateCMD() *cobra.Command {
	var cfgPath string
	var companyURL string
	var industry string

	var cmdGenerate = &cobra.Command{
		Use:   "generate",
		Short: "Produce a factsheet for one company",
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
			chunks, _, err := scrapeAndChunk(ctx, app, companyURL, companyID)
			if err != nil {
				return err
			}
			if err := app.chunks.Index(ctx, companyID, chunks); err != nil {
				return err
			}

			tpl, fellBack := template.Resolve(industry)
			if fellBack {
				fmt.Printf("industry %q unknown, using generic template\n", industry)
			}
			fs, genErr := app.runner.Generator.Generate(ctx, companyID, tpl)
			var wcv *generate.WordCountViolation
			if genErr != nil && !errors.As(genErr, &wcv) {
				return genErr
			}

			path, skipped, err := app.runner.Writer.WriteFactsheet(companyURL, fs)
			if err != nil {
				return err
			}
			if skipped {
				fmt.Printf("%s already exists, not overwritten\n", path)
				return nil
			}
			fmt.Printf("wrote %s (%d words)\n", path, fs.WordCount)
			if wcv != nil {
				fmt.Printf("warning: %v\n", wcv)
			}
			return nil
		},
	}
	cmdGenerate.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config)")
	cmdGenerate.Flags().StringVar(&companyURL, "url", "", "company website URL")
	cmdGenerate.Flags().StringVar(&industry, "industry", "", "industry label for template selection")
	_ = cmdGenerate.MarkFlagRequired("url")
	return cmdGenerate
}
