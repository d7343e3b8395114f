package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thinkbridge/factsheet/config"
	"github.com/thinkbridge/factsheet/internal/chunkstore"
	"github.com/thinkbridge/factsheet/internal/clean"
	"github.com/thinkbridge/factsheet/internal/output"
	"github.com/thinkbridge/factsheet/internal/scrape"
)

func ingestCMD() *cobra.Command {
	var cfgPath string
	var companyURL string

	var cmdIngest = &cobra.Command{
		Use:   "ingest",
		Short: "Scrape one company site and index its chunks",
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
			chunks, result, err := scrapeAndChunk(ctx, app, companyURL, companyID)
			if err != nil {
				return err
			}
			if err := app.chunks.Index(ctx, companyID, chunks); err != nil {
				return err
			}
			fmt.Printf("%s: indexed %d chunks (about page: %s)\n", companyID, len(chunks), orNone(result.AboutURL))
			return nil
		},
	}
	cmdIngest.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config)")
	cmdIngest.Flags().StringVar(&companyURL, "url", "", "company website URL")
	_ = cmdIngest.MarkFlagRequired("url")
	return cmdIngest
}

// scrapeAndChunk is the shared single-company front half of the
// pipeline: fetch, clean, chunk.
func scrapeAndChunk(ctx context.Context, app *app, url, companyID string) ([]chunkstore.Chunk, scrape.Result, error) {
	result, err := app.runner.Scraper.Scrape(ctx, url)
	if err != nil {
		return nil, scrape.Result{}, err
	}
	var chunks []chunkstore.Chunk
	chunks = append(chunks, app.runner.Chunker.Chunk(companyID, chunkstore.PageHome, clean.Clean(result.HomeText))...)
	if result.AboutText != "" {
		chunks = append(chunks, app.runner.Chunker.Chunk(companyID, chunkstore.PageAbout, clean.Clean(result.AboutText))...)
	}
	if len(chunks) == 0 {
		return nil, result, fmt.Errorf("no indexable text at %s", url)
	}
	return chunks, result, nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
