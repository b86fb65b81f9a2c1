package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"paperbase/internal/app"
	"paperbase/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	var dataDir string
	var forceReindex bool

	rootCmd := &cobra.Command{
		Use:   "paperbase",
		Short: "Ingest academic papers and query them with an LLM",
		Long: `paperbase builds a local vector index over academic documents
(PDF, markdown, plain text, web pages) with section-aware chunking,
then answers questions strictly from the indexed content.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory for vector DB and metadata")
	rootCmd.PersistentFlags().BoolVar(&forceReindex, "force", false, "reindex documents even if unchanged")

	newApp := func() (*app.App, error) {
		// Флаги имеют приоритет над env
		if dataDir != "" {
			os.Setenv("DATA_DIR", dataDir)
		}
		if forceReindex {
			os.Setenv("FORCE_REINDEX", "true")
		}

		// Загружаем .env (опционально)
		_ = godotenv.Load()

		cfg := config.Config{}
		if err := config.Init(&cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}

		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}

		a, err := app.New(&cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create app: %w", err)
		}
		if err := a.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize app: %w", err)
		}
		return a, nil
	}

	ingestCmd := &cobra.Command{
		Use:   "ingest <path|url> [...]",
		Short: "Index documents into the vector database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			stats := a.IngestAll(ctx, args)
			if stats.Failed > 0 {
				return fmt.Errorf("%d of %d documents failed", stats.Failed, stats.Total)
			}
			return nil
		},
	}

	queryCmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Ask a question over the indexed documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			answer, results, err := a.Answer(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}

			log.Printf("Found %d relevant chunks", len(results))
			for i, r := range results {
				log.Printf("   %d. %s / %s (similarity: %.2f)", i+1, r.Source, r.Section, r.Similarity)
			}
			fmt.Printf("\n%s\n", answer)
			return nil
		},
	}

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive mode: ingest documents and ask questions from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			return a.Run(ctx)
		},
	}

	rootCmd.AddCommand(ingestCmd, queryCmd, chatCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
