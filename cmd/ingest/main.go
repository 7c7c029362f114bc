package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/limglenaldin/ai-insurance-agent/internal/ai"
	"github.com/limglenaldin/ai-insurance-agent/internal/app"
	"github.com/limglenaldin/ai-insurance-agent/internal/config"
	"github.com/limglenaldin/ai-insurance-agent/internal/docsource"
	"github.com/limglenaldin/ai-insurance-agent/internal/model"
	"github.com/limglenaldin/ai-insurance-agent/internal/pkg/splitter"
	mysqlClient "github.com/limglenaldin/ai-insurance-agent/internal/platform/mysql"
	rabbitmqClient "github.com/limglenaldin/ai-insurance-agent/internal/platform/rabbitmq"
	"github.com/limglenaldin/ai-insurance-agent/internal/repository"
	"github.com/limglenaldin/ai-insurance-agent/internal/vectorstore"
)

type options struct {
	configPath   string
	docsDir      string
	store        string
	chunkSize    int
	chunkOverlap int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ingest failed: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Build the search index from the insurance PDF documents",
		Long: `Reads every PDF in the configured document source, splits the text into
chunks, embeds them and replaces the contents of the chunk store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIngest(ctx, cmd, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "path to the TOML config file")
	flags.StringVar(&opts.docsDir, "docs-dir", "", "directory containing the PDF documents")
	flags.StringVar(&opts.store, "store", "", "chunk store: local, mongodb or pgvector")
	flags.IntVar(&opts.chunkSize, "chunk-size", splitter.DefaultChunkSize, "maximum chunk length in characters")
	flags.IntVar(&opts.chunkOverlap, "chunk-overlap", splitter.DefaultChunkOverlap, "characters shared by consecutive chunks")
	return cmd
}

// loadConfig reads the configuration and applies the flags the user set.
func loadConfig(cmd *cobra.Command, opts options) (*config.Config, error) {
	if opts.configPath != "" {
		if err := os.Setenv("CONFIG_FILE", opts.configPath); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("docs-dir") {
		cfg.Ingest.DocsSource = config.SourceLocal
		cfg.Ingest.DocsDir = opts.docsDir
	}
	if flags.Changed("store") {
		cfg.Store.Kind = opts.store
	}
	if flags.Changed("chunk-size") {
		cfg.Ingest.ChunkSize = opts.chunkSize
	}
	if flags.Changed("chunk-overlap") {
		cfg.Ingest.ChunkOverlap = opts.chunkOverlap
	}

	if err := cfg.ValidateIngest(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runIngest(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	embedder, err := ai.NewEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return fmt.Errorf("create embedder failed: %w", err)
	}
	defer embedder.Close()

	dims := embedder.Dimensions()
	if dims == 0 && cfg.Store.Kind == config.StorePGVector {
		probe, err := embedder.Embed(ctx, "dimension probe")
		if err != nil {
			return fmt.Errorf("probe embedding dimensions failed: %w", err)
		}
		dims = len(probe)
	}

	store, err := vectorstore.Open(ctx, cfg, vectorstore.ModeIngest, dims)
	if err != nil {
		return fmt.Errorf("open vector store failed: %w", err)
	}
	defer store.Close()

	source, err := docsource.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open document source failed: %w", err)
	}

	split, err := splitter.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	if err != nil {
		return err
	}

	catalog, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer catalog.close()

	opts := []app.IngestOption{}
	if catalog.recorder != nil {
		opts = append(opts, app.WithRecorder(catalog.recorder))
	}
	svc := app.NewIngestService(source, store, embedder, split, cfg.Embedding.BatchSize, opts...)

	report, err := svc.Run(ctx)
	if report != nil {
		printReport(cmd, cfg, report)
	}
	if err != nil {
		return err
	}
	catalog.finish(ctx, report)
	return nil
}

// catalog records ingested documents either as queue events or as direct rows.
// complete runs after a successful ingestion and retires rows from older runs.
type catalog struct {
	recorder app.Recorder
	complete func(ctx context.Context, report *app.IngestReport) error
	closers  []func()
}

func openCatalog(ctx context.Context, cfg *config.Config) (*catalog, error) {
	c := &catalog{}
	switch {
	case cfg.RabbitMQ.Enabled:
		conn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.IngestEventQueue)
		if err != nil {
			return nil, err
		}
		publisher := rabbitmqClient.NewEventPublisher(conn, cfg.RabbitMQ.IngestEventQueue)
		c.recorder = app.RecorderFunc(publisher.Publish)
		c.complete = func(ctx context.Context, r *app.IngestReport) error {
			return publisher.PublishRunCompleted(ctx, model.IngestRunCompletedEvent{
				RunID:             r.RunID,
				DocumentsIngested: r.DocumentsIngested,
				CompletedAt:       r.FinishedAt,
			})
		}
		c.closers = append(c.closers, publisher.Close, func() { _ = conn.Close() })
	case cfg.CatalogEnabled():
		db, err := mysqlClient.New(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, err
		}
		repo := repository.NewDocumentRepository(db)
		c.recorder = app.RecorderFunc(func(ctx context.Context, e model.DocumentIngestedEvent) error {
			row := e.CatalogRow()
			return repo.Upsert(ctx, &row)
		})
		c.complete = func(ctx context.Context, r *app.IngestReport) error {
			return repo.DeleteNotInRun(ctx, r.RunID)
		}
		c.closers = append(c.closers, func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		})
	}
	return c, nil
}

func (c *catalog) finish(ctx context.Context, report *app.IngestReport) {
	if c.complete == nil {
		return
	}
	if err := c.complete(ctx, report); err != nil {
		log.Printf("complete catalog run %s failed: %v", report.RunID, err)
	}
}

func (c *catalog) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func printReport(cmd *cobra.Command, cfg *config.Config, r *app.IngestReport) {
	cmd.Printf("Run %s\n", r.RunID)
	cmd.Printf("Documents found:    %d\n", r.DocumentsSeen)
	cmd.Printf("Documents ingested: %d\n", r.DocumentsIngested)
	cmd.Printf("Chunks written:     %d\n", r.ChunksWritten)
	for _, s := range r.Skipped {
		cmd.Printf("Skipped %s: %s\n", s.FileName, s.Reason)
	}
	if cfg.Store.Kind == config.StoreLocal {
		cmd.Printf("Index stored in %s\n", cfg.Store.PersistDir)
	}
	cmd.Printf("Took %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
}
