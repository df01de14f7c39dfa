package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"photoindex/cache"
	"photoindex/config"
	"photoindex/embed"
	"photoindex/imageprocessor"
	"photoindex/logging"
	"photoindex/metadata"
	"photoindex/ocr"
	"photoindex/pipeline"
	"photoindex/search"
	"photoindex/signalhandler"
	"photoindex/types"

	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagDebug   bool
	flagLogfile string
)

// app bundles the long-lived components. Construction and cache loading
// happen once at startup; Close flushes and tears down explicitly.
type app struct {
	cfg        *config.Config
	store      *metadata.Store
	ocrCache   *cache.Cache[string]
	embedCache *cache.Cache[[]float32]
	index      *search.Index
	engine     *search.Engine
	pipe       *pipeline.Pipeline
	describer  *imageprocessor.Describer
}

func newApp(cfg *config.Config) (*app, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	store, err := metadata.Open(cfg.MetadataDBPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open metadata store: %v", err)
	}

	ocrCache := cache.New[string](cfg.OCRPath)
	embedCache := cache.New[[]float32](cfg.EmbeddingPath)

	index := search.NewIndex()
	index.Rebuild(embedCache.Snapshot())

	embedder := embed.NewHashingEmbedder(cfg.EmbeddingDims)
	describer := imageprocessor.NewDescriber()

	a := &app{
		cfg:        cfg,
		store:      store,
		ocrCache:   ocrCache,
		embedCache: embedCache,
		index:      index,
		engine:     search.NewEngine(index, store, embedder),
		describer:  describer,
	}
	a.pipe = pipeline.New(pipeline.Deps{
		Config:     cfg,
		Store:      store,
		OCRCache:   ocrCache,
		EmbedCache: embedCache,
		Index:      index,
		Optimizer:  imageprocessor.NewOptimizer(cfg.MaxWidth, cfg.MaxHeight, cfg.JPEGQuality),
		Describer:  describer,
		Extractor:  ocr.NewTesseract(cfg.TesseractPath, cfg.OCRLanguages),
		Embedder:   embedder,
	})

	signalhandler.SetupHandler(a.pipe.FlushCaches)
	return a, nil
}

func (a *app) Close() {
	a.describer.Close()
	if err := a.store.Close(); err != nil {
		logging.LogError("cannot close metadata store: %v", err)
	}
	logging.CloseLogger()
}

func loadConfig() (*config.Config, error) {
	path := flagConfig
	if path == "" {
		path = "photoindex.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if flagDebug {
		logPath := flagLogfile
		if logPath == "" {
			logPath = "photoindex.log"
		}
		if err := logging.SetupLogger(logPath); err != nil {
			fmt.Printf("Warning: Failed to setup logging: %v\n", err)
		} else {
			fmt.Printf("Debug mode enabled. Logging to: %s\n", logPath)
		}
	}
	return cfg, nil
}

func printIngestSummary(report *types.IngestReport) {
	fmt.Printf("\nIngestion summary (run %s):\n", report.RunID)
	fmt.Printf("- Images accepted: %d\n", report.Accepted)
	fmt.Printf("- Duplicates found: %d\n", report.Duplicates)
	fmt.Printf("- Failures: %d\n", len(report.Failed))
	for _, f := range report.Failed {
		fmt.Printf("  [failed] %s: %s\n", f.Identity, f.Reason)
	}
}

func newPipelineCmd() *cobra.Command {
	var sourceDir string

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run the full pipeline: ingest, metadata, OCR, embeddings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if sourceDir == "" {
				sourceDir = cfg.RawImageDir
			}

			startTime := time.Now()
			fmt.Println("Starting image indexing...")

			ingestReport, enrichReport, err := a.pipe.Run(cmd.Context(), sourceDir)
			if err != nil {
				if ingestReport != nil {
					printIngestSummary(ingestReport)
				}
				return err
			}

			printIngestSummary(ingestReport)
			fmt.Printf("\nEnrichment summary:\n")
			fmt.Printf("- Records described: %d\n", enrichReport.Described)
			fmt.Printf("- OCR results: %d\n", enrichReport.Texts)
			fmt.Printf("- Embeddings generated: %d\n", enrichReport.Embedded)
			fmt.Printf("- Failures: %d\n", len(enrichReport.Failed))

			fmt.Printf("\nOutput files:\n")
			fmt.Printf("- Metadata: %s\n", cfg.MetadataDBPath)
			fmt.Printf("- Embeddings: %s\n", cfg.EmbeddingPath)
			fmt.Printf("- OCR: %s\n", cfg.OCRPath)
			fmt.Printf("\nTotal execution time: %v\n", time.Since(startTime).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceDir, "source", "", "source directory of raw images (default: configured raw dir)")
	return cmd
}

func newIngestCmd() *cobra.Command {
	var sourceDir string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest raw images only: fingerprint, dedup, optimize",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if sourceDir == "" {
				sourceDir = cfg.RawImageDir
			}

			report, err := a.pipe.Ingest(sourceDir)
			if err != nil {
				return err
			}
			printIngestSummary(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceDir, "source", "", "source directory of raw images (default: configured raw dir)")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var (
		text      string
		topK      int
		minWidth  int
		minHeight int
		format    string
		rawFilter []string
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search indexed images by text and/or metadata filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			filters := make(map[string]interface{})
			if minWidth > 0 {
				filters["min_width"] = minWidth
			}
			if minHeight > 0 {
				filters["min_height"] = minHeight
			}
			if format != "" {
				filters["format"] = format
			}
			for _, kv := range rawFilter {
				parts := strings.SplitN(kv, "=", 2)
				if len(parts) != 2 {
					return fmt.Errorf("invalid --filter %q, expected key=value", kv)
				}
				filters[parts[0]] = parts[1]
			}

			if text == "" && len(filters) == 0 {
				return fmt.Errorf("nothing to search: supply --text and/or filters")
			}

			results, err := a.engine.SearchCombined(context.Background(), text, filters, topK)
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Println("No matches found.")
				return nil
			}
			for i, r := range results {
				fmt.Printf("%d. %s (score: %.4f, source: %s)\n", i+1, r.Identity, r.Score, r.Source)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "free-text query scored by embedding similarity")
	cmd.Flags().IntVar(&topK, "top-k", 10, "maximum number of results")
	cmd.Flags().IntVar(&minWidth, "min-width", 0, "minimum pixel width")
	cmd.Flags().IntVar(&minHeight, "min-height", 0, "minimum pixel height")
	cmd.Flags().StringVar(&format, "format", "", "image format, case-insensitive (e.g. JPEG)")
	cmd.Flags().StringArrayVar(&rawFilter, "filter", nil, "extra key=value exact-match filter (repeatable)")
	return cmd
}

func newRecordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record IDENTITY",
		Short: "Show the full metadata record for one image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, found, err := a.engine.GetRecord(args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no record for %s", args[0])
			}

			data, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			count, err := a.store.Count()
			if err != nil {
				return err
			}

			fmt.Printf("Metadata records: %d\n", count)
			fmt.Printf("OCR cache entries: %d\n", a.ocrCache.Len())
			fmt.Printf("Embedding cache entries: %d\n", a.embedCache.Len())
			fmt.Printf("Indexed vectors: %d\n", a.index.Len())
			return nil
		},
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "photoindex",
		Short:         "Content-addressed image indexing and retrieval",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config (default: photoindex.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogfile, "logfile", "", "debug log file path (default: photoindex.log)")

	rootCmd.AddCommand(
		newPipelineCmd(),
		newIngestCmd(),
		newSearchCmd(),
		newRecordCmd(),
		newStatsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
