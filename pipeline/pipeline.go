package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"photoindex/cache"
	"photoindex/config"
	"photoindex/embed"
	"photoindex/fingerprint"
	"photoindex/logging"
	"photoindex/metadata"
	"photoindex/ocr"
	"photoindex/search"
	"photoindex/signalhandler"
	"photoindex/types"

	"github.com/google/uuid"
)

// Optimizer rewrites a raw image into its processed form.
type Optimizer interface {
	Optimize(srcPath, dstPath string) error
}

// Describer extracts the metadata record for a processed image.
type Describer interface {
	Describe(path string) (types.ImageRecord, error)
}

// Deps are the long-lived collaborators a pipeline is wired from.
// Construction and cache loading happen once at startup; teardown
// flushes explicitly.
type Deps struct {
	Config     *config.Config
	Store      *metadata.Store
	OCRCache   *cache.Cache[string]
	EmbedCache *cache.Cache[[]float32]
	Index      *search.Index
	Optimizer  Optimizer
	Describer  Describer
	Extractor  ocr.Extractor
	Embedder   embed.Embedder
}

// Pipeline orchestrates ingestion: fingerprint, dedup, optimize, then
// metadata extraction, OCR and embedding generation through the result
// caches.
type Pipeline struct {
	cfg        *config.Config
	ledger     *fingerprint.Ledger
	store      *metadata.Store
	ocrCache   *cache.Cache[string]
	embedCache *cache.Cache[[]float32]
	index      *search.Index
	optimizer  Optimizer
	describer  Describer
	extractor  ocr.Extractor
	embedder   embed.Embedder
}

// New assembles a pipeline around a fresh ledger.
func New(d Deps) *Pipeline {
	return &Pipeline{
		cfg:        d.Config,
		ledger:     fingerprint.NewLedger(),
		store:      d.Store,
		ocrCache:   d.OCRCache,
		embedCache: d.EmbedCache,
		index:      d.Index,
		optimizer:  d.Optimizer,
		describer:  d.Describer,
		extractor:  d.Extractor,
		embedder:   d.Embedder,
	}
}

// Ledger exposes the ingestion ledger for statistics reporting.
func (p *Pipeline) Ledger() *fingerprint.Ledger { return p.ledger }

// ingestResult holds the outcome of processing one source file.
type ingestResult struct {
	Identity  string
	Accepted  bool
	Duplicate bool
	Err       error
}

// Ingest processes every allowed image file in sourceDir: read bytes,
// fingerprint, dedup against the ledger, and optimize accepted images
// into the processed directory under their original filename. The
// source directory is never mutated. A missing source directory fails
// the whole call; individual bad files are recorded and skipped.
func (p *Pipeline) Ingest(sourceDir string) (*types.IngestReport, error) {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return nil, &types.PreconditionError{Op: "ingest", Path: sourceDir, Err: err}
	}
	if !info.IsDir() {
		return nil, &types.PreconditionError{Op: "ingest", Path: sourceDir, Err: fmt.Errorf("not a directory")}
	}

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, &types.PreconditionError{Op: "ingest", Path: sourceDir, Err: err}
	}

	if err := os.MkdirAll(p.cfg.ProcessedImageDir, 0755); err != nil {
		return nil, &types.PreconditionError{Op: "ingest", Path: p.cfg.ProcessedImageDir, Err: err}
	}

	var candidates []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if p.cfg.AllowedExt(filepath.Ext(entry.Name())) {
			candidates = append(candidates, entry.Name())
		}
	}

	report := &types.IngestReport{RunID: uuid.NewString()}
	logging.LogInfo("Ingest run %s: %d candidate files in %s", report.RunID, len(candidates), sourceDir)

	workers := p.cfg.MaxWorkers
	if workers <= 0 {
		workers = signalhandler.GetOptimalProcs()
	}

	var wg sync.WaitGroup
	resultsChan := make(chan ingestResult, len(candidates))
	semaphore := make(chan struct{}, workers)

	tracker := newProgressTracker(len(candidates))
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for result := range resultsChan {
			tracker.record(result)
			switch {
			case result.Err != nil:
				report.Failed = append(report.Failed, types.ItemFailure{
					Identity: result.Identity,
					Reason:   result.Err.Error(),
				})
				logging.LogImageProcessed(result.Identity, false, result.Err.Error())
			case result.Duplicate:
				report.Duplicates++
				logging.DebugLog("Duplicate rejected: %s", result.Identity)
			default:
				report.Accepted++
				logging.LogImageProcessed(result.Identity, true, "")
			}
		}
	}()

	for _, name := range candidates {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(name string) {
			defer wg.Done()
			defer func() { <-semaphore }()
			resultsChan <- p.ingestOne(sourceDir, name)
		}(name)
	}

	wg.Wait()
	close(resultsChan)
	<-collectorDone
	tracker.stop()

	return report, nil
}

// ingestOne handles a single source file. The ledger's Accept is the
// only serialized step; everything else runs concurrently per file.
func (p *Pipeline) ingestOne(sourceDir, name string) ingestResult {
	result := ingestResult{Identity: name}

	path := filepath.Join(sourceDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		result.Err = &types.ItemError{Identity: name, Err: fmt.Errorf("cannot read file: %v", err)}
		return result
	}

	fp := fingerprint.SumBytes(data)
	if !p.ledger.Accept(fp, name) {
		result.Duplicate = true
		return result
	}

	dst := filepath.Join(p.cfg.ProcessedImageDir, name)
	if err := p.optimizer.Optimize(path, dst); err != nil {
		result.Err = &types.ItemError{Identity: name, Err: err}
		return result
	}

	result.Accepted = true
	return result
}

// Enrich runs the downstream stages over every image in the processed
// directory: describe into the metadata store, OCR through the OCR
// cache, and embedding generation through the embedding cache. Both
// caches are flushed once at the end and the similarity index is
// rebuilt from the embedding cache. Cached identities are not
// recomputed; per-item failures skip the item.
func (p *Pipeline) Enrich(ctx context.Context) (*types.EnrichReport, error) {
	dir := p.cfg.ProcessedImageDir
	if _, err := os.Stat(dir); err != nil {
		return nil, &types.PreconditionError{Op: "enrich", Path: dir, Err: err}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &types.PreconditionError{Op: "enrich", Path: dir, Err: err}
	}

	report := &types.EnrichReport{}
	fail := func(identity string, err error) {
		report.Failed = append(report.Failed, types.ItemFailure{Identity: identity, Reason: err.Error()})
		logging.LogImageProcessed(identity, false, err.Error())
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() || !p.cfg.AllowedExt(filepath.Ext(entry.Name())) {
			continue
		}
		// Cancellation is only honored between items; per-item work is
		// never abandoned mid-flight.
		if err := ctx.Err(); err != nil {
			p.flushCaches()
			return report, err
		}

		name := entry.Name()
		path := filepath.Join(dir, name)

		rec, err := p.describer.Describe(path)
		if err != nil {
			fail(name, err)
			continue
		}
		if err := p.store.Upsert(rec); err != nil {
			fail(name, err)
			continue
		}
		report.Described++

		text, err := p.ocrCache.GetOrCompute(name, func() (string, error) {
			return p.extractor.ExtractText(ctx, path)
		})
		if err != nil {
			fail(name, err)
			continue
		}
		report.Texts++

		_, err = p.embedCache.GetOrCompute(name, func() ([]float32, error) {
			return p.embedder.Embed(ctx, text)
		})
		if err != nil {
			fail(name, err)
			continue
		}
		report.Embedded++
	}

	p.flushCaches()
	p.index.Rebuild(p.embedCache.Snapshot())

	return report, nil
}

// Run executes the full pipeline: ingestion followed by enrichment.
func (p *Pipeline) Run(ctx context.Context, sourceDir string) (*types.IngestReport, *types.EnrichReport, error) {
	ingestReport, err := p.Ingest(sourceDir)
	if err != nil {
		return nil, nil, err
	}

	enrichReport, err := p.Enrich(ctx)
	if err != nil {
		return ingestReport, enrichReport, err
	}
	return ingestReport, enrichReport, nil
}

// FlushCaches persists both result caches. Failures are logged, not
// fatal: in-memory state stays correct for a later retry.
func (p *Pipeline) FlushCaches() {
	p.flushCaches()
}

func (p *Pipeline) flushCaches() {
	if err := p.ocrCache.Flush(); err != nil {
		logging.LogError("OCR cache flush failed: %v", err)
	}
	if err := p.embedCache.Flush(); err != nil {
		logging.LogError("Embedding cache flush failed: %v", err)
	}
}
