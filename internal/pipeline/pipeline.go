// Package pipeline turns uploaded documents into viewable artifacts. The
// fast stage (thumbnail plus first page) runs before the uploader's response
// is produced; metadata extraction and alternate-theme rendering run
// afterwards as independent background stages joined by a one-shot cleanup
// barrier that deletes the source file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"corkboard/internal/fileutil"
	"corkboard/internal/logging"
	"corkboard/internal/realtime"
	"corkboard/internal/render"
	"corkboard/internal/store"
)

// Converter is the external rendering surface the pipeline calls.
type Converter interface {
	RenderPages(ctx context.Context, documentPath, outDir, prefix string, firstPage, lastPage, dpi int) ([]string, error)
	RenderRegion(ctx context.Context, documentPath, outDir, prefix string, page, dpi int, region render.Region) (string, error)
	RenderAlternateTheme(ctx context.Context, documentPath, outDir string, dpi int) ([]string, error)
	ExtractText(ctx context.Context, imagePath string) (string, error)
	AltThemeEnabled() bool
	OCREnabled() bool
}

// Broadcaster relays stage events to connected devices.
type Broadcaster interface {
	Broadcast(eventType realtime.EventType, data any, scope realtime.Scope) realtime.Result
}

// DocumentStore is the persistence surface the stages write through.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (*store.Document, error)
	SetMetadataResult(ctx context.Context, id string, status store.StageStatus, ocrTitle string) error
	SetDarkModeResult(ctx context.Context, id string, status store.StageStatus, darkPaths []string) error
}

// Options configures pipeline construction.
type Options struct {
	RenderDir    string
	RenderDPI    int
	ThumbnailDPI int
	StageTimeout time.Duration
	// TitleRegion is the pixel rectangle of page one inspected for a title.
	TitleRegion render.Region
}

// FastResult is what the uploader's response carries.
type FastResult struct {
	ThumbnailPath string
	PagePaths     []string
}

// Pipeline coordinates processing jobs.
type Pipeline struct {
	docs      DocumentStore
	converter Converter
	events    Broadcaster
	opts      Options
	logger    *slog.Logger

	wg sync.WaitGroup
}

// New builds the pipeline.
func New(docs DocumentStore, converter Converter, events Broadcaster, opts Options, logger *slog.Logger) *Pipeline {
	if opts.RenderDPI <= 0 {
		opts.RenderDPI = 150
	}
	if opts.ThumbnailDPI <= 0 {
		opts.ThumbnailDPI = 40
	}
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = 2 * time.Minute
	}
	if opts.TitleRegion == (render.Region{}) {
		// Top strip of the first page at render DPI.
		opts.TitleRegion = render.Region{X: 0, Y: 0, Width: 1300, Height: 220}
	}
	return &Pipeline{
		docs:      docs,
		converter: converter,
		events:    events,
		opts:      opts,
		logger:    logging.WithComponent(logger, "pipeline"),
	}
}

// Submit runs the fast stage synchronously and schedules the background
// stages. A fast-stage failure is fatal to the upload; background stage
// failures are logged and recorded but never surfaced to the uploader.
func (p *Pipeline) Submit(ctx context.Context, doc *store.Document) (*FastResult, error) {
	if doc == nil || doc.ID == "" {
		return nil, errors.New("document required")
	}
	if doc.SourcePath == "" {
		return nil, errors.New("document source path required")
	}

	outDir := filepath.Join(p.opts.RenderDir, doc.ID)
	track := newTracker()

	if isRasterImage(doc.ContentType) {
		result, err := p.fastStageImage(doc, outDir)
		if err != nil {
			return nil, err
		}
		// Neither background stage applies to an already-rasterized image;
		// the join barrier fires immediately and cleanup happens before the
		// caller's response is even produced.
		p.finishMetadata(ctx, doc, track, store.StageSkipped, "")
		p.finishDarkMode(ctx, doc, track, store.StageSkipped, nil)
		return result, nil
	}

	result, err := p.fastStagePDF(ctx, doc, outDir)
	if err != nil {
		return nil, err
	}

	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		p.runMetadataStage(doc, track, outDir)
	}()
	go func() {
		defer p.wg.Done()
		p.runDarkModeStage(doc, track, outDir)
	}()

	return result, nil
}

// Wait blocks until all in-flight background stages finish. Used on
// shutdown so the join barriers are never starved.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) fastStagePDF(ctx context.Context, doc *store.Document, outDir string) (*FastResult, error) {
	thumbs, err := p.converter.RenderPages(ctx, doc.SourcePath, outDir, "thumb", 1, 1, p.opts.ThumbnailDPI)
	if err != nil {
		return nil, fmt.Errorf("thumbnail render: %w", err)
	}
	pages, err := p.converter.RenderPages(ctx, doc.SourcePath, outDir, "page", 0, 0, p.opts.RenderDPI)
	if err != nil {
		return nil, fmt.Errorf("page render: %w", err)
	}
	return &FastResult{ThumbnailPath: thumbs[0], PagePaths: pages}, nil
}

// fastStageImage copies the raster source into the render directory so the
// artifact survives source cleanup.
func (p *Pipeline) fastStageImage(doc *store.Document, outDir string) (*FastResult, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}
	target := filepath.Join(outDir, "page-1"+filepath.Ext(doc.SourcePath))
	if err := fileutil.CopyFile(doc.SourcePath, target); err != nil {
		return nil, fmt.Errorf("stage image: %w", err)
	}
	return &FastResult{ThumbnailPath: target, PagePaths: []string{target}}, nil
}

// runMetadataStage extracts a title from the top of page one. Any failure
// is recorded as a failed stage; the sibling stage and the cleanup barrier
// are unaffected.
func (p *Pipeline) runMetadataStage(doc *store.Document, track *tracker, outDir string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.opts.StageTimeout)
	defer cancel()

	if !p.converter.OCREnabled() {
		p.finishMetadata(ctx, doc, track, store.StageSkipped, "")
		return
	}

	regionPath, err := p.converter.RenderRegion(ctx, doc.SourcePath, outDir, "title", 1, p.opts.RenderDPI, p.opts.TitleRegion)
	if err != nil {
		p.logger.Error("title region render failed",
			logging.String("document_id", doc.ID),
			logging.Error(err))
		p.finishMetadata(ctx, doc, track, store.StageFailed, "")
		return
	}

	text, err := p.converter.ExtractText(ctx, regionPath)
	if err != nil {
		p.logger.Error("text extraction failed",
			logging.String("document_id", doc.ID),
			logging.Error(err))
		p.finishMetadata(ctx, doc, track, store.StageFailed, "")
		return
	}

	p.finishMetadata(ctx, doc, track, store.StageDone, NormalizeTitle(text))
}

// runDarkModeStage produces the alternate-theme page renders.
func (p *Pipeline) runDarkModeStage(doc *store.Document, track *tracker, outDir string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.opts.StageTimeout)
	defer cancel()

	if !p.converter.AltThemeEnabled() {
		p.finishDarkMode(ctx, doc, track, store.StageSkipped, nil)
		return
	}

	paths, err := p.converter.RenderAlternateTheme(ctx, doc.SourcePath, outDir, p.opts.RenderDPI)
	if err != nil {
		p.logger.Error("alternate-theme render failed",
			logging.String("document_id", doc.ID),
			logging.Error(err))
		p.finishDarkMode(ctx, doc, track, store.StageFailed, nil)
		return
	}

	p.finishDarkMode(ctx, doc, track, store.StageDone, paths)
}

func (p *Pipeline) finishMetadata(ctx context.Context, doc *store.Document, track *tracker, status store.StageStatus, title string) {
	if err := p.docs.SetMetadataResult(ctx, doc.ID, status, title); err != nil {
		p.logger.Error("metadata result persist failed",
			logging.String("document_id", doc.ID),
			logging.Error(err))
	}
	if status == store.StageDone {
		p.broadcastStage(ctx, doc.ID, realtime.EventArtifactMetadata, map[string]any{
			"id":       doc.ID,
			"ocrTitle": title,
		})
	}
	if track.setMetadata(status) {
		p.cleanup(doc)
	}
}

func (p *Pipeline) finishDarkMode(ctx context.Context, doc *store.Document, track *tracker, status store.StageStatus, paths []string) {
	if err := p.docs.SetDarkModeResult(ctx, doc.ID, status, paths); err != nil {
		p.logger.Error("dark mode result persist failed",
			logging.String("document_id", doc.ID),
			logging.Error(err))
	}
	if status == store.StageDone {
		p.broadcastStage(ctx, doc.ID, realtime.EventArtifactAltTheme, map[string]any{
			"id":    doc.ID,
			"pages": len(paths),
		})
	}
	if track.setDarkMode(status) {
		p.cleanup(doc)
	}
}

// broadcastStage relays a stage completion, scoped to everyone when the
// artifact is already visible on the shared board and to the edit-lock
// holder alone while it is still staged. Deleted documents broadcast
// nothing.
func (p *Pipeline) broadcastStage(ctx context.Context, documentID string, eventType realtime.EventType, data map[string]any) {
	if p.events == nil {
		return
	}
	current, err := p.docs.GetDocument(ctx, documentID)
	if err != nil {
		p.logger.Error("scope lookup failed",
			logging.String("document_id", documentID),
			logging.Error(err))
		return
	}
	if current == nil {
		return
	}
	scope := realtime.ScopeAll
	if current.Pending {
		scope = realtime.ScopeEditLockHolder
	}
	p.events.Broadcast(eventType, data, scope)
}

// cleanup deletes the processed source file. The tracker guarantees this
// runs exactly once per job.
func (p *Pipeline) cleanup(doc *store.Document) {
	if err := os.Remove(doc.SourcePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Error("source cleanup failed",
			logging.String("document_id", doc.ID),
			logging.Error(err))
		return
	}
	p.logger.Debug("source cleaned up", logging.String("document_id", doc.ID))
}

func isRasterImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}
