// Package render shells out to external converters: a PDF-to-image renderer,
// an alternate-theme PDF rewriter, and an OCR text extractor. Failures here
// are stage failures for the caller, never pipeline failures.
package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrAltThemeUnavailable is returned when no alternate-theme command is
// configured; callers mark the corresponding stage skipped.
var ErrAltThemeUnavailable = errors.New("alternate-theme renderer not configured")

// Region is a pixel rectangle within a rendered page.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Option configures the converter.
type Option func(*Converter)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(executor Executor) Option {
	return func(c *Converter) {
		if executor != nil {
			c.exec = executor
		}
	}
}

// Converter wraps the external rendering and extraction tools.
type Converter struct {
	renderBinary string
	darkCommand  string
	ocrBinary    string
	exec         Executor
}

// New constructs a converter. renderBinary is required; darkCommand and
// ocrBinary may be empty, disabling the stages that need them.
func New(renderBinary, darkCommand, ocrBinary string, opts ...Option) (*Converter, error) {
	renderBinary = strings.TrimSpace(renderBinary)
	if renderBinary == "" {
		return nil, errors.New("pdf render binary required")
	}
	c := &Converter{
		renderBinary: renderBinary,
		darkCommand:  strings.TrimSpace(darkCommand),
		ocrBinary:    strings.TrimSpace(ocrBinary),
		exec:         commandExecutor{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AltThemeEnabled reports whether alternate-theme rendering is configured.
func (c *Converter) AltThemeEnabled() bool { return c.darkCommand != "" }

// OCREnabled reports whether text extraction is configured.
func (c *Converter) OCREnabled() bool { return c.ocrBinary != "" }

// RenderPages rasterizes a page range of a PDF into PNG files under outDir,
// returning the produced paths in page order. lastPage <= 0 renders through
// the end of the document.
func (c *Converter) RenderPages(ctx context.Context, documentPath, outDir, prefix string, firstPage, lastPage, dpi int) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}

	args := []string{"-png", "-r", strconv.Itoa(dpi)}
	if firstPage > 0 {
		args = append(args, "-f", strconv.Itoa(firstPage))
	}
	if lastPage > 0 {
		args = append(args, "-l", strconv.Itoa(lastPage))
	}
	outPrefix := filepath.Join(outDir, prefix)
	args = append(args, documentPath, outPrefix)

	if err := c.exec.Run(ctx, c.renderBinary, args, nil); err != nil {
		return nil, fmt.Errorf("render pages: %w", err)
	}

	paths, err := filepath.Glob(outPrefix + "*.png")
	if err != nil {
		return nil, fmt.Errorf("collect rendered pages: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("render pages: no output produced for %s", documentPath)
	}
	sort.Strings(paths)
	return paths, nil
}

// RenderRegion rasterizes a pixel region of one page, used to isolate the
// title area before text extraction.
func (c *Converter) RenderRegion(ctx context.Context, documentPath, outDir, prefix string, page, dpi int, region Region) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create render dir: %w", err)
	}

	args := []string{
		"-png",
		"-r", strconv.Itoa(dpi),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-x", strconv.Itoa(region.X),
		"-y", strconv.Itoa(region.Y),
		"-W", strconv.Itoa(region.Width),
		"-H", strconv.Itoa(region.Height),
	}
	outPrefix := filepath.Join(outDir, prefix)
	args = append(args, documentPath, outPrefix)

	if err := c.exec.Run(ctx, c.renderBinary, args, nil); err != nil {
		return "", fmt.Errorf("render region: %w", err)
	}

	paths, err := filepath.Glob(outPrefix + "*.png")
	if err != nil || len(paths) == 0 {
		return "", fmt.Errorf("render region: no output produced for %s", documentPath)
	}
	sort.Strings(paths)
	return paths[0], nil
}

// RenderAlternateTheme rewrites the PDF's content streams for dark viewing
// and rasterizes the result. Returns the dark page image paths.
func (c *Converter) RenderAlternateTheme(ctx context.Context, documentPath, outDir string, dpi int) ([]string, error) {
	if c.darkCommand == "" {
		return nil, ErrAltThemeUnavailable
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}

	darkPDF := filepath.Join(outDir, "dark.pdf")
	if err := c.exec.Run(ctx, c.darkCommand, []string{documentPath, darkPDF}, nil); err != nil {
		return nil, fmt.Errorf("alternate-theme rewrite: %w", err)
	}
	defer os.Remove(darkPDF)

	return c.RenderPages(ctx, darkPDF, outDir, "dark-page", 0, 0, dpi)
}

// ExtractText runs OCR over an image and returns the recognized text.
func (c *Converter) ExtractText(ctx context.Context, imagePath string) (string, error) {
	if c.ocrBinary == "" {
		return "", errors.New("ocr binary not configured")
	}

	var lines []string
	// "stdout" makes tesseract write recognized text to standard output.
	args := []string{imagePath, "stdout"}
	if err := c.exec.Run(ctx, c.ocrBinary, args, func(line string) {
		lines = append(lines, line)
	}); err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
