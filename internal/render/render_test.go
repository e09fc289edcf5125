package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// fakeExecutor records invocations and fabricates the output files a real
// renderer would produce.
type fakeExecutor struct {
	mu    sync.Mutex
	calls [][]string
	err   error

	stdout    []string
	makeFiles func(binary string, args []string)
}

func (f *fakeExecutor) Run(_ context.Context, binary string, args []string, onStdout func(string)) error {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{binary}, args...))
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.makeFiles != nil {
		f.makeFiles(binary, args)
	}
	if onStdout != nil {
		for _, line := range f.stdout {
			onStdout(line)
		}
	}
	return nil
}

// touchRenderOutputs fabricates PNG files for the output prefix found in the
// argument list (the final argument).
func touchRenderOutputs(t *testing.T, pages int) func(string, []string) {
	t.Helper()
	return func(_ string, args []string) {
		prefix := args[len(args)-1]
		for i := 1; i <= pages; i++ {
			path := prefix + "-" + string(rune('0'+i)) + ".png"
			if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
				t.Fatalf("fabricate output: %v", err)
			}
		}
	}
}

func TestRenderPages(t *testing.T) {
	dir := t.TempDir()
	executor := &fakeExecutor{makeFiles: touchRenderOutputs(t, 3)}
	converter, err := New("pdftoppm", "", "", WithExecutor(executor))
	if err != nil {
		t.Fatalf("new converter: %v", err)
	}

	paths, err := converter.RenderPages(context.Background(), "in.pdf", dir, "page", 1, 0, 150)
	if err != nil {
		t.Fatalf("render pages: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("got %d pages, want 3", len(paths))
	}
	for i := 1; i < len(paths); i++ {
		if paths[i-1] >= paths[i] {
			t.Fatalf("pages out of order: %v", paths)
		}
	}

	call := executor.calls[0]
	joined := strings.Join(call, " ")
	if !strings.Contains(joined, "-r 150") || !strings.Contains(joined, "-f 1") {
		t.Fatalf("unexpected renderer invocation: %v", call)
	}
}

func TestRenderPagesNoOutput(t *testing.T) {
	executor := &fakeExecutor{}
	converter, _ := New("pdftoppm", "", "", WithExecutor(executor))

	if _, err := converter.RenderPages(context.Background(), "in.pdf", t.TempDir(), "page", 1, 1, 150); err == nil {
		t.Fatal("expected error when the renderer produces nothing")
	}
}

func TestRenderRegionPassesCrop(t *testing.T) {
	dir := t.TempDir()
	executor := &fakeExecutor{makeFiles: touchRenderOutputs(t, 1)}
	converter, _ := New("pdftoppm", "", "", WithExecutor(executor))

	path, err := converter.RenderRegion(context.Background(), "in.pdf", dir, "title", 1, 150, Region{X: 10, Y: 20, Width: 300, Height: 80})
	if err != nil {
		t.Fatalf("render region: %v", err)
	}
	if path == "" {
		t.Fatal("expected a rendered region path")
	}

	joined := strings.Join(executor.calls[0], " ")
	for _, flag := range []string{"-x 10", "-y 20", "-W 300", "-H 80"} {
		if !strings.Contains(joined, flag) {
			t.Fatalf("missing crop flag %q in %s", flag, joined)
		}
	}
}

func TestRenderAlternateTheme(t *testing.T) {
	dir := t.TempDir()
	executor := &fakeExecutor{makeFiles: func(binary string, args []string) {
		if binary == "pdf-darken" {
			// The rewrite step produces the dark PDF.
			if err := os.WriteFile(args[1], []byte("pdf"), 0o644); err != nil {
				panic(err)
			}
			return
		}
		prefix := args[len(args)-1]
		for _, suffix := range []string{"-1.png", "-2.png"} {
			if err := os.WriteFile(prefix+suffix, []byte("png"), 0o644); err != nil {
				panic(err)
			}
		}
	}}
	converter, _ := New("pdftoppm", "pdf-darken", "", WithExecutor(executor))

	paths, err := converter.RenderAlternateTheme(context.Background(), "in.pdf", dir, 150)
	if err != nil {
		t.Fatalf("render alternate theme: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("got %d dark pages, want 2", len(paths))
	}

	// The intermediate dark PDF is cleaned up.
	if _, err := os.Stat(filepath.Join(dir, "dark.pdf")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("intermediate dark.pdf should be removed")
	}
}

func TestRenderAlternateThemeUnconfigured(t *testing.T) {
	converter, _ := New("pdftoppm", "", "", WithExecutor(&fakeExecutor{}))
	if converter.AltThemeEnabled() {
		t.Fatal("alt theme should be disabled")
	}
	if _, err := converter.RenderAlternateTheme(context.Background(), "in.pdf", t.TempDir(), 150); !errors.Is(err, ErrAltThemeUnavailable) {
		t.Fatalf("err = %v, want ErrAltThemeUnavailable", err)
	}
}

func TestExtractText(t *testing.T) {
	executor := &fakeExecutor{stdout: []string{"  Quarterly Report ", ""}}
	converter, _ := New("pdftoppm", "", "tesseract", WithExecutor(executor))

	text, err := converter.ExtractText(context.Background(), "title.png")
	if err != nil {
		t.Fatalf("extract text: %v", err)
	}
	if text != "Quarterly Report" {
		t.Fatalf("text = %q, want trimmed OCR output", text)
	}

	call := executor.calls[0]
	if call[0] != "tesseract" || call[2] != "stdout" {
		t.Fatalf("unexpected OCR invocation: %v", call)
	}
}

func TestNewRequiresRenderBinary(t *testing.T) {
	if _, err := New("", "", ""); err == nil {
		t.Fatal("expected error for missing render binary")
	}
}
