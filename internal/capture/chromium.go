package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	appLog "rsjpcal/internal/log"
)

// A4 landscape, the page size the grid document is laid out for.
const (
	DefaultPaperWidthIn  = 11.69
	DefaultPaperHeightIn = 8.27
	DefaultWidth         = 1600
	DefaultHeight        = 1131
	DefaultTimeoutSec    = 30
)

// Options controls a headless Chromium render.
type Options struct {
	// Width and Height are the viewport in pixels for PNG previews.
	Width  int
	Height int

	// Timeout bounds the whole render. Zero means DefaultTimeoutSec.
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return o
}

// PrintPDF loads the self-contained HTML document in headless Chromium and
// writes it to outPath as an A4 landscape PDF, one month per page.
func PrintPDF(parentCtx context.Context, html []byte, outPath string, opts Options) error {
	var pdf []byte
	printAction := chromedp.ActionFunc(func(ctx context.Context) error {
		buf, _, err := page.PrintToPDF().
			WithPrintBackground(true).
			WithLandscape(true).
			WithPaperWidth(DefaultPaperWidthIn).
			WithPaperHeight(DefaultPaperHeightIn).
			WithPreferCSSPageSize(true).
			Do(ctx)
		if err != nil {
			return err
		}
		pdf = buf
		return nil
	})

	if err := render(parentCtx, html, outPath, opts, printAction); err != nil {
		return err
	}
	return writeOutput(outPath, pdf, "pdf")
}

// CapturePNG renders the HTML document and writes a full-page screenshot.
func CapturePNG(parentCtx context.Context, html []byte, outPath string, opts Options) error {
	opts = opts.withDefaults()

	var png []byte
	if err := render(parentCtx, html, outPath, opts,
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.FullScreenshot(&png, 100),
	); err != nil {
		return err
	}
	return writeOutput(outPath, png, "png")
}

// render serves html from a temp file, waits for the document's
// data-ready marker and runs actions.
func render(parentCtx context.Context, html []byte, outPath string, opts Options, actions ...chromedp.Action) error {
	if len(html) == 0 {
		return errors.New("capture: document is empty")
	}
	if outPath == "" {
		return errors.New("capture: output path is required")
	}
	opts = opts.withDefaults()

	dir, err := os.MkdirTemp("", "rsjpcal-render-")
	if err != nil {
		return fmt.Errorf("capture: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	docPath := filepath.Join(dir, "grid.html")
	if err := os.WriteFile(docPath, html, 0o600); err != nil {
		return fmt.Errorf("capture: write document: %w", err)
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	tasks := chromedp.Tasks{
		chromedp.Navigate("file://" + filepath.ToSlash(docPath)),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
	}
	tasks = append(tasks, actions...)

	started := time.Now()
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	appLog.Debug("capture rendered", "out", outPath, "took", time.Since(started).String())
	return nil
}

func writeOutput(outPath string, data []byte, kind string) error {
	if len(data) == 0 {
		return fmt.Errorf("capture: chromium returned an empty %s", kind)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write %s: %w", kind, err)
	}
	appLog.Info("capture written", "kind", kind, "out", outPath, "bytes", len(data))
	return nil
}
