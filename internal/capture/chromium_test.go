package capture

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	if o.Width != DefaultWidth || o.Height != DefaultHeight || o.Timeout != DefaultTimeoutSec*time.Second {
		t.Errorf("defaults = %+v", o)
	}
	o = Options{Width: 800, Timeout: time.Second}.withDefaults()
	if o.Width != 800 || o.Height != DefaultHeight || o.Timeout != time.Second {
		t.Errorf("explicit values overwritten: %+v", o)
	}
}

func TestRenderRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	out := filepath.Join(t.TempDir(), "grid.pdf")

	if err := PrintPDF(ctx, nil, out, Options{}); err == nil || !strings.Contains(err.Error(), "empty") {
		t.Errorf("empty document err = %v", err)
	}
	if err := CapturePNG(ctx, []byte("<html></html>"), "", Options{}); err == nil || !strings.Contains(err.Error(), "output path") {
		t.Errorf("missing output err = %v", err)
	}
}

func TestWriteOutputRejectsEmpty(t *testing.T) {
	if err := writeOutput(filepath.Join(t.TempDir(), "x.png"), nil, "png"); err == nil {
		t.Errorf("empty payload should fail")
	}
}
