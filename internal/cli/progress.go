package cli

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// BatchProgress renders batch progress as a bar on a terminal.
type BatchProgress struct {
	writer io.Writer
	mu     sync.Mutex
	bar    *progressbar.ProgressBar
}

// NewBatchProgress returns nil when w is not a terminal, so piped output
// stays free of control characters.
func NewBatchProgress(w io.Writer) *BatchProgress {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return &BatchProgress{writer: w}
}

// Update matches reconcile.BatchOptions.Progress. The bar is created on the
// first call, once the total is known.
func (p *BatchProgress) Update(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.writer),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan]Reconciling invoices...[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				_, _ = io.WriteString(p.writer, "\n")
			}),
		)
	}
	if err := p.bar.Set(done); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Func returns the callback to pass to the batch, or nil when there is no bar.
func (p *BatchProgress) Func() func(done, total int) {
	if p == nil {
		return nil
	}
	return p.Update
}
