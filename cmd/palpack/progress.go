package main

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/flaneur2020/palpack/palpack"
)

var phaseLabels = map[palpack.Phase]string{
	palpack.PhaseCompress:   "Compressing",
	palpack.PhaseWrite:      "Writing",
	palpack.PhaseDecompress: "Decompressing",
	palpack.PhaseExport:     "Exporting",
}

// progressReporter draws one bar per phase on a terminal. A nil reporter
// draws nothing.
type progressReporter struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newProgressReporter(enabled bool, out io.Writer) *progressReporter {
	if !enabled || !isTerminal(out) {
		return nil
	}
	return &progressReporter{}
}

func (p *progressReporter) callback() palpack.ProgressCallback {
	if p == nil {
		return nil
	}
	return p.update
}

func (p *progressReporter) update(phase palpack.Phase, current, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if current == 0 {
		if p.bar != nil {
			p.bar.Finish()
		}
		p.bar = progressbar.Default(int64(total), phaseLabels[phase])
		return
	}
	if p.bar != nil {
		p.bar.Set(current)
	}
}

func (p *progressReporter) finish() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
		os.Stderr.WriteString("\n")
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
