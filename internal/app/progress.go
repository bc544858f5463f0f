package app

import (
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/vk/gofsrs/internal/experiment"
	"github.com/vk/gofsrs/internal/status"
)

// runProgress renders a terminal progress bar and mirrors the step counter
// into the status server snapshot.
type runProgress struct {
	outW   io.Writer
	server *status.Server
	bar    *progressbar.ProgressBar
}

// newRunProgress creates a progress sink for one experiment run. server may
// be nil when the status server is disabled.
func newRunProgress(outW io.Writer, server *status.Server) experiment.Progress {
	return &runProgress{outW: outW, server: server}
}

// Start implements experiment.Progress. A total of -1 renders a spinner.
func (p *runProgress) Start(description string, total int) {
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.outW),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	if p.server != nil {
		p.server.UpdateSnapshot(func(s *status.Snapshot) {
			s.Step = 0
			s.Total = total
		})
	}
}

// Step implements experiment.Progress.
func (p *runProgress) Step() {
	if p.bar != nil {
		p.bar.Add(1)
	}
	if p.server != nil {
		p.server.UpdateSnapshot(func(s *status.Snapshot) { s.Step++ })
	}
}

// Finish implements experiment.Progress.
func (p *runProgress) Finish() {
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}
