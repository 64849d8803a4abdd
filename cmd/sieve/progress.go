package main

import (
	"io"

	"github.com/schollz/progressbar/v2"
)

// barProgress renders engine progress as a terminal progress bar
type barProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func newBarProgress(out io.Writer) *barProgress {
	return &barProgress{out: out}
}

func (p *barProgress) Start(label string, total int) {
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (p *barProgress) Step() {
	if p.bar != nil {
		p.bar.Add(1)
	}
}

func (p *barProgress) Finish() {
	if p.bar == nil {
		return
	}
	p.bar.Finish()
	io.WriteString(p.out, "\n")
	p.bar = nil
}
