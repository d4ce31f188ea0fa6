package main

import (
	"fmt"
	"io"

	"ffmerge/models"

	"github.com/schollz/progressbar/v3"
)

// progressBar renders merge progress updates as a terminal bar.
type progressBar struct {
	bar *progressbar.ProgressBar
	w   io.Writer
}

func newProgressBar(w io.Writer, total int) *progressBar {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(describe(models.ProgressStatePlanning, 0)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &progressBar{bar: bar, w: w}
}

// Update is a models.ProgressCallback.
func (p *progressBar) Update(mp models.MergeProgress) {
	p.bar.Describe(describe(mp.State, mp.Failed))
	_ = p.bar.Set(mp.Completed)
}

func (p *progressBar) Close() {
	_ = p.bar.Exit()
	fmt.Fprintln(p.w)
}

func describe(state models.ProgressState, failed int) string {
	if failed > 0 {
		return fmt.Sprintf("%-13s (%d failed)", state, failed)
	}
	return fmt.Sprintf("%-13s", state)
}
