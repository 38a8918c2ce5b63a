package components

import (
	"fmt"
	"strings"

	"github.com/kerbaras/adxport/pkg/app/styles"
	"github.com/kerbaras/adxport/pkg/services"
)

// FlowProgress renders the download/import panel for a flow state.
type FlowProgress struct {
	width   int
	maxJobs int
}

func NewFlowProgress(width int) *FlowProgress {
	return &FlowProgress{width: width, maxJobs: 5}
}

func (p *FlowProgress) SetWidth(width int) {
	p.width = width
}

func (p *FlowProgress) View(state services.FlowState) string {
	switch {
	case state.ShowImporting():
		return p.importingView(state)
	case state.ShowDownloading():
		return p.downloadingView(state)
	case state.LastErr != nil:
		return styles.StatusError.Render(fmt.Sprintf("Import failed: %s", state.LastErr))
	}
	return ""
}

func (p *FlowProgress) importingView(state services.FlowState) string {
	if state.Compressing {
		return styles.StatusDownloading.Render("Compressing...")
	}
	noun := "songs"
	if state.ImportingCount == 1 {
		noun = "song"
	}
	return styles.StatusDownloading.Render(fmt.Sprintf("Importing %d %s...", state.ImportingCount, noun))
}

func (p *FlowProgress) downloadingView(state services.FlowState) string {
	var b strings.Builder

	done, total := state.Progress()
	b.WriteString(styles.TitleStyle.Render(fmt.Sprintf("Downloading %d of %d", done, total)))
	b.WriteString("\n")
	b.WriteString(renderProgressBar(done, total, p.width-4))
	b.WriteString("\n")

	shown := 0
	for _, job := range state.Batch.Jobs {
		if job.Status.IsFinished() {
			continue
		}
		if shown == p.maxJobs {
			b.WriteString(styles.MutedStyle.Render("..."))
			b.WriteString("\n")
			break
		}
		shown++
		status := styles.StatusStyle(job.Status).Render(fmt.Sprintf("%-11s %3d%%", job.Status, job.PercentDone))
		b.WriteString(fmt.Sprintf("%s  %s\n", status, truncate(job.Title, p.width-20)))
	}

	if state.Batch.Settled() && state.Batch.HasErrors {
		msg := fmt.Sprintf("%d download(s) failed. i: import the rest • esc: dismiss", state.Batch.Failed)
		b.WriteString(styles.StatusError.Render(msg))
		b.WriteString("\n")
	}

	return b.String()
}

func renderProgressBar(current, total, width int) string {
	if total == 0 || width <= 0 {
		return ""
	}

	filled := int(float64(current) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}

	return styles.ProgressBarStyle.Render(strings.Repeat("█", filled)) +
		styles.ProgressEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// SimpleProgress renders a bare progress bar
func SimpleProgress(current, total, width int) string {
	return renderProgressBar(current, total, width)
}
