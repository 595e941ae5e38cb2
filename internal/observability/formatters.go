// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// PrintProgress outputs one progress line
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(stage string, progress int, message string) {
	fmt.Fprintf(p.out, "[%3d%%] %-16s %s\n", progress, stage, message)
}

// PrintRun outputs the final state of a pipeline run.
func (p *Printer) PrintRun(run *types.PipelineRun) {
	if run == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Campaign: %s\n", run.CampaignID))
	sb.WriteString(fmt.Sprintf("Run:      %s\n", run.RunID))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", run.Status))
	sb.WriteString(fmt.Sprintf("Stage:    %s (%d/%d)\n", run.CurrentStage, run.StageIndex, run.TotalStages))
	sb.WriteString(fmt.Sprintf("Progress: %d%%", run.ProgressPercent))
	if run.CompletedAt != nil {
		sb.WriteString(fmt.Sprintf("\nDuration: %s", run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond)))
	}
	if run.Error != "" {
		sb.WriteString(fmt.Sprintf("\nError:    %s", run.Error))
	}

	p.printBox("PIPELINE RUN", sb.String())
}

// PrintEmails outputs the first rendered emails, flagging fixed-layout fallbacks.
func (p *Printer) PrintEmails(emails []types.RenderedEmail) {
	if len(emails) == 0 {
		return
	}

	var sb strings.Builder
	fallbacks := 0
	for _, e := range emails {
		if e.Fallback {
			fallbacks++
		}
	}
	sb.WriteString(fmt.Sprintf("Rendered %d emails (%d fallback layouts)\n\n", len(emails), fallbacks))

	count := min(len(emails), maxItemsToShow)
	for i := 0; i < count; i++ {
		e := emails[i]
		marker := "•"
		if e.Fallback {
			marker = "⚠"
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", marker, e.ProspectEmail))
		sb.WriteString(fmt.Sprintf("  Subject: %s\n", e.Subject))
		sb.WriteString(fmt.Sprintf("  Segment: %s", e.SegmentID))
		if i < count-1 {
			sb.WriteString("\n\n")
		}
	}

	if len(emails) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n\n... and %d more emails", len(emails)-maxItemsToShow))
	}

	p.printBox("RENDERED EMAILS", sb.String())
}

// PrintSchedule outputs the first planned sends in send order.
func (p *Printer) PrintSchedule(entries []types.ScheduleEntry) {
	if len(entries) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Scheduled %d sends\n", len(entries)))
	sb.WriteString(fmt.Sprintf("First: %s\n", entries[0].SendAt.UTC().Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Last:  %s\n\n", entries[len(entries)-1].SendAt.UTC().Format(time.RFC3339)))

	count := min(len(entries), maxItemsToShow)
	for i := 0; i < count; i++ {
		e := entries[i]
		sb.WriteString(fmt.Sprintf("%s  %s", e.SendAt.UTC().Format("Mon 15:04:05"), e.ProspectEmail))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(entries) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more sends", len(entries)-maxItemsToShow))
	}

	p.printBox("SEND SCHEDULE (UTC)", sb.String())
}

// PrintBounce outputs a bounce classification.
func (p *Printer) PrintBounce(c types.BounceClassification) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Type:     %s\n", c.BounceType))
	sb.WriteString(fmt.Sprintf("Category: %s\n", c.Category))
	if c.ShouldSuppress {
		sb.WriteString("Suppress: yes\n")
	} else {
		sb.WriteString("Suppress: no\n")
	}
	sb.WriteString(c.Description)

	p.printBox("BOUNCE CLASSIFICATION", sb.String())
}
