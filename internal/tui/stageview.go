package tui

import (
	"fmt"
	"strings"

	"github.com/waabox/sekideck/internal/dashboard"
	"github.com/waabox/sekideck/internal/pipeline"
)

// renderStage renders one loaded stage. Outcomes without a view render their
// diagnosis so an empty screen always says what was tried.
func renderStage(o dashboard.Outcome) string {
	if !o.Ready() {
		style := metaStyle
		if o.Kind == dashboard.OutcomeError {
			style = failureStyle
		}
		return " " + style.Render(o.Diagnosis()) + "\n"
	}
	vm := o.View
	var sb strings.Builder
	sb.WriteString(renderHeader(vm, o.Version.Tag))
	if meta := renderMeta(vm.Meta); meta != "" {
		sb.WriteString(" " + metaStyle.Render(meta) + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(renderTimeline(vm.Timeline))
	if len(vm.Links) > 0 {
		sb.WriteString("\n")
		for _, u := range vm.Links {
			sb.WriteString(" ↗ " + linkStyle.Render(u) + "\n")
		}
	}
	if len(vm.Failures) > 0 {
		sb.WriteString("\n")
		for _, f := range vm.Failures {
			line := fmt.Sprintf("✗ %s / %s", f.EventLabel, f.SubEventLabel)
			if f.Summary != "" {
				line += ": " + f.Summary
			}
			sb.WriteString(" " + failureStyle.Render(line) + "\n")
		}
	}
	return sb.String()
}

func renderHeader(vm *pipeline.ViewModel, tag string) string {
	parts := []string{titleStyle.Render(vm.Product), stageBadge(vm.Stage), vm.ShortHash}
	if tag != "" {
		parts = append(parts, tag)
	}
	parts = append(parts, stateIcon(vm.Icon, vm.Tone)+" "+string(vm.State))
	if vm.Duration != "" {
		parts = append(parts, vm.Duration)
	}
	return " " + strings.Join(parts, " ") + "\n"
}

func renderMeta(meta []pipeline.MetaPart) string {
	texts := make([]string, 0, len(meta))
	for _, p := range meta {
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, " · ")
}

// renderTimeline draws one coloured dot per event, worst state first,
// followed by a legend line per event.
func renderTimeline(events []pipeline.EventView) string {
	if len(events) == 0 {
		return " " + metaStyle.Render("no events yet") + "\n"
	}
	dots := make([]string, len(events))
	for i, e := range events {
		dots[i] = toneStyle(e.Tone).Render("●")
	}
	var sb strings.Builder
	sb.WriteString(" " + strings.Join(dots, " ") + "\n")
	for _, e := range events {
		sb.WriteString(fmt.Sprintf("   %s %-25s %8s  %s\n",
			stateIcon(e.Icon, e.Tone), truncate(e.Label, 25), e.Duration, metaStyle.Render(e.Ago)))
	}
	return sb.String()
}
