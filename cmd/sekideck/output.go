package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	jsoniter "github.com/json-iterator/go"
	"github.com/mattn/go-isatty"
	"github.com/nwidger/jsoncolor"
	"gopkg.in/yaml.v3"

	"github.com/waabox/sekideck/internal/dashboard"
	"github.com/waabox/sekideck/internal/domain"
	"github.com/waabox/sekideck/internal/pipeline"
	"github.com/waabox/sekideck/internal/timefmt"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// writeOutcomes prints outcomes in format. A single outcome is encoded as an
// object, several as a list.
func writeOutcomes(w io.Writer, format string, outcomes []dashboard.Outcome) error {
	payloads := make([]dashboard.Payload, len(outcomes))
	for i, o := range outcomes {
		payloads[i] = o.Payload()
	}
	var v any = payloads
	if len(payloads) == 1 {
		v = payloads[0]
	}

	switch format {
	case "json":
		return writeJSON(w, v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	default:
		for i, o := range outcomes {
			if i > 0 {
				fmt.Fprintln(w)
			}
			writeOutcomeText(w, o)
		}
		return nil
	}
}

// writeJSON indents v, with colours when w is a terminal.
func writeJSON(w io.Writer, v any) error {
	var (
		data []byte
		err  error
	)
	if isTerminal(w) {
		data, err = jsoncolor.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeOutcomeText(w io.Writer, o dashboard.Outcome) {
	if !o.Ready() {
		fmt.Fprintf(w, "%s [%s]\n%s\n", o.Repository, o.Stage, o.Diagnosis())
		return
	}
	vm := o.View
	fmt.Fprintf(w, "%s [%s] %s %s %s\n", vm.Product, vm.Stage, o.Version.Display, stateLabel(vm.Icon, vm.State), vm.Duration)
	meta := make([]string, 0, len(vm.Meta))
	for _, p := range vm.Meta {
		meta = append(meta, p.Text)
	}
	if len(meta) > 0 {
		fmt.Fprintln(w, strings.Join(meta, " · "))
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Event", "State", "Duration", "Updated", "Summary"})
	for _, e := range vm.Events {
		t.AppendRow(table.Row{e.Label, stateLabel(e.Icon, e.State), e.Duration, e.Ago, e.Summary})
		for _, s := range e.SubEvents {
			t.AppendRow(table.Row{"  " + s.Label, stateLabel(s.Icon, s.State), s.Duration, s.Ago, s.Summary})
		}
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 5, WidthMax: 60},
	})
	fmt.Fprintln(w, t.Render())

	for _, u := range vm.Links {
		fmt.Fprintf(w, "↗ %s\n", u)
	}
	for _, f := range vm.Failures {
		fmt.Fprintf(w, "✗ %s / %s: %s\n", f.EventLabel, f.SubEventLabel, f.Summary)
	}
}

func stateLabel(icon string, state domain.State) string {
	if icon == "" {
		return string(state)
	}
	return icon + " " + string(state)
}

func writeTagsTable(w io.Writer, tags []domain.Tag, now time.Time) {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Tag", "Commit", "Date"})
	for _, tag := range tags {
		date := "unknown"
		if !tag.Date.IsZero() {
			date = timefmt.Ago(tag.Date, now)
		}
		t.AppendRow(table.Row{tag.Name, pipeline.ShortHash(tag.Commit), date})
	}
	fmt.Fprintln(w, t.Render())
}

func writeHistoryTable(w io.Writer, views []pipeline.ViewModel) {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Stage", "Commit", "State", "Updated", "Message"})
	for _, vm := range views {
		msg := ""
		for _, p := range vm.Meta {
			if p.ID == "commit" {
				msg = p.Text
			}
		}
		t.AppendRow(table.Row{vm.Stage, vm.ShortHash, stateLabel(vm.Icon, vm.State), vm.LastUpdated, msg})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 5, WidthMax: 60}})
	fmt.Fprintln(w, t.Render())
}

func writeFavoritesTable(w io.Writer, names []string) {
	if len(names) == 0 {
		fmt.Fprintln(w, "No favorites yet. Pin one with: sekideck favorites add org/name")
		return
	}
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Repository"})
	for i, name := range names {
		t.AppendRow(table.Row{i + 1, name})
	}
	fmt.Fprintln(w, t.Render())
}
