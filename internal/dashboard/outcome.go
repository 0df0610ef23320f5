package dashboard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/waabox/sekideck/internal/domain"
	"github.com/waabox/sekideck/internal/pipeline"
	"github.com/waabox/sekideck/internal/resolve"
)

// OutcomeKind tells presentation layers which state to render.
type OutcomeKind string

const (
	OutcomeReady     OutcomeKind = "ready"
	OutcomeNoVersion OutcomeKind = "no_version"
	OutcomeNotFound  OutcomeKind = "not_found"
	OutcomeError     OutcomeKind = "error"
)

// Outcome is the result of loading one stage of one repository.
// View is set only when Kind is OutcomeReady; Err only when it is not.
type Outcome struct {
	Kind       OutcomeKind
	Repository string
	Stage      domain.Stage
	Version    domain.Version
	View       *pipeline.ViewModel
	Err        error
}

// Ready reports whether the outcome carries a view.
func (o Outcome) Ready() bool {
	return o.Kind == OutcomeReady && o.View != nil
}

func (o Outcome) withError(err error) Outcome {
	o.Err = err
	switch {
	case errors.Is(err, resolve.ErrNoVersion):
		o.Kind = OutcomeNoVersion
	case errors.Is(err, domain.ErrNotFound):
		o.Kind = OutcomeNotFound
	default:
		o.Kind = OutcomeError
	}
	return o
}

// identifiers lists what was asked of the pipeline provider.
func (o Outcome) identifiers() string {
	var parts []string
	if o.Version.Commit != "" {
		parts = append(parts, "commit "+o.Version.Commit)
	}
	if o.Version.Tag != "" {
		parts = append(parts, "tag "+o.Version.Tag)
	}
	if len(parts) == 0 {
		return "no identifiers"
	}
	return strings.Join(parts, ", ")
}

// Diagnosis is a one-line explanation naming the product, the stage and the
// identifiers that were tried, so an empty screen is self-explanatory.
func (o Outcome) Diagnosis() string {
	switch o.Kind {
	case OutcomeReady:
		return fmt.Sprintf("%s on %s at %s", o.Repository, o.Stage, o.Version.Display)
	case OutcomeNoVersion:
		if o.Stage == domain.StageProduction {
			return fmt.Sprintf("%s has no tags, so nothing is deployed to production.", o.Repository)
		}
		return fmt.Sprintf("%s has no commits, so nothing is deployed to staging.", o.Repository)
	case OutcomeNotFound:
		return fmt.Sprintf("No pipeline found for %s on %s (%s).", o.Repository, o.Stage, o.identifiers())
	default:
		msg := "unknown error"
		if o.Err != nil {
			msg = o.Err.Error()
		}
		return fmt.Sprintf("Could not load %s on %s (%s): %s", o.Repository, o.Stage, o.identifiers(), msg)
	}
}

// Payload is the serializable form of an Outcome.
type Payload struct {
	Kind       OutcomeKind         `json:"kind" yaml:"kind"`
	Repository string              `json:"repository" yaml:"repository"`
	Stage      domain.Stage        `json:"stage" yaml:"stage"`
	Commit     string              `json:"commit,omitempty" yaml:"commit,omitempty"`
	Tag        string              `json:"tag,omitempty" yaml:"tag,omitempty"`
	Version    string              `json:"version,omitempty" yaml:"version,omitempty"`
	Diagnosis  string              `json:"diagnosis" yaml:"diagnosis"`
	Pipeline   *pipeline.ViewModel `json:"pipeline,omitempty" yaml:"pipeline,omitempty"`
}

// Payload converts the outcome for JSON and YAML encoders.
func (o Outcome) Payload() Payload {
	return Payload{
		Kind:       o.Kind,
		Repository: o.Repository,
		Stage:      o.Stage,
		Commit:     o.Version.Commit,
		Tag:        o.Version.Tag,
		Version:    o.Version.Display,
		Diagnosis:  o.Diagnosis(),
		Pipeline:   o.View,
	}
}
