package domain

import (
	"fmt"
	"strings"
)

// Stage is the deployment environment a pipeline ran for.
type Stage string

const (
	StageStaging    Stage = "staging"
	StageProduction Stage = "production"
)

// EventKind is the git event that triggered a pipeline.
type EventKind string

const (
	EventCommit EventKind = "commit"
	EventTag    EventKind = "tag"
)

// ParseStage parses a stage selector. Matching is case-insensitive.
func ParseStage(raw string) (Stage, error) {
	switch Stage(strings.ToLower(strings.TrimSpace(raw))) {
	case StageStaging:
		return StageStaging, nil
	case StageProduction:
		return StageProduction, nil
	}
	return "", fmt.Errorf("unknown stage %q: want staging or production", raw)
}

// EventKind returns the git event a stage deploys from:
// staging deploys commits, production deploys tags.
func (s Stage) EventKind() EventKind {
	if s == StageProduction {
		return EventTag
	}
	return EventCommit
}

// Other returns the opposite stage.
func (s Stage) Other() Stage {
	if s == StageProduction {
		return StageStaging
	}
	return StageProduction
}
