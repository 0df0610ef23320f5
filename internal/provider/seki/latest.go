package seki

import (
	"context"
	"fmt"

	"github.com/waabox/sekideck/internal/domain"
)

// latestScanLimit bounds how many runs are scanned for a stage match.
const latestScanLimit = 50

// LatestPipeline returns the most recently updated run of stage and event.
// The API is asked to filter, and the page is filtered again locally because
// not every deployment of the API honours the filters.
func LatestPipeline(ctx context.Context, p domain.PipelineProvider, product string, stage domain.Stage, event domain.EventKind) (domain.PipelineRecord, error) {
	if event == "" {
		event = stage.EventKind()
	}
	page, err := p.ListPipelines(ctx, product, domain.ListOptions{
		Limit: latestScanLimit,
		Filters: map[string]string{
			"git.stage": string(stage),
			"git.event": string(event),
		},
		Sort: map[string]domain.SortOrder{"updated_at": domain.SortDesc},
	})
	if err != nil {
		return domain.PipelineRecord{}, err
	}
	for _, item := range page.Items {
		if item.Git.Stage == stage && item.Git.Event == event {
			return item, nil
		}
	}
	return domain.PipelineRecord{}, fmt.Errorf("no %s pipeline for %s: %w", stage, product, domain.ErrNotFound)
}
