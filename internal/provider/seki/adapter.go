package seki

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/waabox/sekideck/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Adapter implements domain.PipelineProvider for the Seki pipeline status API.
type Adapter struct {
	token   string
	baseURL string
	client  *http.Client
}

// Ensure Adapter fully implements domain.PipelineProvider.
var _ domain.PipelineProvider = (*Adapter)(nil)

// NewAdapter creates a Seki adapter for the API at baseURL.
// token is sent as a bearer token when non-empty.
func NewAdapter(baseURL string, token string) *Adapter {
	return &Adapter{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// GetPipeline returns the pipeline run for a full commit hash.
// Abbreviated hashes are not resolved by the API and yield domain.ErrNotFound.
func (a *Adapter) GetPipeline(ctx context.Context, product, commit string) (domain.PipelineRecord, error) {
	apiURL := fmt.Sprintf("%s/products/%s/pipelines/%s", a.baseURL, product, url.PathEscape(commit))
	var raw rawPipeline
	if err := a.get(ctx, apiURL, &raw); err != nil {
		return domain.PipelineRecord{}, err
	}
	return raw.toRecord(), nil
}

// GetPipelineWithTag returns the pipeline run for a tag and its commit.
func (a *Adapter) GetPipelineWithTag(ctx context.Context, product, commit, tag string) (domain.PipelineRecord, error) {
	apiURL := fmt.Sprintf("%s/products/%s/pipelines/%s/%s",
		a.baseURL, product, url.PathEscape(commit), url.PathEscape(tag))
	var raw rawPipeline
	if err := a.get(ctx, apiURL, &raw); err != nil {
		return domain.PipelineRecord{}, err
	}
	return raw.toRecord(), nil
}

// ListPipelines returns one page of pipeline runs for product.
func (a *Adapter) ListPipelines(ctx context.Context, product string, opts domain.ListOptions) (domain.PipelinePage, error) {
	apiURL := fmt.Sprintf("%s/products/%s/pipelines", a.baseURL, product)
	if q := encodeParams(opts); q != "" {
		apiURL += "?" + q
	}
	var raw struct {
		Offset int           `json:"offset"`
		Limit  int           `json:"limit"`
		Total  int           `json:"total"`
		Items  []rawPipeline `json:"items"`
	}
	if err := a.get(ctx, apiURL, &raw); err != nil {
		return domain.PipelinePage{}, err
	}
	page := domain.PipelinePage{
		Offset: raw.Offset,
		Limit:  raw.Limit,
		Total:  raw.Total,
		Items:  make([]domain.PipelineRecord, len(raw.Items)),
	}
	for i, item := range raw.Items {
		page.Items[i] = item.toRecord()
	}
	return page, nil
}

// encodeParams serializes list options with bracket notation for nested
// keys, e.g. filters[git.stage]=staging&sort[updated_at]=desc.
func encodeParams(opts domain.ListOptions) string {
	v := url.Values{}
	if opts.Limit > 0 {
		v.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		v.Set("offset", strconv.Itoa(opts.Offset))
	}
	for k, val := range opts.Filters {
		v.Set("filters["+k+"]", val)
	}
	for k, order := range opts.Sort {
		v.Set("sort["+k+"]", string(order))
	}
	return v.Encode()
}

func (a *Adapter) get(ctx context.Context, apiURL string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US")
	if a.token != "" {
		req.Header.Set("Authorization", "bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("executing request: %w", ctx.Err())
		}
		return fmt.Errorf("executing request: %v: %w", err, domain.ErrTransient)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("seki API error: %s: %w", resp.Status, domain.ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("seki API error: %s: %w", resp.Status, domain.ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("seki API error: %s: %w", resp.Status, domain.ErrTransient)
	case resp.StatusCode >= 400:
		return fmt.Errorf("seki API error: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding seki response: %w", err)
	}
	return nil
}
