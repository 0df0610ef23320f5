package provider

import (
	"fmt"
	"strings"

	"github.com/waabox/sekideck/internal/domain"
)

// Registry maps remote URL host patterns to CodeHost implementations.
type Registry struct {
	entries  []entry
	fallback domain.CodeHost
}

type entry struct {
	host string
	code domain.CodeHost
}

// NewRegistry creates an empty code host registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register associates a host pattern (e.g., "github.com") with a code host.
func (r *Registry) Register(host string, h domain.CodeHost) {
	r.entries = append(r.entries, entry{host: host, code: h})
}

// SetFallback sets the code host used when no pattern matches,
// including repositories given by name without a remote URL.
func (r *Registry) SetFallback(h domain.CodeHost) {
	r.fallback = h
}

// Detect returns the code host matching the host in the given remote URL.
// Returns an error if nothing matches and no fallback is set.
func (r *Registry) Detect(remoteURL string) (domain.CodeHost, error) {
	if remoteURL != "" {
		for _, e := range r.entries {
			if strings.Contains(remoteURL, e.host) {
				return e.code, nil
			}
		}
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("no code host found for remote: %s", remoteURL)
}

// For returns the code host for repo, using its remote URL when known.
func (r *Registry) For(repo domain.Repository) (domain.CodeHost, error) {
	return r.Detect(repo.RemoteURL)
}
