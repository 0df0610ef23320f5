package git

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	gogit "github.com/go-git/go-git/v5"

	"github.com/waabox/sekideck/internal/domain"
)

// DetectRepository opens the clone containing dir and returns a Repository
// built from its origin remote URL.
func DetectRepository(dir string) (domain.Repository, error) {
	r, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return domain.Repository{}, fmt.Errorf("opening git repository at %s: %w", dir, err)
	}
	origin, err := r.Remote("origin")
	if err != nil {
		if errors.Is(err, gogit.ErrRemoteNotFound) {
			return domain.Repository{}, errors.New("no origin remote configured")
		}
		return domain.Repository{}, fmt.Errorf("reading origin remote: %w", err)
	}
	urls := origin.Config().URLs
	if len(urls) == 0 {
		return domain.Repository{}, errors.New("origin remote has no URL")
	}
	return ParseRemoteURL(urls[0])
}

// ParseRemoteURL parses a git remote URL and returns a Repository.
// Supports HTTPS (https://github.com/owner/repo.git), SSH URLs
// (ssh://git@host:22/owner/repo.git) and scp-like SSH (git@github.com:owner/repo.git).
// Nested GitLab groups stay in Owner ("group/sub"). RemoteURL preserves the input.
func ParseRemoteURL(rawURL string) (domain.Repository, error) {
	trimmed := strings.TrimSpace(rawURL)
	var path string

	switch {
	case strings.Contains(trimmed, "://"):
		u, err := url.Parse(trimmed)
		if err != nil {
			return domain.Repository{}, fmt.Errorf("invalid remote URL %s: %w", rawURL, err)
		}
		switch u.Scheme {
		case "https", "http", "ssh", "git":
		default:
			return domain.Repository{}, fmt.Errorf("unsupported remote URL format: %s", rawURL)
		}
		path = u.Path
	case strings.Contains(trimmed, "@") && strings.Contains(trimmed, ":"):
		// scp-like: user@host:owner/repo
		parts := strings.SplitN(trimmed, ":", 2)
		path = parts[1]
	default:
		return domain.Repository{}, fmt.Errorf("unsupported remote URL format: %s", rawURL)
	}

	path = strings.Trim(strings.TrimSuffix(strings.Trim(path, "/"), ".git"), "/")
	idx := strings.LastIndex(path, "/")
	if idx <= 0 || idx == len(path)-1 {
		return domain.Repository{}, fmt.Errorf("remote URL has no owner/name path: %s", rawURL)
	}
	return domain.Repository{
		Owner:     path[:idx],
		Name:      path[idx+1:],
		RemoteURL: rawURL,
	}, nil
}
