package tui

import (
	"fmt"
	"strings"
)

// FavoriteListModel is an immutable model for the favorites panel.
type FavoriteListModel struct {
	repos  []string
	cursor int
}

// NewFavoriteListModel creates a favorites list model.
func NewFavoriteListModel(repos []string) FavoriteListModel {
	return FavoriteListModel{repos: repos, cursor: 0}
}

// WithRepos returns a model listing repos, keeping the cursor on the same
// repository when it is still present.
func (m FavoriteListModel) WithRepos(repos []string) FavoriteListModel {
	selected := m.Selected()
	m.repos = repos
	m.cursor = 0
	for i, r := range repos {
		if r == selected {
			m.cursor = i
			break
		}
	}
	return m
}

// MoveDown returns a new model with the cursor moved down by one.
func (m FavoriteListModel) MoveDown() FavoriteListModel {
	if m.cursor < len(m.repos)-1 {
		m.cursor++
	}
	return m
}

// MoveUp returns a new model with the cursor moved up by one.
func (m FavoriteListModel) MoveUp() FavoriteListModel {
	if m.cursor > 0 {
		m.cursor--
	}
	return m
}

// Repos returns the listed repositories.
func (m FavoriteListModel) Repos() []string {
	return m.repos
}

// Selected returns the highlighted repository, or "" when the list is empty.
func (m FavoriteListModel) Selected() string {
	if len(m.repos) == 0 {
		return ""
	}
	return m.repos[m.cursor]
}

// View renders the favorites list as a string.
func (m FavoriteListModel) View() string {
	if len(m.repos) == 0 {
		return "No favorites yet. Open a repository and press 'f' to pin it."
	}
	var sb strings.Builder
	for i, r := range m.repos {
		prefix := "  "
		if i == m.cursor {
			prefix = cursorStyle.Render("> ")
		}
		sb.WriteString(fmt.Sprintf("%s★ %s\n", prefix, r))
	}
	return sb.String()
}
