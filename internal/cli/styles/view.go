package styles

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/webviewhost/pkg/webview"
)

// ViewRenderer renders view snapshots.
type ViewRenderer struct {
	theme *Theme
}

// NewViewRenderer creates a renderer using theme.
func NewViewRenderer(theme *Theme) *ViewRenderer {
	return &ViewRenderer{theme: theme}
}

// Render shows the snapshot header and its history with the cursor marked.
func (r *ViewRenderer) Render(label string, snap webview.Snapshot) string {
	title := snap.Title
	if title == "" {
		title = "(untitled)"
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		r.theme.Title.Render(label),
		" ",
		r.navBadge(snap),
	)
	lines := []string{
		header,
		r.theme.Normal.Render(title),
		r.theme.Subtle.Render(snap.URL),
		"",
		r.RenderHistory(snap.History, snap.HistoryIndex),
	}
	return r.theme.Box.Render(strings.Join(lines, "\n"))
}

// RenderHistory lists entries oldest first, highlighting the current one.
func (r *ViewRenderer) RenderHistory(entries []string, index int) string {
	if len(entries) == 0 {
		return r.theme.Subtle.Render("no history")
	}
	lines := make([]string, len(entries))
	for i, url := range entries {
		if i == index {
			lines[i] = r.theme.Highlight.Render(fmt.Sprintf("> %d %s", i, url))
			continue
		}
		lines[i] = r.theme.Normal.Render(fmt.Sprintf("  %d %s", i, url))
	}
	return strings.Join(lines, "\n")
}

func (r *ViewRenderer) navBadge(snap webview.Snapshot) string {
	var parts []string
	if snap.CanGoBack() {
		parts = append(parts, "back")
	}
	if snap.CanGoForward() {
		parts = append(parts, "forward")
	}
	if len(parts) == 0 {
		return r.theme.BadgeMuted.Render("no navigation")
	}
	return r.theme.Badge.Render(strings.Join(parts, " | "))
}

// RenderKeys lists stored snapshot keys.
func (r *ViewRenderer) RenderKeys(keys []string) string {
	if len(keys) == 0 {
		return r.theme.Subtle.Render("No snapshots stored")
	}
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = r.theme.Normal.Render(k)
	}
	return strings.Join(lines, "\n")
}

// RenderError formats err for the terminal.
func (r *ViewRenderer) RenderError(err error) string {
	return r.theme.ErrorStyle.Render("Error: " + err.Error())
}
