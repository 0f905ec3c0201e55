package webview

// navHistory is a single branching navigation path with a cursor.
// index is -1 until the first navigation is recorded.
type navHistory struct {
	entries []string
	index   int
}

// visit records a navigation to url, recognising steps onto the
// neighbouring entries as back/forward moves instead of new pages.
func (h *navHistory) visit(url string) {
	if h.index < 0 {
		h.entries = append(h.entries[:0], url)
		h.index = 0
		return
	}

	if h.entries[h.index] == url {
		return
	}
	if h.index > 0 && h.entries[h.index-1] == url {
		h.index--
		return
	}
	if h.index+1 < len(h.entries) && h.entries[h.index+1] == url {
		h.index++
		return
	}

	// New page from a revisited point: the forward branch is abandoned.
	h.entries = append(h.entries[:h.index+1], url)
	h.index = len(h.entries) - 1
}

func (h *navHistory) canGoBack() bool {
	return h.index > 0 && len(h.entries) > 0
}

func (h *navHistory) canGoForward() bool {
	return h.index >= 0 && h.index < len(h.entries)-1
}

func (h *navHistory) back() (string, bool) {
	if !h.canGoBack() {
		return "", false
	}
	return h.entries[h.index-1], true
}

func (h *navHistory) forward() (string, bool) {
	if !h.canGoForward() {
		return "", false
	}
	return h.entries[h.index+1], true
}

func (h *navHistory) copyEntries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}
