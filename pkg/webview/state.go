package webview

import (
	"fmt"
	"sync/atomic"
)

// State is the shared logical record of a view: loading flag, URL, title,
// navigation history and pending IPC messages. It never touches the native
// handle and is safe for use from any goroutine.
//
// Each field has its own lock; there is no cross-field transaction. A reader
// may observe the URL updated before the history reflects it.
type State struct {
	loading atomic.Bool
	url     guard[string]
	title   guard[string]
	history guard[navHistory]
	pending guard[[]string]
}

// NewState creates the state of a view that is about to load url.
// History stays empty until the first navigation event.
func NewState(url string) *State {
	s := &State{}
	s.loading.Store(true)
	s.url.init("url", url)
	s.title.init("title", "")
	s.history.init("history", navHistory{index: -1})
	s.pending.init("ipc queue", nil)
	return s
}

// SetLoading records whether the view is loading.
func (s *State) SetLoading(loading bool) {
	s.loading.Store(loading)
}

// IsLoading reports whether the view is loading.
func (s *State) IsLoading() bool {
	return s.loading.Load()
}

// UpdateCurrentURL sets the current URL and feeds it to the navigation history.
// An empty URL is recorded as current but never enters the history.
func (s *State) UpdateCurrentURL(url string) error {
	if err := s.url.with(func(v *string) { *v = url }); err != nil {
		return err
	}
	if url == "" {
		return nil
	}
	return s.history.with(func(h *navHistory) { h.visit(url) })
}

// CurrentURL returns the last URL reported for the view.
func (s *State) CurrentURL() (string, error) {
	var url string
	err := s.url.with(func(v *string) { url = *v })
	return url, err
}

// UpdatePageTitle replaces the page title.
func (s *State) UpdatePageTitle(title string) error {
	return s.title.with(func(v *string) { *v = title })
}

// PageTitle returns the current page title.
func (s *State) PageTitle() (string, error) {
	var title string
	err := s.title.with(func(v *string) { title = *v })
	return title, err
}

// CanGoBack reports whether a back step is available.
func (s *State) CanGoBack() (bool, error) {
	var ok bool
	err := s.history.with(func(h *navHistory) { ok = h.canGoBack() })
	return ok, err
}

// CanGoForward reports whether a forward step is available.
func (s *State) CanGoForward() (bool, error) {
	var ok bool
	err := s.history.with(func(h *navHistory) { ok = h.canGoForward() })
	return ok, err
}

// BackURL returns the URL a back step would land on.
func (s *State) BackURL() (url string, ok bool, err error) {
	err = s.history.with(func(h *navHistory) { url, ok = h.back() })
	return url, ok, err
}

// ForwardURL returns the URL a forward step would land on.
func (s *State) ForwardURL() (url string, ok bool, err error) {
	err = s.history.with(func(h *navHistory) { url, ok = h.forward() })
	return url, ok, err
}

// History returns a copy of the navigation path and the cursor into it.
func (s *State) History() ([]string, int, error) {
	var (
		entries []string
		index   int
	)
	err := s.history.with(func(h *navHistory) {
		entries = h.copyEntries()
		index = h.index
	})
	return entries, index, err
}

// PushIPCMessage queues an inbound message for the host.
func (s *State) PushIPCMessage(msg string) error {
	return s.pending.with(func(q *[]string) { *q = append(*q, msg) })
}

// DrainIPCMessages removes and returns every queued message in arrival order.
func (s *State) DrainIPCMessages() ([]string, error) {
	var out []string
	err := s.pending.with(func(q *[]string) {
		out = *q
		*q = nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// PendingCount returns the number of queued messages.
func (s *State) PendingCount() (int, error) {
	var n int
	err := s.pending.with(func(q *[]string) { n = len(*q) })
	return n, err
}

// Snapshot is a point-in-time copy of a State. Fields are read one lock at a
// time, so a snapshot taken during navigation may mix old and new values.
type Snapshot struct {
	URL          string   `json:"url"`
	Title        string   `json:"title"`
	Loading      bool     `json:"loading"`
	History      []string `json:"history"`
	HistoryIndex int      `json:"history_index"`
}

// CanGoBack mirrors State.CanGoBack for the captured history.
func (s Snapshot) CanGoBack() bool {
	h := navHistory{entries: s.History, index: s.HistoryIndex}
	return h.canGoBack()
}

// CanGoForward mirrors State.CanGoForward for the captured history.
func (s Snapshot) CanGoForward() bool {
	h := navHistory{entries: s.History, index: s.HistoryIndex}
	return h.canGoForward()
}

// Snapshot captures the current state.
func (s *State) Snapshot() (Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	snap.Loading = s.IsLoading()
	if snap.URL, err = s.CurrentURL(); err != nil {
		return Snapshot{}, err
	}
	if snap.Title, err = s.PageTitle(); err != nil {
		return Snapshot{}, err
	}
	if snap.History, snap.HistoryIndex, err = s.History(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Restore replaces URL, title and history with the snapshot's values.
// Pending messages and the loading flag are left untouched.
func (s *State) Restore(snap Snapshot) error {
	if err := validateHistory(snap.History, snap.HistoryIndex); err != nil {
		return err
	}
	if err := s.url.with(func(v *string) { *v = snap.URL }); err != nil {
		return err
	}
	if err := s.title.with(func(v *string) { *v = snap.Title }); err != nil {
		return err
	}
	entries := make([]string, len(snap.History))
	copy(entries, snap.History)
	return s.history.with(func(h *navHistory) {
		h.entries = entries
		h.index = snap.HistoryIndex
	})
}

func validateHistory(entries []string, index int) error {
	if index < -1 || index >= len(entries) {
		return invalidArgument(fmt.Sprintf("history index %d out of range for %d entries", index, len(entries)))
	}
	if index == -1 && len(entries) > 0 {
		return invalidArgument("history entries without a cursor")
	}
	for i, url := range entries {
		if url == "" {
			return invalidArgument(fmt.Sprintf("empty history entry at %d", i))
		}
	}
	return nil
}
