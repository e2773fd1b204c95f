package app

import (
	"context"
	"log"
	"sync"
	"time"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/service"
)

const defaultPollInterval = 2 * time.Second

// pageWatcher polls the store for pages rewritten by another process
// (e.g. a standalone MCP server sharing the database) and reports them.
// Saves made by this process are announced through Emit and are not
// reported back.
type pageWatcher struct {
	store    domain.PageStore
	interval time.Duration
	onChange func(pageID string)

	mu sync.Mutex
	// page ID → updated_at fingerprint; nil until the first poll
	seen map[string]string
	// pages saved here whose next fingerprint change is expected
	ownSaves map[string]bool
	stopCh   chan struct{}
	done     chan struct{}
}

func newPageWatcher(store domain.PageStore, interval time.Duration, onChange func(string)) *pageWatcher {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &pageWatcher{
		store:    store,
		interval: interval,
		onChange: onChange,
		ownSaves: map[string]bool{},
	}
}

// Emit implements service.EventEmitter. Only page:saved matters here.
func (w *pageWatcher) Emit(_ context.Context, event string, data any) {
	if event != service.EventPageSaved {
		return
	}
	st, ok := data.(domain.SessionState)
	if !ok {
		return
	}
	w.mu.Lock()
	w.ownSaves[st.Page.Metadata.ID] = true
	w.mu.Unlock()
}

// Start begins the polling loop. It runs until Stop or ctx is done.
func (w *pageWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		return
	}
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.pollLoop(ctx, w.stopCh, w.done)
}

// Stop terminates the polling loop and waits for it to exit.
func (w *pageWatcher) Stop() {
	w.mu.Lock()
	stopCh, done := w.stopCh, w.done
	w.stopCh, w.done = nil, nil
	w.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done
}

func (w *pageWatcher) pollLoop(ctx context.Context, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.check(ctx)
	for {
		select {
		case <-ticker.C:
			w.check(ctx)
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// check compares the stored pages against the previous poll and reports
// every page that was added or rewritten by someone else.
func (w *pageWatcher) check(ctx context.Context) {
	pages, err := w.store.ListPages(ctx)
	if err != nil {
		log.Printf("[WATCH] list pages: %v", err)
		return
	}

	current := make(map[string]string, len(pages))
	for _, p := range pages {
		current[p.ID] = p.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}

	var changed []string
	w.mu.Lock()
	first := w.seen == nil
	for id, fp := range current {
		if first || w.seen[id] == fp {
			continue
		}
		if w.ownSaves[id] {
			delete(w.ownSaves, id)
			continue
		}
		changed = append(changed, id)
	}
	w.seen = current
	w.mu.Unlock()

	for _, id := range changed {
		log.Printf("[WATCH] page %s changed in store", id)
		w.onChange(id)
	}
}
