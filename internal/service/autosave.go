package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// DefaultAutosaveSpec saves dirty pages every thirty seconds.
const DefaultAutosaveSpec = "@every 30s"

// ─────────────────────────────────────────────────────────────
// Autosaver — periodic save of dirty sessions
// ─────────────────────────────────────────────────────────────

type Autosaver struct {
	ws   *Workspace
	spec string

	mu        sync.Mutex
	cronSched *cron.Cron

	// pages with a save in flight; a tick never starts a second one
	savingMu sync.Mutex
	saving   map[string]bool
	inFlight sync.WaitGroup
}

func NewAutosaver(ws *Workspace, spec string) *Autosaver {
	if spec == "" {
		spec = DefaultAutosaveSpec
	}
	return &Autosaver{ws: ws, spec: spec}
}

// Start schedules Run on the cron spec.
func (a *Autosaver) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cronSched != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(a.spec, func() { a.Run(context.Background()) }); err != nil {
		return fmt.Errorf("autosave: invalid schedule %q: %w", a.spec, err)
	}
	c.Start()
	a.cronSched = c
	log.Printf("autosave: scheduled %q", a.spec)
	return nil
}

// Run saves every dirty session once. A page whose previous autosave is
// still running is skipped. It returns how many pages were saved.
func (a *Autosaver) Run(ctx context.Context) int {
	saved := 0
	for _, s := range a.ws.Sessions() {
		if !s.IsDirty() {
			continue
		}
		id := s.ID()
		if !a.claim(id) {
			continue
		}
		if err := s.Save(ctx); err != nil {
			log.Printf("autosave: page %s failed: %v", id, err)
		} else {
			saved++
		}
		a.release(id)
	}
	if saved > 0 {
		log.Printf("autosave: saved %d page(s)", saved)
	}
	return saved
}

// Stop halts the schedule and waits for in-flight saves or ctx.
func (a *Autosaver) Stop(ctx context.Context) {
	a.mu.Lock()
	c := a.cronSched
	a.cronSched = nil
	a.mu.Unlock()
	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
		}
	}

	done := make(chan struct{})
	go func() {
		a.inFlight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (a *Autosaver) claim(pageID string) bool {
	a.savingMu.Lock()
	defer a.savingMu.Unlock()
	if a.saving[pageID] {
		return false
	}
	if a.saving == nil {
		a.saving = make(map[string]bool)
	}
	a.saving[pageID] = true
	a.inFlight.Add(1)
	return true
}

func (a *Autosaver) release(pageID string) {
	a.savingMu.Lock()
	delete(a.saving, pageID)
	a.savingMu.Unlock()
	a.inFlight.Done()
}
