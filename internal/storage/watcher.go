package storage

import (
	"crypto/sha256"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ExternalChangeHandler is called with the ID of a page whose file was
// rewritten by another process.
type ExternalChangeHandler func(pageID string)

// Watcher reports writes to a FileStore's page files that the store did
// not make itself.
type Watcher struct {
	store    *FileStore
	watcher  *fsnotify.Watcher
	onChange ExternalChangeHandler

	mu   sync.Mutex
	seen map[string][sha256.Size]byte
	done chan struct{}
}

func NewWatcher(store *FileStore, onChange ExternalChangeHandler) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(store.Dir()); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", store.Dir(), err)
	}
	w := &Watcher{
		store:    store,
		watcher:  fw,
		onChange: onChange,
		seen:     make(map[string][sha256.Size]byte),
		done:     make(chan struct{}),
	}
	go w.watchLoop()
	return w, nil
}

// Close stops the watcher and waits for its loop to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// Atomic saves show up as Create on the renamed target.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.handle(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[STORE] watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(path string) {
	pageID, ok := w.store.PageIDFromPath(path)
	if !ok {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	sum := sha256.Sum256(data)
	if own, ok := w.store.lastWrite(path); ok && own == sum {
		return
	}

	key := filepath.Clean(path)
	w.mu.Lock()
	if prev, ok := w.seen[key]; ok && prev == sum {
		w.mu.Unlock()
		return
	}
	w.seen[key] = sum
	w.mu.Unlock()

	log.Printf("[STORE] page %s changed on disk", pageID)
	if w.onChange != nil {
		w.onChange(pageID)
	}
}
