package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	DeletePrefix(prefix string) int
	Size() int
}

// Cleaner is implemented by caches whose entries can expire.
type Cleaner interface {
	CleanExpired() int
	Size() int
}

// Manager periodically sweeps expired entries out of registered caches.
type Manager struct {
	mu          sync.Mutex
	caches      map[string]Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	stopOnce    sync.Once
	started     bool
}

// NewManager creates an empty manager. Register caches, then call StartCleanup.
func NewManager() *Manager {
	return &Manager{
		caches:      make(map[string]Cleaner),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache under a name used in cleanup logs.
func (m *Manager) Register(name string, c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.stopCleanup:
			return
		}
	}
}

// Sweep runs one cleanup pass and returns the number of entries removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for name, c := range m.caches {
		if n := c.CleanExpired(); n > 0 {
			slog.Debug("Cache cleanup completed", "cache", name, "entries_removed", n)
			total += n
		}
	}
	return total
}

// Size returns the number of entries held across registered caches.
func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, c := range m.caches {
		total += c.Size()
	}
	return total
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
		m.mu.Lock()
		started := m.started
		m.mu.Unlock()
		if started {
			<-m.cleanupDone
		}
	})
}
