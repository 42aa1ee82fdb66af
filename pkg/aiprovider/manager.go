package aiprovider

import (
	"sync"

	"github.com/lapublica/leadgen/pkg/ai"
)

// Manager is the process-wide registry of live AI provider clients, keyed
// by provider name. It mirrors the active AIProvider rows in the store.
// All mutations go through the mutex so concurrent admin edits on the same
// name serialize instead of interleaving.
type Manager struct {
	mu        sync.RWMutex
	providers map[string]ai.Provider
}

// NewManager creates an empty provider registry.
func NewManager() *Manager {
	return &Manager{
		providers: make(map[string]ai.Provider),
	}
}

// Register inserts or replaces the client registered under a name.
func (m *Manager) Register(name string, provider ai.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[name] = provider
}

// Remove drops the client registered under a name, if any.
func (m *Manager) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.providers, name)
}

// Get returns the client registered under a name.
func (m *Manager) Get(name string) (ai.Provider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.providers[name]
	return p, ok
}

// Names returns the currently registered provider names.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	return names
}
