package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Wallet is the durable store of enrolled identities, keyed by label.
type Wallet interface {
	Init() error
	// Put overwrites any existing identity under the same label.
	Put(label string, id *Identity) error
	// Get returns nil (no error) when the label is absent.
	Get(label string) (*Identity, error)
	// Remove is idempotent; removing an absent label is not an error.
	Remove(label string) error
	// List returns all labels in a stable enumeration order.
	List() ([]string, error)
}

// Memory wallet (tests and LEDGER_ADAPTER=memory development runs)
type MemWallet struct {
	mu  sync.RWMutex
	ids map[string]*Identity
}

func NewMemWallet() *MemWallet {
	return &MemWallet{ids: map[string]*Identity{}}
}

func (m *MemWallet) Init() error { return nil }

func (m *MemWallet) Put(label string, id *Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *id
	cp.Label = label
	m.ids[label] = &cp
	return nil
}

func (m *MemWallet) Get(label string) (*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.ids[label]; ok {
		cp := *id
		return &cp, nil
	}
	return nil, nil
}

func (m *MemWallet) Remove(label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ids, label)
	return nil
}

func (m *MemWallet) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	labels := make([]string, 0, len(m.ids))
	for l := range m.ids {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels, nil
}

// File wallet: one <label>.id JSON document per identity under a directory,
// the same layout the Fabric file-system wallet uses.
type FileWallet struct {
	dir string
}

func NewFileWallet(dir string) (*FileWallet, error) {
	w := &FileWallet{dir: dir}
	if err := w.Init(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *FileWallet) Init() error {
	return os.MkdirAll(w.dir, 0o750)
}

func (w *FileWallet) path(label string) string {
	return filepath.Join(w.dir, label+".id")
}

func (w *FileWallet) Put(label string, id *Identity) error {
	cp := *id
	cp.Label = label
	data, err := json.MarshalIndent(&cp, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(w.path(label), data, 0o600)
}

func (w *FileWallet) Get(label string) (*Identity, error) {
	data, err := os.ReadFile(w.path(label))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

func (w *FileWallet) Remove(label string) error {
	err := os.Remove(w.path(label))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (w *FileWallet) List() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, err
	}
	var labels []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".id") {
			continue
		}
		labels = append(labels, strings.TrimSuffix(e.Name(), ".id"))
	}
	return labels, nil
}

// lifecycle helpers
func (m *MemWallet) close() error { return nil }
func (m *MemWallet) ping() bool   { return true }

func (w *FileWallet) close() error { return nil }
func (w *FileWallet) ping() bool {
	_, err := os.Stat(w.dir)
	return err == nil
}
