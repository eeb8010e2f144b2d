package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// ProfileManager owns the connection profile describing the ledger network
// topology. The canonical source is copied to the destination the factory
// reads and the parsed document is cached; connections read the cache, and
// a stale topology is picked up by an explicit Reload rather than a copy on
// every transaction.
type ProfileManager struct {
	src  string
	dest string

	mu      sync.RWMutex
	profile map[string]interface{}
}

func NewProfileManager(src, dest string) *ProfileManager {
	return &ProfileManager{src: src, dest: dest}
}

// Reload refreshes the destination copy from the canonical source and
// re-parses it. A missing source is non-fatal: whatever profile is already
// in place keeps being used, and its absence only surfaces when a
// connection is attempted.
func (p *ProfileManager) Reload() error {
	if err := copyFile(p.src, p.dest); err != nil {
		if os.IsNotExist(err) {
			log.Printf("connection profile source not found: %s", p.src)
		} else {
			log.Printf("failed to copy connection profile: %v", err)
		}
	} else {
		log.Printf("connection profile copied to %s", p.dest)
	}

	data, err := os.ReadFile(p.dest)
	if err != nil {
		if os.IsNotExist(err) {
			p.mu.Lock()
			p.profile = nil
			p.mu.Unlock()
			return nil
		}
		return err
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing connection profile %s: %w", p.dest, err)
	}

	p.mu.Lock()
	p.profile = doc
	p.mu.Unlock()
	return nil
}

// Current returns the cached profile, or false when none is resolvable.
func (p *ProfileManager) Current() (map[string]interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.profile, p.profile != nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
