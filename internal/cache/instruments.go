// Package cache holds the last known instrument definitions for a client session.
package cache

import (
	"sort"
	"sync"

	"hstrader/models"
)

// Instruments is an in-memory table of symbols keyed by id. It never evicts;
// every write replaces the previous definition for the same id.
type Instruments struct {
	mu      sync.RWMutex
	symbols map[int64]models.Symbol
}

func NewInstruments() *Instruments {
	return &Instruments{symbols: make(map[int64]models.Symbol)}
}

// Put upserts a single definition. A zero id means the lookup found nothing
// and is ignored.
func (c *Instruments) Put(def models.Symbol) {
	if def.ID == 0 {
		return
	}
	c.mu.Lock()
	c.symbols[def.ID] = def
	c.mu.Unlock()
}

// PutMany replaces the whole table. Later entries win over earlier ones with
// the same id.
func (c *Instruments) PutMany(defs []models.Symbol) {
	next := make(map[int64]models.Symbol, len(defs))
	for _, def := range defs {
		if def.ID == 0 {
			continue
		}
		next[def.ID] = def
	}
	c.mu.Lock()
	c.symbols = next
	c.mu.Unlock()
}

func (c *Instruments) Get(id int64) (models.Symbol, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.symbols[id]
	return def, ok
}

// Lookup returns a pointer to a copy of the definition, or nil when unknown.
func (c *Instruments) Lookup(id int64) *models.Symbol {
	def, ok := c.Get(id)
	if !ok {
		return nil
	}
	return &def
}

// All returns a snapshot ordered by id.
func (c *Instruments) All() []models.Symbol {
	c.mu.RLock()
	out := make([]models.Symbol, 0, len(c.symbols))
	for _, def := range c.symbols {
		out = append(out, def)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Instruments) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.symbols)
}
