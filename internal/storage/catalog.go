package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// Entry maps one product to its known store page URLs, keyed by store name.
type Entry struct {
	EAN       string            `json:"ean"`
	Title     string            `json:"title,omitempty"`
	URLs      map[string]string `json:"urls"`
	AddedAt   time.Time         `json:"added_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Catalog is a file-backed index of product page URLs per EAN. Lookups that
// only give an EAN resolve their store targets here.
type Catalog struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	filename string
}

func NewCatalog(filename string) (*Catalog, error) {
	c := &Catalog{
		entries:  make(map[string]*Entry),
		filename: filename,
	}

	if err := c.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return c, nil
}

func (c *Catalog) Add(entry *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry.EAN == "" {
		return fmt.Errorf("EAN is required")
	}
	if entry.URLs == nil {
		entry.URLs = make(map[string]string)
	}

	entry.AddedAt = time.Now()
	entry.UpdatedAt = time.Now()

	c.entries[entry.EAN] = entry
	return c.save()
}

// SetURL records or replaces the page URL for one store, creating the entry
// when the EAN is new.
func (c *Catalog) SetURL(ean, store, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ean == "" {
		return fmt.Errorf("EAN is required")
	}

	entry, exists := c.entries[ean]
	if !exists {
		entry = &Entry{
			EAN:     ean,
			URLs:    make(map[string]string),
			AddedAt: time.Now(),
		}
		c.entries[ean] = entry
	}

	entry.URLs[store] = url
	entry.UpdatedAt = time.Now()

	return c.save()
}

func (c *Catalog) Get(ean string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[ean]
	return entry, exists
}

// URLs returns the store-to-URL map for an EAN, nil when unknown.
func (c *Catalog) URLs(ean string) map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[ean]
	if !exists {
		return nil
	}

	urls := make(map[string]string, len(entry.URLs))
	for store, url := range entry.URLs {
		urls[store] = url
	}
	return urls
}

// EANs lists all catalogued products in stable order.
func (c *Catalog) EANs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	eans := make([]string, 0, len(c.entries))
	for ean := range c.entries {
		eans = append(eans, ean)
	}
	sort.Strings(eans)
	return eans
}

// Stats counts catalogued products and per-store URL coverage.
func (c *Catalog) Stats() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := make(map[string]int)
	for _, entry := range c.entries {
		for store := range entry.URLs {
			stats[store]++
		}
	}
	stats["total"] = len(c.entries)
	return stats
}

func (c *Catalog) save() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return err
	}

	// Write to temp file first for atomicity
	tmpFile := c.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmpFile, c.filename)
}

func (c *Catalog) Load() error {
	data, err := os.ReadFile(c.filename)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &c.entries)
}
