package catalog

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the read-only list of huntable items.
type Catalog struct {
	items []Item
}

func New(items []Item) *Catalog {
	cp := make([]Item, len(items))
	copy(cp, items)
	return &Catalog{items: cp}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return New([]Item{
		{Name: "light switch", Prompt: "One little switch and on comes the light / turn me off when the time is night!", Enabled: true},
		{Name: "clock", Prompt: "My hands move across the hour / check me when you need to know the time", Enabled: true},
		{Name: "door", Enabled: true},
		{Name: "chair", Enabled: true},
		{Name: "light", Enabled: true},
		{Name: "paper", Enabled: true},
		{Name: "book", Enabled: true},
		{Name: "sink", Enabled: true},
		{Name: "pencil", Enabled: true},
		{Name: "outlet", Enabled: true},
		{Name: "door knob", Enabled: true},
		{Name: "backpack", Enabled: true},
	})
}

type file struct {
	Items []Item `yaml:"items"`
}

// Load reads a catalog from a YAML file of the form:
//
//	items:
//	  - name: clock
//	    prompt: "..."
//	    confidence: 0.6
//	    enabled: true
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(f.Items) == 0 {
		return nil, fmt.Errorf("catalog has no items")
	}
	for i, it := range f.Items {
		if it.Name == "" {
			return nil, fmt.Errorf("catalog item %d has no name", i)
		}
	}
	return New(f.Items), nil
}

func (c *Catalog) All() []Item {
	cp := make([]Item, len(c.items))
	copy(cp, c.items)
	return cp
}

func (c *Catalog) Enabled() []Item {
	var enabled []Item
	for _, it := range c.items {
		if it.Enabled {
			enabled = append(enabled, it)
		}
	}
	return enabled
}

// Pick returns n distinct enabled items in random order. When fewer than n
// items are enabled, all of them are returned.
func (c *Catalog) Pick(n int) []Item {
	enabled := c.Enabled()
	if n < 0 {
		n = 0
	}
	if n > len(enabled) {
		n = len(enabled)
	}
	picked := make([]Item, 0, n)
	for _, idx := range rand.Perm(len(enabled))[:n] {
		picked = append(picked, enabled[idx])
	}
	return picked
}
