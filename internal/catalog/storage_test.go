package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_AllEnabled(t *testing.T) {
	c := Default()
	assert.Len(t, c.All(), 12)
	assert.Len(t, c.Enabled(), 12)
}

func TestCatalog_Enabled_SkipsDisabled(t *testing.T) {
	c := New([]Item{
		{Name: "clock", Enabled: true},
		{Name: "sink", Enabled: false},
		{Name: "book", Enabled: true},
	})

	enabled := c.Enabled()
	require.Len(t, enabled, 2)
	assert.Equal(t, "clock", enabled[0].Name)
	assert.Equal(t, "book", enabled[1].Name)
}

func TestCatalog_Pick_DistinctEnabledSubset(t *testing.T) {
	c := New([]Item{
		{Name: "clock", Enabled: true},
		{Name: "sink", Enabled: false},
		{Name: "book", Enabled: true},
		{Name: "door", Enabled: true},
		{Name: "chair", Enabled: true},
	})

	for i := 0; i < 50; i++ {
		picked := c.Pick(3)
		require.Len(t, picked, 3)
		seen := make(map[string]bool)
		for _, it := range picked {
			assert.True(t, it.Enabled, "picked disabled item %q", it.Name)
			assert.False(t, seen[it.Name], "duplicate item %q", it.Name)
			seen[it.Name] = true
		}
	}
}

func TestCatalog_Pick_MoreThanAvailable(t *testing.T) {
	c := New([]Item{{Name: "clock", Enabled: true}, {Name: "sink"}})
	assert.Len(t, c.Pick(3), 1)
}

func TestCatalog_Pick_NegativeCount(t *testing.T) {
	c := Default()
	assert.NotPanics(t, func() {
		assert.Empty(t, c.Pick(-1))
	})
}

func TestCatalog_New_Copies(t *testing.T) {
	items := []Item{{Name: "clock", Enabled: true}}
	c := New(items)
	items[0].Name = "changed"
	assert.Equal(t, "clock", c.All()[0].Name)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.yaml")
	data := []byte(`items:
  - name: clock
    prompt: "tick tock"
    confidence: 0.7
    enabled: true
  - name: sink
    enabled: false
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	all := c.All()
	require.Len(t, all, 2)
	assert.Equal(t, "tick tock", all[0].Prompt)
	assert.InDelta(t, 0.7, all[0].Confidence, 1e-9)
	assert.Len(t, c.Enabled(), 1)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("items: []"))
	assert.Error(t, err)

	_, err = Parse([]byte("items:\n  - prompt: nameless\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("items: [:"))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
