package cache

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	k := Key("translate", "olive oil")
	assert.True(t, strings.HasPrefix(k, "enricher:translate:"))
	assert.Len(t, strings.TrimPrefix(k, "enricher:translate:"), 64)
	assert.Equal(t, k, Key("translate", "olive oil"))
	assert.NotEqual(t, k, Key("summarize", "olive oil"))
}

func TestMemoryTextCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryTextCache()

	_, ok := c.Get(ctx, "translate", "שמן")
	assert.False(t, ok)

	c.Set(ctx, "translate", "שמן", "oil")
	v, ok := c.Get(ctx, "translate", "שמן")
	assert.True(t, ok)
	assert.Equal(t, "oil", v)

	_, ok = c.Get(ctx, "summarize", "שמן")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestMemoryTextCache_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryTextCacheWithLimit(2)

	c.Set(ctx, "translate", "a", "1")
	c.Set(ctx, "translate", "b", "2")
	c.Set(ctx, "translate", "a", "1b")
	assert.Equal(t, 2, c.Len())

	c.Set(ctx, "translate", "c", "3")
	assert.Equal(t, 2, c.Len())

	_, ok := c.Get(ctx, "translate", "a")
	assert.False(t, ok)
	v, ok := c.Get(ctx, "translate", "b")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
	v, ok = c.Get(ctx, "translate", "c")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestMemoryTextCache_DefaultLimit(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryTextCache()
	for i := 0; i < DefaultMemoryEntries+5; i++ {
		c.Set(ctx, "summarize", strconv.Itoa(i), "x")
	}
	assert.Equal(t, DefaultMemoryEntries, c.Len())
	_, ok := c.Get(ctx, "summarize", "0")
	assert.False(t, ok)
}
