package tabcache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetMissingIsAbsent(t *testing.T) {
	c := New()

	entry, ok := c.Get(1)
	assert.False(t, ok)
	assert.Equal(t, Entry{}, entry)
}

func TestCache_SetOverwrites(t *testing.T) {
	c := New()

	c.Set(42, Entry{Loading: true})
	entry, ok := c.Get(42)
	require.True(t, ok)
	assert.True(t, entry.Loading)

	c.Set(42, Entry{Loading: false})
	entry, ok = c.Get(42)
	require.True(t, ok)
	assert.False(t, entry.Loading)
}

func TestCache_DeleteIsIdempotent(t *testing.T) {
	c := New()
	c.Set(42, Entry{Loading: true})

	assert.True(t, c.Delete(42))
	_, ok := c.Get(42)
	assert.False(t, ok)

	assert.False(t, c.Delete(42))
	_, ok = c.Get(42)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_Update(t *testing.T) {
	c := New()

	updated := c.Update(7, func(e Entry) Entry {
		t.Error("fn must not run for an absent entry")
		return e
	})
	assert.False(t, updated)
	_, ok := c.Get(7)
	assert.False(t, ok)

	c.Set(7, Entry{Loading: true})
	assert.True(t, c.Update(7, func(e Entry) Entry {
		e.Loading = false
		return e
	}))

	entry, ok := c.Get(7)
	require.True(t, ok)
	assert.False(t, entry.Loading)
}

func TestCache_IDsSorted(t *testing.T) {
	c := New()
	c.Set(9, Entry{})
	c.Set(3, Entry{})
	c.Set(5, Entry{})

	assert.Equal(t, []int{3, 5, 9}, c.IDs())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func(id int) {
			defer wg.Done()
			c.Set(id, Entry{Loading: true})
		}(i)
		go func(id int) {
			defer wg.Done()
			c.Get(id)
		}(i)
		go func(id int) {
			defer wg.Done()
			c.Delete(id)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		c.Delete(i)
	}
	assert.Equal(t, 0, c.Len())
}
