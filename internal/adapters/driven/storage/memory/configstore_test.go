package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SeedIsCopied(t *testing.T) {
	seed := map[string]any{"retrieval.top_k": 3}
	store := NewConfigStore(seed)
	seed["retrieval.top_k"] = 9

	assert.Equal(t, 3, store.GetInt("retrieval.top_k"))
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"s":  "value",
		"i":  int64(7),
		"f":  0.25,
		"fi": 2,
	})

	assert.Equal(t, "value", store.GetString("s"))
	assert.Equal(t, "", store.GetString("i"))
	assert.Equal(t, 7, store.GetInt("i"))
	assert.Equal(t, 0, store.GetInt("s"))
	assert.InDelta(t, 0.25, store.GetFloat("f"), 1e-9)
	assert.InDelta(t, 2.0, store.GetFloat("fi"), 1e-9)
	assert.Equal(t, 0, store.GetInt("missing"))
}

func TestConfigStore_Set(t *testing.T) {
	store := NewConfigStore(nil)

	require.NoError(t, store.Set("llm.answerer.model", "m"))
	require.NoError(t, store.Set("collection.name", "c"))

	val, ok := store.Get("collection.name")
	assert.True(t, ok)
	assert.Equal(t, "c", val)
	assert.Equal(t, "m", store.GetString("llm.answerer.model"))
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore(nil)

	var wg sync.WaitGroup
	for n := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Set("k", n)
			_ = store.GetInt("k")
		}()
	}
	wg.Wait()

	_, ok := store.Get("k")
	assert.True(t, ok)
}
