package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hstrader/models"
)

func TestPutAndGet(t *testing.T) {
	c := NewInstruments()
	_, ok := c.Get(7)
	assert.False(t, ok)
	assert.Nil(t, c.Lookup(7))

	c.Put(models.Symbol{ID: 7, Symbol: "EURUSD", Digits: 5})
	def, ok := c.Get(7)
	require.True(t, ok)
	assert.Equal(t, "EURUSD", def.Symbol)

	c.Put(models.Symbol{ID: 7, Symbol: "EURUSD", Digits: 4})
	assert.Equal(t, int32(4), c.Lookup(7).Digits)
	assert.Equal(t, 1, c.Len())
}

func TestPutIgnoresZeroID(t *testing.T) {
	c := NewInstruments()
	c.Put(models.Symbol{Symbol: "missing"})
	assert.Equal(t, 0, c.Len())
}

func TestPutManyReplacesTable(t *testing.T) {
	c := NewInstruments()
	c.Put(models.Symbol{ID: 1, Symbol: "old"})

	c.PutMany([]models.Symbol{
		{ID: 3, Symbol: "C"},
		{ID: 2, Symbol: "B"},
		{ID: 3, Symbol: "C2"},
	})

	_, ok := c.Get(1)
	assert.False(t, ok)
	all := c.All()
	require.Len(t, all, 2)
	assert.Equal(t, int64(2), all[0].ID)
	assert.Equal(t, "C2", all[1].Symbol)
}

func TestConcurrentAccess(t *testing.T) {
	c := NewInstruments()
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(2)
		go func(id int64) {
			defer wg.Done()
			c.Put(models.Symbol{ID: id})
		}(int64(i))
		go func(id int64) {
			defer wg.Done()
			c.Lookup(id)
		}(int64(i))
	}
	wg.Wait()
	assert.Equal(t, 50, c.Len())
}
