package sync

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSameKeySerializes(t *testing.T) {
	m := NewKeyedMutex()
	counter := 0
	var wg sync.WaitGroup

	for range 200 {
		wg.Go(func() {
			_ = m.With("fp:/api/auth/login", func() error {
				counter++
				return nil
			})
		})
	}
	wg.Wait()

	assert.Equal(t, 200, counter)
}

func TestKeyedMutexWithReturnsError(t *testing.T) {
	m := NewKeyedMutex()
	boom := errors.New("boom")
	assert.ErrorIs(t, m.With("k", func() error { return boom }), boom)

	// lock released after error
	m.Lock("k")
	m.Unlock("k")
}

func TestShardForIsStableAndSpread(t *testing.T) {
	assert.Equal(t, shardFor("a"), shardFor("a"))
	assert.Equal(t, shardFor(""), shardFor(""))

	used := make(map[int]bool)
	for i := range 1000 {
		used[shardFor(fmt.Sprintf("10.0.0.%d-abc:/api", i))] = true
	}
	assert.Greater(t, len(used), shardCount/2)
}
