// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/devblok/koru/v2/core"
)

type cacheKey struct {
	filter int
	lod    uint32
}

func TestKeyedCacheIdempotent(t *testing.T) {
	cache := core.NewKeyedCache[cacheKey, int](4)

	var created int
	create := func(k cacheKey) (int, error) {
		created++
		return k.filter*100 + int(k.lod), nil
	}

	a, err := cache.GetOrCreate(cacheKey{1, 4}, create)
	require.NoError(t, err)
	b, err := cache.GetOrCreate(cacheKey{1, 4}, create)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, 1, created)

	c, err := cache.GetOrCreate(cacheKey{1, 5}, create)
	require.NoError(t, err)
	require.NotEqual(t, a, c)
	require.Equal(t, 2, cache.Len())
}

func TestKeyedCacheFailedCreate(t *testing.T) {
	cache := core.NewKeyedCache[cacheKey, int](4)
	boom := errors.New("boom")

	_, err := cache.GetOrCreate(cacheKey{}, func(cacheKey) (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, cache.Len())

	v, err := cache.GetOrCreate(cacheKey{}, func(cacheKey) (int, error) { return 7, nil })
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestKeyedCacheConcurrent(t *testing.T) {
	cache := core.NewKeyedCache[cacheKey, int](16)

	var created atomic.Int32
	var wg sync.WaitGroup
	results := make([]int, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := cache.GetOrCreate(cacheKey{filter: i % 4}, func(k cacheKey) (int, error) {
				return int(created.Add(1)), nil
			})
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(4), created.Load())
	require.Equal(t, 4, cache.Len())
	for i := range results {
		require.Equal(t, results[i%4], results[i])
	}
}

func TestKeyedCacheDestroy(t *testing.T) {
	cache := core.NewKeyedCache[cacheKey, int](4)
	for i := 0; i < 3; i++ {
		_, err := cache.GetOrCreate(cacheKey{filter: i}, func(k cacheKey) (int, error) { return k.filter, nil })
		require.NoError(t, err)
	}

	released := map[int]bool{}
	cache.Destroy(func(_ cacheKey, v int) { released[v] = true })
	require.Equal(t, map[int]bool{0: true, 1: true, 2: true}, released)
	require.Equal(t, 0, cache.Len())

	_, err := cache.GetOrCreate(cacheKey{}, func(cacheKey) (int, error) { return 0, nil })
	require.True(t, errors.Is(err, core.ErrContractViolation))
}
