// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package game

import (
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex(t *testing.T) {
	t.Run("same key is exclusive", func(t *testing.T) {
		k := newKeyedMutex()
		key := ulid.Make()

		unlock := k.Lock(key)
		acquired := make(chan struct{})
		go func() {
			defer close(acquired)
			k.Lock(key)()
		}()

		select {
		case <-acquired:
			t.Fatal("second lock acquired while the first was held")
		case <-time.After(20 * time.Millisecond):
		}
		unlock()
		<-acquired
	})

	t.Run("different keys do not block", func(t *testing.T) {
		k := newKeyedMutex()
		unlockA := k.Lock(ulid.Make())
		defer unlockA()

		done := make(chan struct{})
		go func() {
			k.Lock(ulid.Make())()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("unrelated key blocked")
		}
	})

	t.Run("entries are released", func(t *testing.T) {
		k := newKeyedMutex()
		key := ulid.Make()
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				k.Lock(key)()
			}()
		}
		wg.Wait()
		assert.Equal(t, 0, k.size())
	})
}
