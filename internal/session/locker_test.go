package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLockerSerializesSameKey(t *testing.T) {
	l := NewLocker()

	unlock := l.Lock(1)
	acquired := make(chan struct{})
	go func() {
		u := l.Lock(1)
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a busy key")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	<-acquired
	assert.Equal(t, 0, l.Held())
}

func TestLockerIndependentKeys(t *testing.T) {
	l := NewLocker()

	unlock := l.Lock(1)
	defer unlock()

	done := make(chan struct{})
	go func() {
		l.Lock(2)()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("different key blocked")
	}
}

func TestLockerUnlockIsIdempotent(t *testing.T) {
	l := NewLocker()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(key int64) {
			defer wg.Done()
			unlock := l.Lock(key % 3)
			unlock()
			unlock()
		}(int64(i))
	}
	wg.Wait()
	assert.Equal(t, 0, l.Held())
}
