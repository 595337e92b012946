package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_FIFOPerDevice(t *testing.T) {
	d := NewDispatcher()
	defer d.Shutdown()

	var mu sync.Mutex
	var order []int

	for i := 0; i < 50; i++ {
		i := i
		d.Enqueue(7, func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	flush(d, 7)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 50)
	for i, got := range order {
		assert.Equal(t, i, got)
	}
}

func TestDispatcher_DevicesIndependent(t *testing.T) {
	d := NewDispatcher()
	defer d.Shutdown()

	blocked := make(chan struct{})
	d.Enqueue(1, func() { <-blocked })

	ran := make(chan struct{})
	d.Enqueue(2, func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("device 2 task stuck behind device 1")
	}
	close(blocked)
}

func TestDispatcher_ShutdownDrains(t *testing.T) {
	d := NewDispatcher()

	var mu sync.Mutex
	ran := 0
	for i := 0; i < 10; i++ {
		d.Enqueue(1, func() {
			mu.Lock()
			ran++
			mu.Unlock()
		})
	}

	d.Shutdown()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 10, ran)
}

func TestDispatcher_EnqueueAfterShutdownIgnored(t *testing.T) {
	d := NewDispatcher()
	d.Shutdown()

	d.Enqueue(1, func() {
		t.Error("task ran after shutdown")
	})
	// a second shutdown is a no-op
	d.Shutdown()
}
