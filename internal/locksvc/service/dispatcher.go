package service

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

const deviceQueueSize = 64

// Dispatcher gives FIFO-per-device event ordering: each device gets a
// buffered inbox drained by a single goroutine, so two near-simultaneous
// events for the same device are applied in arrival order while different
// devices proceed independently.
type Dispatcher struct {
	mu     sync.Mutex
	queues map[int64]chan func()
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{queues: make(map[int64]chan func())}
}

// Enqueue schedules the task on the device's inbox, spawning its consumer
// on first use. A full inbox drops the task; the device is flooding faster
// than decisions can be made and back-pressuring the broker callback would
// stall every other device.
func (d *Dispatcher) Enqueue(deviceID int64, task func()) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	q, ok := d.queues[deviceID]
	if !ok {
		q = make(chan func(), deviceQueueSize)
		d.queues[deviceID] = q
		d.wg.Add(1)
		go d.consume(deviceID, q)
	}
	d.mu.Unlock()

	select {
	case q <- task:
	default:
		log.Warnf("device %d inbox full, dropping event", deviceID)
	}
}

func (d *Dispatcher) consume(deviceID int64, q chan func()) {
	defer d.wg.Done()
	for task := range q {
		task()
	}
}

// Shutdown closes all inboxes and waits for in-flight tasks to finish.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()

	d.wg.Wait()
}
