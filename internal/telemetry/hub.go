package telemetry

import (
	"errors"
	"fmt"
	"sync"
)

// Hub fans readings out to live subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the reading.
type Hub struct {
	metrics *Metrics

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]chan Reading
}

// NewHub builds an empty Hub.
func NewHub(metrics *Metrics) *Hub {
	return &Hub{metrics: metrics, subs: make(map[uint64]chan Reading)}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// func unsubscribes and closes the channel; it is safe to call twice.
func (h *Hub) Subscribe(buffer int) (<-chan Reading, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Reading, buffer)
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish offers r to every subscriber. It satisfies Consumer.
func (h *Hub) Publish(r Reading) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	dropped := 0
	for _, ch := range h.subs {
		select {
		case ch <- r:
		default:
			dropped++
		}
	}
	h.metrics.Dropped(dropped)
	return nil
}

// Chain calls every consumer in order. Errors and panics are collected so
// one failing consumer does not starve the ones after it.
func Chain(consumers ...Consumer) Consumer {
	return func(r Reading) error {
		var errs []error
		for _, c := range consumers {
			if c == nil {
				continue
			}
			if err := safeCall(c, r); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

func safeCall(c Consumer, r Reading) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("telemetry: consumer panic: %v", p)
		}
	}()
	return c(r)
}
