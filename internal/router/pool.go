package router

import (
	"context"
	"sync"

	"github.com/flemzord/catbot/pkg/message"
)

// DefaultWorkerCount is the number of workers when no size is specified.
const DefaultWorkerCount = 4

// WorkerPool manages a fixed set of goroutines that consume from the inbox.
type WorkerPool struct {
	size int
	wg   sync.WaitGroup
}

// NewWorkerPool creates a pool with the given size.
// If size <= 0, DefaultWorkerCount is used.
func NewWorkerPool(size int) *WorkerPool {
	if size <= 0 {
		size = DefaultWorkerCount
	}
	return &WorkerPool{size: size}
}

// Start launches worker goroutines that consume events from inbox until it
// is closed.
func (p *WorkerPool) Start(ctx context.Context, inbox <-chan message.InboundEvent, handler func(context.Context, message.InboundEvent)) {
	for range p.size {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for ev := range inbox {
				handler(ctx, ev)
			}
		}()
	}
}

// Wait blocks until all workers have exited.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
