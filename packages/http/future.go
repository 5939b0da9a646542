package http

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultFlushConcurrency bounds the calls performed at once by one flush.
const DefaultFlushConcurrency = 16

// Result is the settled outcome of one queued call.
type Result struct {
	Request  *Request
	Response *Response
	Err      error
}

// FuturePool collects the calls a test step issues and performs them as a
// batch on Flush. Forked pools share the client and the rate limiter but keep
// their own queue.
type FuturePool struct {
	client      *Client
	limiter     *rate.Limiter
	concurrency int

	mu    sync.Mutex
	queue []*Request
}

type FutureOption func(*FuturePool)

// WithRateLimit caps outbound calls across every forked pool.
func WithRateLimit(perSecond float64, burst int) FutureOption {
	return func(p *FuturePool) {
		if perSecond <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithFlushConcurrency bounds how many calls one flush performs at once.
func WithFlushConcurrency(n int) FutureOption {
	return func(p *FuturePool) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func NewFuturePool(client *Client, opts ...FutureOption) *FuturePool {
	if client == nil {
		client = NewClient()
	}
	p := &FuturePool{
		client:      client,
		concurrency: DefaultFlushConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fork returns an empty pool sharing this pool's client and limiter.
func (p *FuturePool) Fork() *FuturePool {
	return &FuturePool{
		client:      p.client,
		limiter:     p.limiter,
		concurrency: p.concurrency,
	}
}

func (p *FuturePool) Client() *Client { return p.client }

func (p *FuturePool) Enqueue(reqs ...*Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, reqs...)
}

func (p *FuturePool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func (p *FuturePool) IsEmpty() bool {
	return p.Len() == 0
}

// Flush performs every queued call concurrently and returns the results in
// enqueue order. The queue is empty afterwards. A failed call is reported in
// its Result; the returned error is only set when ctx ends first.
func (p *FuturePool) Flush(ctx context.Context) ([]*Result, error) {
	p.mu.Lock()
	queue := p.queue
	p.queue = nil
	p.mu.Unlock()

	if len(queue) == 0 {
		return []*Result{}, nil
	}

	results := make([]*Result, len(queue))
	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for i, req := range queue {
		g.Go(func() error {
			res := &Result{Request: req}
			results[i] = res

			if p.limiter != nil {
				if err := p.limiter.Wait(ctx); err != nil {
					res.Err = err
					return nil
				}
			}

			res.Response, res.Err = p.client.Do(ctx, req)
			return nil
		})
	}

	_ = g.Wait()
	return results, ctx.Err()
}

// FirstError returns the first transport error among results.
func FirstError(results []*Result) error {
	for _, r := range results {
		if r != nil && r.Err != nil {
			return r.Err
		}
	}
	return nil
}
