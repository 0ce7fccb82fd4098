// Package render schedules stencil recomputation.
//
// Settings edits arrive in bursts. A Renderer waits for a quiet period before
// computing, cancels whatever computation is still running when a new request
// arrives, and commits a result only if its request token is still the newest
// one issued. Stale results are dropped without ever becoming visible.
package render

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ironsheep/thermal-stencil/internal/logger"
	"github.com/ironsheep/thermal-stencil/internal/stencil"
)

const component = "render"

// DefaultDelay is the debounce window.
const DefaultDelay = 150 * time.Millisecond

// ComputeFunc produces a stencil. It should return promptly once ctx is done.
type ComputeFunc func(ctx context.Context, src *stencil.RasterBuffer, s stencil.Settings, opts stencil.Options) (*stencil.Result, error)

// Commit is a result that was current when it finished.
type Commit struct {
	Token  uint64
	Result *stencil.Result
	Err    error
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithDelay sets the debounce window. Zero computes on the next timer tick.
func WithDelay(d time.Duration) Option {
	return func(r *Renderer) { r.delay = d }
}

// WithCompute replaces stencil.ComputeContext.
func WithCompute(fn ComputeFunc) Option {
	return func(r *Renderer) { r.compute = fn }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l logger.Logger) Option {
	return func(r *Renderer) { r.log = l }
}

// OnCommit registers a callback invoked for every committed result. It runs on
// the computing goroutine, outside the Renderer's lock.
func OnCommit(fn func(Commit)) Option {
	return func(r *Renderer) { r.onCommit = fn }
}

// Renderer debounces and cancels stencil computations.
type Renderer struct {
	delay    time.Duration
	compute  ComputeFunc
	onCommit func(Commit)
	log      logger.Logger

	mu     sync.Mutex
	token  uint64
	timer  *time.Timer
	cancel context.CancelFunc
	latest *Commit
	closed bool
	// changed is closed and replaced whenever token, latest or closed change.
	changed chan struct{}

	wg sync.WaitGroup
}

// New returns an idle Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		delay:   DefaultDelay,
		compute: stencil.ComputeContext,
		log:     logger.Nop{},
		changed: make(chan struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

var (
	// ErrClosed is returned by Request and Await after Close.
	ErrClosed = errors.New("renderer is closed")
	// ErrSuperseded is returned by Await when a newer request replaced the
	// awaited one before it committed.
	ErrSuperseded = errors.New("render superseded by a newer request")
)

// Request schedules a computation and returns its token. Any pending or
// running computation is superseded and its result will not be committed.
func (r *Renderer) Request(src *stencil.RasterBuffer, s stencil.Settings, opts stencil.Options) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, ErrClosed
	}

	r.token++
	token := r.token
	r.supersede()
	r.notify()

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	r.wg.Add(1)
	r.timer = time.AfterFunc(r.delay, func() {
		defer r.wg.Done()
		defer cancel()
		r.run(ctx, token, src, s, opts)
	})

	r.log.Debug(component, "render requested", map[string]interface{}{"token": token})
	return token, nil
}

// notify wakes every Await. Callers hold r.mu.
func (r *Renderer) notify() {
	close(r.changed)
	r.changed = make(chan struct{})
}

// supersede stops the pending timer and cancels the running computation.
// Callers hold r.mu.
func (r *Renderer) supersede() {
	if r.timer != nil && r.timer.Stop() {
		// The timer had not fired, so its func will never call Done.
		r.wg.Done()
	}
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Renderer) run(ctx context.Context, token uint64, src *stencil.RasterBuffer, s stencil.Settings, opts stencil.Options) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	res, err := r.compute(ctx, src, s, opts)

	r.mu.Lock()
	if token != r.token || r.closed {
		r.mu.Unlock()
		r.log.Debug(component, "discarded stale render", map[string]interface{}{
			"token": token,
		})
		return
	}
	c := Commit{Token: token, Result: res, Err: err}
	r.latest = &c
	r.notify()
	r.mu.Unlock()

	if err != nil {
		r.log.Error(component, err, map[string]interface{}{"token": token})
	} else {
		r.log.Debug(component, "render committed", map[string]interface{}{
			"token":    token,
			"duration": time.Since(start),
		})
	}
	if r.onCommit != nil {
		r.onCommit(c)
	}
}

// Latest returns the most recently committed result.
func (r *Renderer) Latest() (Commit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest == nil {
		return Commit{}, false
	}
	return *r.latest, true
}

// Await blocks until the request identified by token commits and returns its
// result. It fails with ErrSuperseded once a newer request has been issued
// instead, and with ctx.Err() if ctx ends first.
func (r *Renderer) Await(ctx context.Context, token uint64) (Commit, error) {
	for {
		r.mu.Lock()
		switch {
		case r.latest != nil && r.latest.Token == token:
			c := *r.latest
			r.mu.Unlock()
			return c, nil
		case r.token != token:
			r.mu.Unlock()
			return Commit{}, ErrSuperseded
		case r.closed:
			r.mu.Unlock()
			return Commit{}, ErrClosed
		}
		changed := r.changed
		r.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return Commit{}, ctx.Err()
		}
	}
}

// Token returns the newest token issued.
func (r *Renderer) Token() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token
}

// Wait blocks until every scheduled computation has finished or been dropped.
func (r *Renderer) Wait() {
	r.wg.Wait()
}

// Close cancels outstanding work and waits for it to stop. Later requests fail
// with ErrClosed.
func (r *Renderer) Close() {
	r.mu.Lock()
	r.closed = true
	r.supersede()
	r.notify()
	r.mu.Unlock()
	r.wg.Wait()
}
