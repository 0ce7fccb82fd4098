package render

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ironsheep/thermal-stencil/internal/stencil"
)

// recorder collects committed results.
type recorder struct {
	mu      sync.Mutex
	commits []Commit
}

func (r *recorder) add(c Commit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commits = append(r.commits, c)
}

func (r *recorder) all() []Commit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Commit(nil), r.commits...)
}

// marked returns settings tagged with a recognisable contrast value.
func marked(n float64) stencil.Settings {
	s := stencil.DefaultSettings()
	s.Contrast = n
	return s
}

func echo(ctx context.Context, _ *stencil.RasterBuffer, s stencil.Settings, _ stencil.Options) (*stencil.Result, error) {
	return &stencil.Result{Settings: s}, nil
}

func TestRenderer_DebounceCoalesces(t *testing.T) {
	var calls int32
	rec := &recorder{}
	r := New(
		WithDelay(50*time.Millisecond),
		WithCompute(func(ctx context.Context, src *stencil.RasterBuffer, s stencil.Settings, opts stencil.Options) (*stencil.Result, error) {
			atomic.AddInt32(&calls, 1)
			return echo(ctx, src, s, opts)
		}),
		OnCommit(rec.add),
	)
	defer r.Close()

	for i := 1; i <= 3; i++ {
		if _, err := r.Request(nil, marked(float64(i)), stencil.Options{}); err != nil {
			t.Fatalf("Request failed: %v", err)
		}
	}
	r.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("compute ran %d times, want 1", n)
	}
	commits := rec.all()
	if len(commits) != 1 {
		t.Fatalf("got %d commits, want 1", len(commits))
	}
	if commits[0].Token != 3 || commits[0].Result.Settings.Contrast != 3 {
		t.Errorf("committed token %d contrast %v, want 3/3", commits[0].Token, commits[0].Result.Settings.Contrast)
	}
}

func TestRenderer_CancelsInFlight(t *testing.T) {
	started := make(chan float64, 2)
	var cancelled int32
	rec := &recorder{}

	r := New(
		WithDelay(0),
		WithCompute(func(ctx context.Context, src *stencil.RasterBuffer, s stencil.Settings, opts stencil.Options) (*stencil.Result, error) {
			started <- s.Contrast
			if s.Contrast == 1 {
				<-ctx.Done()
				atomic.AddInt32(&cancelled, 1)
				return nil, ctx.Err()
			}
			return echo(ctx, src, s, opts)
		}),
		OnCommit(rec.add),
	)
	defer r.Close()

	r.Request(nil, marked(1), stencil.Options{})
	if got := <-started; got != 1 {
		t.Fatalf("first computation: got %v", got)
	}
	r.Request(nil, marked(2), stencil.Options{})
	r.Wait()

	if atomic.LoadInt32(&cancelled) != 1 {
		t.Error("first computation was not cancelled")
	}
	commits := rec.all()
	if len(commits) != 1 || commits[0].Token != 2 {
		t.Fatalf("got commits %+v, want only token 2", commits)
	}
	latest, ok := r.Latest()
	if !ok || latest.Result.Settings.Contrast != 2 {
		t.Errorf("latest: got %+v (ok=%v)", latest, ok)
	}
}

func TestRenderer_DropsStaleResult(t *testing.T) {
	started := make(chan struct{}, 2)
	gate := make(chan struct{})
	rec := &recorder{}

	r := New(
		WithDelay(0),
		WithCompute(func(ctx context.Context, src *stencil.RasterBuffer, s stencil.Settings, opts stencil.Options) (*stencil.Result, error) {
			started <- struct{}{}
			if s.Contrast == 1 {
				// Ignores cancellation and finishes after the newer request.
				<-gate
			}
			return echo(ctx, src, s, opts)
		}),
		OnCommit(rec.add),
	)
	defer r.Close()

	r.Request(nil, marked(1), stencil.Options{})
	<-started
	r.Request(nil, marked(2), stencil.Options{})
	<-started

	// Let the newer result commit before releasing the stale one.
	deadline := time.Now().Add(2 * time.Second)
	for len(rec.all()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(gate)
	r.Wait()

	commits := rec.all()
	if len(commits) != 1 || commits[0].Token != 2 {
		t.Fatalf("got commits %+v, want only token 2", commits)
	}
	if latest, _ := r.Latest(); latest.Result.Settings.Contrast != 2 {
		t.Errorf("stale result overwrote latest: contrast %v", latest.Result.Settings.Contrast)
	}
}

func TestRenderer_TokensIncrease(t *testing.T) {
	r := New(WithDelay(time.Hour), WithCompute(echo))
	defer r.Close()

	var last uint64
	for i := 0; i < 5; i++ {
		tok, err := r.Request(nil, stencil.DefaultSettings(), stencil.Options{})
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		if tok <= last {
			t.Fatalf("token %d not greater than %d", tok, last)
		}
		last = tok
	}
	if r.Token() != last {
		t.Errorf("Token() = %d, want %d", r.Token(), last)
	}
	if _, ok := r.Latest(); ok {
		t.Error("nothing should be committed while debouncing")
	}
}

func TestRenderer_CommitsErrors(t *testing.T) {
	boom := errors.New("boom")
	r := New(WithDelay(0), WithCompute(func(context.Context, *stencil.RasterBuffer, stencil.Settings, stencil.Options) (*stencil.Result, error) {
		return nil, boom
	}))
	defer r.Close()

	r.Request(nil, stencil.DefaultSettings(), stencil.Options{})
	r.Wait()

	latest, ok := r.Latest()
	if !ok || !errors.Is(latest.Err, boom) {
		t.Errorf("got %+v (ok=%v), want committed error", latest, ok)
	}
}

func TestRenderer_Close(t *testing.T) {
	var calls int32
	r := New(WithDelay(time.Hour), WithCompute(func(ctx context.Context, src *stencil.RasterBuffer, s stencil.Settings, opts stencil.Options) (*stencil.Result, error) {
		atomic.AddInt32(&calls, 1)
		return echo(ctx, src, s, opts)
	}))

	r.Request(nil, stencil.DefaultSettings(), stencil.Options{})
	r.Close()

	if atomic.LoadInt32(&calls) != 0 {
		t.Error("pending computation ran after Close")
	}
	if _, err := r.Request(nil, stencil.DefaultSettings(), stencil.Options{}); !errors.Is(err, ErrClosed) {
		t.Errorf("got %v, want ErrClosed", err)
	}
}

func TestRenderer_DefaultCompute(t *testing.T) {
	src, err := stencil.NewRasterBuffer(8, 6)
	if err != nil {
		t.Fatalf("NewRasterBuffer failed: %v", err)
	}

	done := make(chan Commit, 1)
	r := New(WithDelay(0), OnCommit(func(c Commit) { done <- c }))
	defer r.Close()

	r.Request(src, stencil.DefaultSettings(), stencil.Options{})

	select {
	case c := <-done:
		if c.Err != nil {
			t.Fatalf("compute failed: %v", c.Err)
		}
		if c.Result.Stencil.Width != 8 || c.Result.Stencil.Height != 6 {
			t.Errorf("stencil size: got %dx%d", c.Result.Stencil.Width, c.Result.Stencil.Height)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("render did not commit")
	}
}

func TestRenderer_Await(t *testing.T) {
	r := New(WithDelay(0), WithCompute(echo))
	defer r.Close()

	tok, _ := r.Request(nil, marked(7), stencil.Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := r.Await(ctx, tok)
	if err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if c.Token != tok || c.Result.Settings.Contrast != 7 {
		t.Errorf("got token %d contrast %v", c.Token, c.Result.Settings.Contrast)
	}

	// A committed token stays retrievable.
	if _, err := r.Await(ctx, tok); err != nil {
		t.Errorf("second Await failed: %v", err)
	}
}

func TestRenderer_AwaitSuperseded(t *testing.T) {
	r := New(WithDelay(time.Hour), WithCompute(echo))
	defer r.Close()

	first, _ := r.Request(nil, marked(1), stencil.Options{})

	errc := make(chan error, 1)
	go func() {
		_, err := r.Await(context.Background(), first)
		errc <- err
	}()

	r.Request(nil, marked(2), stencil.Options{})

	select {
	case err := <-errc:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("got %v, want ErrSuperseded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Await did not return after a newer request")
	}
}

func TestRenderer_AwaitContext(t *testing.T) {
	r := New(WithDelay(time.Hour), WithCompute(echo))
	defer r.Close()

	tok, _ := r.Request(nil, marked(1), stencil.Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := r.Await(ctx, tok); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want DeadlineExceeded", err)
	}
}

func TestRenderer_AwaitClosed(t *testing.T) {
	r := New(WithDelay(time.Hour), WithCompute(echo))
	tok, _ := r.Request(nil, marked(1), stencil.Options{})

	errc := make(chan error, 1)
	go func() {
		_, err := r.Await(context.Background(), tok)
		errc <- err
	}()
	r.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("got %v, want ErrClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Await did not return after Close")
	}
}

func TestRenderer_CommitReleasesContext(t *testing.T) {
	ctxs := make(chan context.Context, 1)
	r := New(
		WithDelay(0),
		WithCompute(func(ctx context.Context, src *stencil.RasterBuffer, s stencil.Settings, opts stencil.Options) (*stencil.Result, error) {
			ctxs <- ctx
			return echo(ctx, src, s, opts)
		}),
	)
	defer r.Close()

	token, err := r.Request(nil, marked(1), stencil.Options{})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if _, err := r.Await(context.Background(), token); err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	r.Wait()

	ctx := <-ctxs
	if ctx.Err() == nil {
		t.Error("context of a committed render is still live")
	}
	if r.Token() != token {
		t.Errorf("token changed to %d without a new request", r.Token())
	}
}
