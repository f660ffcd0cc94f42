package msearch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/esgate/internal/domain/search/request"
	"github.com/kailas-cloud/esgate/internal/domain/search/result"
)

// --- Mocks ---

// recordingBackend answers with one hit named after the index and tracks the
// peak number of concurrent calls.
type recordingBackend struct {
	delay  time.Duration
	failOn map[string]error

	mu       sync.Mutex
	inFlight int
	peak     int
	calls    int
}

func (b *recordingBackend) Search(_ context.Context, req request.Request) (result.Result, error) {
	b.mu.Lock()
	b.calls++
	b.inFlight++
	if b.inFlight > b.peak {
		b.peak = b.inFlight
	}
	b.mu.Unlock()

	time.Sleep(b.delay)

	b.mu.Lock()
	b.inFlight--
	b.mu.Unlock()

	if err, ok := b.failOn[req.IndexID()]; ok {
		return result.Result{}, err
	}
	return result.New([]result.Hit{result.NewHit(fmt.Sprintf(`{"index":%q}`, req.IndexID()))}, 1), nil
}

func makeRequests(t *testing.T, n int) []request.Request {
	t.Helper()
	reqs := make([]request.Request, n)
	for i := range reqs {
		req, err := request.New(fmt.Sprintf("idx-%d", i), `{"type":"match_all"}`, 10, 0)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		reqs[i] = req
	}
	return reqs
}

// --- Tests ---

func TestDispatch_PreservesOrder(t *testing.T) {
	backend := &recordingBackend{delay: time.Millisecond}
	reqs := makeRequests(t, 12)

	out := Dispatch(context.Background(), backend, reqs, 4)

	if len(out) != len(reqs) {
		t.Fatalf("expected %d outcomes, got %d", len(reqs), len(out))
	}
	for i, o := range out {
		if o.Err() != nil {
			t.Fatalf("out[%d]: unexpected error %v", i, o.Err())
		}
		want := fmt.Sprintf(`{"index":"idx-%d"}`, i)
		if got := o.Result().Hits()[0].JSON(); got != want {
			t.Errorf("out[%d] = %s, want %s", i, got, want)
		}
	}
}

func TestDispatch_RespectsConcurrencyLimit(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		limit int
	}{
		{"serial", 5, 1},
		{"limit below count", 20, 3},
		{"limit above count", 4, 10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			backend := &recordingBackend{delay: 5 * time.Millisecond}
			Dispatch(context.Background(), backend, makeRequests(t, tc.n), tc.limit)

			if backend.calls != tc.n {
				t.Errorf("calls = %d, want %d", backend.calls, tc.n)
			}
			if backend.peak > tc.limit {
				t.Errorf("peak concurrency = %d exceeds limit %d", backend.peak, tc.limit)
			}
		})
	}
}

func TestDispatch_RunsConcurrently(t *testing.T) {
	backend := &recordingBackend{delay: 20 * time.Millisecond}
	Dispatch(context.Background(), backend, makeRequests(t, 4), 4)

	if backend.peak < 2 {
		t.Errorf("expected parallel calls, peak = %d", backend.peak)
	}
}

func TestDispatch_IsolatesFailures(t *testing.T) {
	boom := errors.New("boom")
	backend := &recordingBackend{failOn: map[string]error{"idx-1": boom}}

	out := Dispatch(context.Background(), backend, makeRequests(t, 3), 2)

	if !errors.Is(out[1].Err(), boom) {
		t.Errorf("out[1] error = %v, want boom", out[1].Err())
	}
	for _, i := range []int{0, 2} {
		if out[i].Err() != nil {
			t.Errorf("out[%d] must succeed, got %v", i, out[i].Err())
		}
	}
	if out[1].Took() != 0 {
		t.Errorf("failed outcome must not carry latency, got %v", out[1].Took())
	}
}

func TestDispatch_MeasuresLatency(t *testing.T) {
	backend := &recordingBackend{delay: 10 * time.Millisecond}

	out := Dispatch(context.Background(), backend, makeRequests(t, 2), 1)

	for i, o := range out {
		if o.Took() < 10*time.Millisecond {
			t.Errorf("out[%d] took %v, want >= 10ms", i, o.Took())
		}
		// With limit 1 the second call waits for the first; the wait is not latency.
		if o.Took() >= 200*time.Millisecond {
			t.Errorf("out[%d] took %v, too long", i, o.Took())
		}
	}
}

func TestDispatch_Empty(t *testing.T) {
	backend := &recordingBackend{}
	out := Dispatch(context.Background(), backend, nil, 10)
	if len(out) != 0 || backend.calls != 0 {
		t.Errorf("expected no work, got %d outcomes and %d calls", len(out), backend.calls)
	}
}
