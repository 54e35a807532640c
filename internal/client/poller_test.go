package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"coco/internal/model"
)

// slowFetcher 每次请求耗时 delay，记录并发数
type slowFetcher struct {
	delay   time.Duration
	calls   atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (f *slowFetcher) FetchPending(ctx context.Context) ([]model.NotificationRes, error) {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		old := f.maxSeen.Load()
		if n <= old || f.maxSeen.CompareAndSwap(old, n) {
			break
		}
	}
	select {
	case <-time.After(f.delay):
		return []model.NotificationRes{{ID: "1"}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestPollerSingleFlight(t *testing.T) {
	f := &slowFetcher{delay: 40 * time.Millisecond}
	var results atomic.Int32
	p := NewPoller(f, 5*time.Millisecond, func([]model.NotificationRes) { results.Add(1) })

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := p.Start(context.Background()); !errors.Is(err, ErrPollerRunning) {
		t.Fatalf("second start: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	p.Stop()

	if f.maxSeen.Load() != 1 {
		t.Fatalf("%d requests in flight at once", f.maxSeen.Load())
	}
	if p.Skipped() == 0 {
		t.Fatalf("expected ticks to be skipped while a request is in flight")
	}
	if results.Load() == 0 {
		t.Fatalf("no results delivered")
	}
}

func TestPollerStopDropsInflightResult(t *testing.T) {
	release := make(chan struct{})
	fetched := make(chan struct{}, 1)
	f := fetcherFunc(func(ctx context.Context) ([]model.NotificationRes, error) {
		fetched <- struct{}{}
		<-release
		return []model.NotificationRes{{ID: "late"}}, nil
	})
	var results atomic.Int32
	p := NewPoller(f, time.Hour, func([]model.NotificationRes) { results.Add(1) })
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-fetched
	p.Stop()
	close(release)
	time.Sleep(20 * time.Millisecond)

	if results.Load() != 0 {
		t.Fatalf("result delivered after Stop")
	}
	// 可以重新启动
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	p.Stop()
}

func TestPollerStopFromCallback(t *testing.T) {
	f := fetcherFunc(func(ctx context.Context) ([]model.NotificationRes, error) {
		return []model.NotificationRes{{ID: "1"}}, nil
	})
	done := make(chan struct{})
	var once sync.Once
	var p *Poller
	p = NewPoller(f, time.Hour, func([]model.NotificationRes) {
		p.Stop()
		once.Do(func() { close(done) })
	})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Stop inside onResult did not return")
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	p.Stop()
}

type fetcherFunc func(ctx context.Context) ([]model.NotificationRes, error)

func (f fetcherFunc) FetchPending(ctx context.Context) ([]model.NotificationRes, error) {
	return f(ctx)
}

func TestHTTPFetcher(t *testing.T) {
	var (
		mu       sync.Mutex
		gotAuth  string
		gotLimit string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotAuth = r.Header.Get("Authorization")
		gotLimit = r.URL.Query().Get("limit")
		mu.Unlock()
		if r.URL.Path != "/api/v1/notifications/pending" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":0,"message":"ok","data":{"notifications":[{"id":"42","coinId":"btc","severity":"critical"}],"count":1}}`))
	}))
	defer srv.Close()

	list, err := NewHTTPFetcher(srv.URL+"/", "user-1", 20).FetchPending(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(list) != 1 || list[0].ID != "42" || list[0].CoinID != "btc" {
		t.Fatalf("list %+v", list)
	}
	mu.Lock()
	defer mu.Unlock()
	if gotAuth != "Bearer user-1" || gotLimit != "20" {
		t.Fatalf("auth=%q limit=%q", gotAuth, gotLimit)
	}
}

func TestHTTPFetcherError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":10002,"message":"invalid token:missing","data":null}`))
	}))
	defer srv.Close()

	if _, err := NewHTTPFetcher(srv.URL, "bad", 0).FetchPending(context.Background()); err == nil {
		t.Fatalf("expected error for 401")
	}
}
