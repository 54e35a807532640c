package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"coco/internal/model"
	"coco/pkg/logger"

	"github.com/goccy/go-json"
)

var ErrPollerRunning = errors.New("poller already running")

// Fetcher 拉取待处理提醒
type Fetcher interface {
	FetchPending(ctx context.Context) ([]model.NotificationRes, error)
}

// HTTPFetcher 调用 GET /api/v1/notifications/pending
type HTTPFetcher struct {
	baseURL    string
	token      string
	limit      int
	httpClient *http.Client
}

func NewHTTPFetcher(baseURL, token string, limit int) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		limit:      limit,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type pendingEnvelope struct {
	Code    int                       `json:"code"`
	Message string                    `json:"message"`
	Data    model.NotificationListRes `json:"data"`
}

func (f *HTTPFetcher) FetchPending(ctx context.Context) ([]model.NotificationRes, error) {
	q := url.Values{}
	if f.limit > 0 {
		q.Set("limit", strconv.Itoa(f.limit))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/api/v1/notifications/pending?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+f.token)
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch pending notifications: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var env pendingEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode pending notifications (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || env.Code != 0 {
		return nil, fmt.Errorf("pending notifications: status %d code %d: %s", resp.StatusCode, env.Code, env.Message)
	}
	return env.Data.Notifications, nil
}

// Poller 协作式轮询：同一时间最多一个请求在途，在途时的 tick 直接跳过；Stop 后在途结果丢弃
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	onResult func([]model.NotificationRes)

	inflight atomic.Bool
	skipped  atomic.Int64

	mu      sync.Mutex
	running bool
	gen     uint64
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewPoller(f Fetcher, interval time.Duration, onResult func([]model.NotificationRes)) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{fetcher: f, interval: interval, onResult: onResult}
}

func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrPollerRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	p.running = true
	p.gen++
	p.cancel = cancel
	gen := p.gen

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		p.tick(ctx, gen)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.tick(ctx, gen)
			}
		}
	}()
	return nil
}

// Stop 之后返回的结果一律丢弃；不等待正在执行的 onResult
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.gen++
	p.cancel()
	p.mu.Unlock()
	p.wg.Wait()
}

// Skipped 因上一个请求未返回而跳过的 tick 数
func (p *Poller) Skipped() int64 {
	return p.skipped.Load()
}

func (p *Poller) tick(ctx context.Context, gen uint64) bool {
	if !p.inflight.CompareAndSwap(false, true) {
		p.skipped.Add(1)
		return false
	}
	go func() {
		defer p.inflight.Store(false)
		res, err := p.fetcher.FetchPending(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warnf("poll pending notifications: %v", err)
			}
			return
		}
		p.deliver(gen, res)
	}()
	return true
}

func (p *Poller) deliver(gen uint64, res []model.NotificationRes) {
	p.mu.Lock()
	current := p.running && gen == p.gen
	cb := p.onResult
	p.mu.Unlock()
	// 回调不持锁，onResult 里可以调用 Stop
	if current && cb != nil {
		cb(res)
	}
}
