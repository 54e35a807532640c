package cache

import (
	"context"
	"time"

	"coco/internal/consts"

	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
)

// SummaryCache 缓存每个用户“有生效提醒的币种”列表，规则变更时失效
type SummaryCache interface {
	Get(ctx context.Context, userId string) ([]string, bool)
	Set(ctx context.Context, userId string, coinIds []string)
	Invalidate(ctx context.Context, userId string)
}

type redisSummaryCache struct {
	rc  *redis.Client
	ttl time.Duration
}

func NewRedisSummaryCache(rc *redis.Client) SummaryCache {
	return &redisSummaryCache{rc: rc, ttl: consts.SummaryCacheTTL}
}

func (c *redisSummaryCache) Get(ctx context.Context, userId string) ([]string, bool) {
	data, err := c.rc.Get(ctx, consts.SummaryCachePrefix+userId).Bytes()
	if err != nil {
		return nil, false
	}
	var coins []string
	if err := json.Unmarshal(data, &coins); err != nil {
		return nil, false
	}
	return coins, true
}

func (c *redisSummaryCache) Set(ctx context.Context, userId string, coinIds []string) {
	data, err := json.Marshal(coinIds)
	if err != nil {
		return
	}
	c.rc.Set(ctx, consts.SummaryCachePrefix+userId, data, c.ttl)
}

func (c *redisSummaryCache) Invalidate(ctx context.Context, userId string) {
	c.rc.Del(ctx, consts.SummaryCachePrefix+userId)
}

// 未启用 redis 时使用进程内 LRU
type lruSummaryCache struct {
	c *lru.Cache
}

func NewLRUSummaryCache(size int) SummaryCache {
	c, _ := lru.New(size)
	return &lruSummaryCache{c: c}
}

func (l *lruSummaryCache) Get(_ context.Context, userId string) ([]string, bool) {
	v, ok := l.c.Get(userId)
	if !ok {
		return nil, false
	}
	coins := v.([]string)
	out := make([]string, len(coins))
	copy(out, coins)
	return out, true
}

func (l *lruSummaryCache) Set(_ context.Context, userId string, coinIds []string) {
	coins := make([]string, len(coinIds))
	copy(coins, coinIds)
	l.c.Add(userId, coins)
}

func (l *lruSummaryCache) Invalidate(_ context.Context, userId string) {
	l.c.Remove(userId)
}
