package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"coco/internal/consts"
	"coco/internal/model"
	"coco/pkg/logger"
	"coco/pkg/utils"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

const maxRetries = 3

var backoffBase = 500 * time.Millisecond

// coinMetricsDTO 行情数据源返回的单个币种，字段缺失表示没有该指标
type coinMetricsDTO struct {
	CoinID           string                           `json:"coinId"`
	Price            *decimal.Decimal                 `json:"price"`
	HealthScore      *decimal.Decimal                 `json:"healthScore"`
	ConsistencyScore *decimal.Decimal                 `json:"consistencyScore"`
	PriceChange24h   *decimal.Decimal                 `json:"priceChange24h"`
	Events           map[consts.AlertType]eventSignal `json:"events"`
	AsOf             time.Time                        `json:"asOf"`
}

type eventSignal struct {
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

type metricsResponse struct {
	Coins []coinMetricsDTO `json:"coins"`
}

// Client 通过 HTTP 拉取币种指标
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(rawURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid market data URL: %s", rawURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(u.String(), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Metrics 批量查询，数据源没有返回的币种不出现在结果中
func (c *Client) Metrics(ctx context.Context, coinIds []string) (map[string]model.CoinMetrics, error) {
	out := make(map[string]model.CoinMetrics, len(coinIds))
	if len(coinIds) == 0 {
		return out, nil
	}
	q := url.Values{}
	q.Set("ids", strings.Join(coinIds, ","))
	endpoint := c.baseURL + "/coins/metrics?" + q.Encode()

	var resp metricsResponse
	if err := c.getWithRetry(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	for _, dto := range resp.Coins {
		out[dto.CoinID] = dto.toModel()
	}
	return out, nil
}

func (dto coinMetricsDTO) toModel() model.CoinMetrics {
	m := model.CoinMetrics{
		CoinID:           dto.CoinID,
		Price:            dto.Price,
		HealthScore:      dto.HealthScore,
		ConsistencyScore: dto.ConsistencyScore,
		PriceChange24h:   dto.PriceChange24h,
		AsOf:             dto.AsOf,
	}
	for t, ev := range dto.Events {
		m = m.WithEvent(t, model.EventSignal{Source: ev.Source, Confidence: ev.Confidence})
	}
	return m
}

// getWithRetry 5xx 和网络错误按指数退避重试
func (c *Client) getWithRetry(ctx context.Context, endpoint string, result any) error {
	attempt := 0
	return utils.Retry(ctx, maxRetries, backoffBase, true, func() error {
		attempt++
		err := c.get(ctx, endpoint, result)
		if err != nil {
			logger.Warnf("market data request failed (attempt %d/%d): %v", attempt, maxRetries, err)
		}
		return err
	})
}

// get 返回的错误用 utils.Permanent 包装时不再重试
func (c *Client) get(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return utils.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return utils.Permanent(ctx.Err())
		}
		return fmt.Errorf("request market data: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("market data status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return utils.Permanent(fmt.Errorf("market data status %d: %s", resp.StatusCode, string(body)))
	}
	if err := json.Unmarshal(body, result); err != nil {
		return utils.Permanent(fmt.Errorf("decode market data: %w", err))
	}
	return nil
}
