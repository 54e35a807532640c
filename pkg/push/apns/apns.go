package apns

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"coco/conf"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
	"golang.org/x/net/http2"
)

type PushMessage struct {
	Category string `json:"category,omitempty"`
	Title    string `json:"title,omitempty"`
	Body     string `json:"body,omitempty"`
	// ios notification sound，为空时静音
	Sound     string                 `json:"sound,omitempty"`
	ExtParams map[string]interface{} `json:"ext_params,omitempty"`
}

type PushResponse struct {
	ApnsID string
	Reason string
}

// 基于 token(.p8) 的推送
type Apns struct {
	cfg    conf.Apns
	client *apns2.Client
}

func NewTokenApns(cfg conf.Apns) (*Apns, error) {
	authKey, err := token.AuthKeyFromFile(cfg.AuthKeyP8)
	if err != nil {
		return nil, fmt.Errorf("failed to create APNS auth key: %w", err)
	}

	host := apns2.HostDevelopment
	if cfg.IsProd {
		host = apns2.HostProduction
	}
	return &Apns{
		cfg: cfg,
		client: &apns2.Client{
			Token: &token.Token{
				AuthKey: authKey,
				KeyID:   cfg.KeyID,
				TeamID:  cfg.TeamID,
			},
			HTTPClient: &http.Client{
				Transport: &http2.Transport{
					DialTLS:         apns2.DialTLS,
					TLSClientConfig: &tls.Config{},
				},
				Timeout: apns2.HTTPClientTimeout,
			},
			Host: host,
		},
	}, nil
}

func (a *Apns) Push(ctx context.Context, msg *PushMessage, deviceToken string) (res *PushResponse, err error) {
	if msg == nil {
		return nil, fmt.Errorf("APNS push failed :%s", "无效的message")
	}
	pl := payload.NewPayload().AlertTitle(msg.Title).AlertBody(msg.Body).Category(msg.Category)
	if msg.Sound != "" {
		pl = pl.Sound(msg.Sound)
	}
	if group, ok := msg.ExtParams["group"].(string); ok {
		pl = pl.ThreadID(group)
	}
	for k, v := range msg.ExtParams {
		pl.Custom(strings.ToLower(k), fmt.Sprintf("%v", v))
	}

	expiration := time.Duration(a.cfg.Expiration) * time.Hour
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	resp, err := a.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       a.cfg.Topic,
		Expiration:  time.Now().Add(expiration),
		Payload:     pl.MutableContent(),
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("APNS push failed :%s", resp.Reason)
	}
	return &PushResponse{ApnsID: resp.ApnsID, Reason: resp.Reason}, nil
}
