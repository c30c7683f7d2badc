package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	// Channel names consumed by the web layer's websocket bridge.
	ChannelCampaignStatus = "dialer.campaign_status"
	ChannelCallRouted     = "dialer.call_routed"
)

// RedisPublisher broadcasts events over Redis pub/sub as JSON payloads.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) CampaignStatusChanged(ctx context.Context, e CampaignStatusEvent) error {
	return p.publish(ctx, ChannelCampaignStatus, e)
}

func (p *RedisPublisher) CallRouted(ctx context.Context, e CallRoutedEvent) error {
	return p.publish(ctx, ChannelCallRouted, e)
}

func (p *RedisPublisher) publish(ctx context.Context, channel string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}
	if err := p.rdb.Publish(ctx, channel, b).Err(); err != nil {
		return fmt.Errorf("events: publish %s: %w", channel, err)
	}
	return nil
}
