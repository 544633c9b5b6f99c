package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vietddude/invoker/internal/notify"
)

// DefaultToastChannel is the pub/sub channel web gateways subscribe to.
const DefaultToastChannel = "invoker:toasts"

// ToastPublisher publishes toasts as JSON on a pub/sub channel.
type ToastPublisher struct {
	client  *Client
	channel string
}

// NewToastPublisher creates a publisher. An empty channel uses
// DefaultToastChannel.
func NewToastPublisher(client *Client, channel string) *ToastPublisher {
	if channel == "" {
		channel = DefaultToastChannel
	}
	return &ToastPublisher{client: client, channel: channel}
}

// Render implements notify.Renderer.
func (p *ToastPublisher) Render(ctx context.Context, t notify.Toast) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal toast: %w", err)
	}
	if err := p.client.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish toast: %w", err)
	}
	return nil
}
