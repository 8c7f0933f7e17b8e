// Package bus is the asynchronous dispatch boundary between the
// controller and the worker fleet, backed by NATS.
package bus

import (
	"context"
	"encoding/json"
	"time"

	"vibeplane/internal/orchestrator"

	"github.com/nats-io/nats.go"
)

// SubjectGenerate carries generation events. One event maps to exactly
// one job on the consumer side.
const SubjectGenerate = "vibeplane.jobs.generate"

// WorkerQueue is the queue group workers subscribe under, so each event
// is delivered to exactly one worker.
const WorkerQueue = "vibeplane-workers"

type Client struct{ nc *nats.Conn }

func Connect(url string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Client{nc: nc}, nil
}

func (c *Client) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}

// PublishGenerate dispatches one generation event.
func (c *Client) PublishGenerate(ctx context.Context, event orchestrator.GenerateEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.nc.Publish(SubjectGenerate, b)
}

// SubscribeGenerate delivers generation events to handler. Decode
// failures are dropped after being reported through onError.
func (c *Client) SubscribeGenerate(handler func(event orchestrator.GenerateEvent), onError func(error)) (*nats.Subscription, error) {
	return c.nc.QueueSubscribe(SubjectGenerate, WorkerQueue, func(msg *nats.Msg) {
		var event orchestrator.GenerateEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			onError(err)
			return
		}
		handler(event)
	})
}
