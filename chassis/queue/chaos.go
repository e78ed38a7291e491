package queue

import (
	"context"
	"fmt"

	"github.com/freundallein/sqsgateway/chassis/monkey"
)

// chaosClient fails calls at random before they reach the queue service, so
// an injected failure leaves no trace upstream.
type chaosClient struct {
	next   Client
	monkey *monkey.Monkey
}

func (c *chaosClient) inject(op string) error {
	if err := c.monkey.RandomizeError(nil); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
	}
	return nil
}

func (c *chaosClient) ListQueues(ctx context.Context) ([]string, error) {
	if err := c.inject("list queues"); err != nil {
		return nil, err
	}
	return c.next.ListQueues(ctx)
}

func (c *chaosClient) CreateQueue(ctx context.Context, name string) error {
	if err := c.inject("create queue"); err != nil {
		return err
	}
	return c.next.CreateQueue(ctx, name)
}

func (c *chaosClient) DeleteQueue(ctx context.Context, name string) error {
	if err := c.inject("delete queue"); err != nil {
		return err
	}
	return c.next.DeleteQueue(ctx, name)
}

func (c *chaosClient) CountMessages(ctx context.Context, name string) (int64, error) {
	if err := c.inject("count messages"); err != nil {
		return 0, err
	}
	return c.next.CountMessages(ctx, name)
}

func (c *chaosClient) SendMessage(ctx context.Context, name string, body string) (string, error) {
	if err := c.inject("send message"); err != nil {
		return "", err
	}
	return c.next.SendMessage(ctx, name, body)
}

func (c *chaosClient) ReceiveMessage(ctx context.Context, name string) (*RecvMessage, error) {
	if err := c.inject("receive message"); err != nil {
		return nil, err
	}
	return c.next.ReceiveMessage(ctx, name)
}

func (c *chaosClient) Acknowledge(ctx context.Context, message *RecvMessage) error {
	if err := c.inject("delete message"); err != nil {
		return err
	}
	return c.next.Acknowledge(ctx, message)
}
