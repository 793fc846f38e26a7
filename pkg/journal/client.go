package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/dyluth/vinehill/internal/catalog"
	"github.com/redis/go-redis/v9"
)

// Client provides instance-scoped Redis operations for the journal.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a new journal client for the specified instance.
// Returns an error if instanceName is not a valid instance name.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if err := ValidateInstanceName(instanceName); err != nil {
		return nil, err
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// InstanceName returns the namespace this client writes under.
func (c *Client) InstanceName() string {
	return c.instanceName
}

// RecordEvent writes an event, indexes it by time and publishes it.
// The hash write and index update happen in one MULTI/EXEC transaction;
// the publish follows only after both succeed.
func (c *Client) RecordEvent(ctx context.Context, e *Event) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, EventKey(c.instanceName, e.ID), EventToHash(e))
		pipe.ZAdd(ctx, EventIndexKey(c.instanceName), redis.Z{
			Score:  float64(e.AddedAtMs),
			Member: e.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write event to Redis: %w", err)
	}

	eventJSON, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := c.rdb.Publish(ctx, CatalogEventsChannel(c.instanceName), eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish catalog event: %w", err)
	}

	return nil
}

// GetEvent retrieves an event by ID.
// Returns (nil, redis.Nil) if the event doesn't exist. Use IsNotFound to check.
func (c *Client) GetEvent(ctx context.Context, eventID string) (*Event, error) {
	hashData, err := c.rdb.HGetAll(ctx, EventKey(c.instanceName, eventID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read event from Redis: %w", err)
	}

	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	event, err := HashToEvent(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize event: %w", err)
	}
	return event, nil
}

// ListEvents returns events whose added_at_ms lies in [sinceMs, untilMs],
// oldest first. Zero bounds are open.
func (c *Client) ListEvents(ctx context.Context, sinceMs, untilMs int64) ([]*Event, error) {
	min, max := "-inf", "+inf"
	if sinceMs > 0 {
		min = strconv.FormatInt(sinceMs, 10)
	}
	if untilMs > 0 {
		max = strconv.FormatInt(untilMs, 10)
	}

	ids, err := c.rdb.ZRangeByScore(ctx, EventIndexKey(c.instanceName), &redis.ZRangeBy{
		Min: min,
		Max: max,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read event index: %w", err)
	}

	events := make([]*Event, 0, len(ids))
	for _, id := range ids {
		event, err := c.GetEvent(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				// Index entry without a hash; skip it.
				continue
			}
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// ScanEventIDs returns the indexed event IDs that start with prefix.
func (c *Client) ScanEventIDs(ctx context.Context, prefix string) ([]string, error) {
	var matches []string
	iter := c.rdb.ZScan(ctx, EventIndexKey(c.instanceName), 0, prefix+"*", 100).Iterator()
	for i := 0; iter.Next(ctx); i++ {
		// ZSCAN yields member, score, member, score...
		if i%2 == 0 {
			matches = append(matches, iter.Val())
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan event index: %w", err)
	}
	return matches, nil
}

// LoadMessageRef returns the stored directory message id for a category.
// Implements publisher.StateStore.
func (c *Client) LoadMessageRef(ctx context.Context, category catalog.Category) (int, bool, error) {
	val, err := c.rdb.Get(ctx, DirectoryKey(c.instanceName, string(category))).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read directory state: %w", err)
	}

	id, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("invalid directory message id %q: %w", val, err)
	}
	return id, true, nil
}

// SaveMessageRef stores the directory message id for a category.
// Implements publisher.StateStore.
func (c *Client) SaveMessageRef(ctx context.Context, category catalog.Category, messageID int) error {
	if err := c.rdb.Set(ctx, DirectoryKey(c.instanceName, string(category)), messageID, 0).Err(); err != nil {
		return fmt.Errorf("failed to write directory state: %w", err)
	}
	return nil
}

// Subscription represents an active Pub/Sub subscription to catalog events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of catalog events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *Event {
	return s.events
}

// Errors returns the channel of subscription errors.
// The subscription continues after errors - bad messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeCatalogEvents subscribes to catalog events for this instance.
// Delivery is at-most-once: slow subscribers may miss events.
func (c *Client) SubscribeCatalogEvents(ctx context.Context) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, CatalogEventsChannel(c.instanceName))

	// Wait for the subscription to be confirmed so no event published after
	// this call returns can be missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to catalog events: %w", err)
	}

	eventsChan := make(chan *Event, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal catalog event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
