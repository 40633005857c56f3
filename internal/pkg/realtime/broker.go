package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/voicelift/voicelift/app/models"
	"github.com/voicelift/voicelift/internal/pkg/cache"
)

// Broker pushes full account snapshots to subscribers whenever the
// authoritative store changes. Clients never poll; they hold a subscription
// and receive the eventual state once an asynchronous write lands.
type Broker interface {
	Publish(ctx context.Context, account *models.Account) error
	// Subscribe returns a snapshot stream for one account plus a cancel func.
	// The channel is closed after cancel or when the context ends.
	Subscribe(ctx context.Context, accountID string) (<-chan models.Account, func(), error)
}

var broker Broker

// Setup wires the default broker to the shared cache connection.
func Setup() {
	broker = NewRedisBroker(cache.GetClient())
}

// SetBroker swaps the default broker; used by tests and single-instance dev.
func SetBroker(b Broker) {
	broker = b
}

// Publish sends a snapshot through the default broker. Missing setup is a
// programming error in main, not something callers can recover from.
func Publish(ctx context.Context, account *models.Account) error {
	if broker == nil {
		return fmt.Errorf("realtime broker not initialized")
	}
	return broker.Publish(ctx, account)
}

// Subscribe opens a snapshot stream through the default broker.
func Subscribe(ctx context.Context, accountID string) (<-chan models.Account, func(), error) {
	if broker == nil {
		return nil, nil, fmt.Errorf("realtime broker not initialized")
	}
	return broker.Subscribe(ctx, accountID)
}

func channelFor(accountID string) string {
	return "account:updates:" + accountID
}

type redisBroker struct {
	client *redis.Client
}

// NewRedisBroker creates a pub/sub backed broker. Every app instance sees
// every publish, so webhook-driven writes on one node reach SSE clients held
// by another.
func NewRedisBroker(client *redis.Client) Broker {
	return &redisBroker{client: client}
}

func (b *redisBroker) Publish(ctx context.Context, account *models.Account) error {
	payload, err := json.Marshal(account)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channelFor(account.ID), payload).Err()
}

func (b *redisBroker) Subscribe(ctx context.Context, accountID string) (<-chan models.Account, func(), error) {
	sub := b.client.Subscribe(ctx, channelFor(accountID))

	// Force the subscription onto the wire before we report success.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan models.Account, 8)
	done := make(chan struct{})

	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var account models.Account
				if err := json.Unmarshal([]byte(msg.Payload), &account); err != nil {
					log.Printf("realtime: dropping malformed snapshot for %s: %v", accountID, err)
					continue
				}
				select {
				case out <- account:
				default:
					// Slow subscriber; drop rather than block the pump.
				}
			}
		}
	}()

	cancel := func() {
		close(done)
		_ = sub.Close()
	}
	return out, cancel, nil
}
