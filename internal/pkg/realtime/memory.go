package realtime

import (
	"context"
	"sync"

	"github.com/voicelift/voicelift/app/models"
)

// MemoryBroker is an in-process broker for tests and single-instance setups
// where no cache server is running.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[string]map[int]chan models.Account
	next int
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[int]chan models.Account)}
}

func (b *MemoryBroker) Publish(ctx context.Context, account *models.Account) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[account.ID] {
		select {
		case ch <- *account:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, accountID string) (<-chan models.Account, func(), error) {
	ch := make(chan models.Account, 8)

	b.mu.Lock()
	if b.subs[accountID] == nil {
		b.subs[accountID] = make(map[int]chan models.Account)
	}
	id := b.next
	b.next++
	b.subs[accountID][id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[accountID], id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}
