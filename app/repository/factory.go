package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles all repository implementations.
type Repositories struct {
	Account      AccountRepository
	WebhookEvent WebhookEventRepository
}

// NewRepositories constructs the full set from one gorm handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Account:      NewAccountRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetAccountRepository returns the account repository instance
func (f *Factory) GetAccountRepository() AccountRepository {
	return f.GetRepositories().Account
}

// GetWebhookEventRepository returns the webhook event repository instance
func (f *Factory) GetWebhookEventRepository() WebhookEventRepository {
	return f.GetRepositories().WebhookEvent
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("repository factory not initialized, call InitializeFactory first")
	}
	return globalFactory
}
