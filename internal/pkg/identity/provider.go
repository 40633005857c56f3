package identity

import "context"

// Identity is the verified actor behind a request token.
type Identity struct {
	UID   string
	Email string
	Name  string
}

// Provider is the external identity service. It owns credentials; this
// service never stores passwords or tokens itself.
type Provider interface {
	// VerifyToken validates a bearer token and returns the actor it belongs to.
	VerifyToken(ctx context.Context, token string) (*Identity, error)
	// DeleteCredential removes the credential record for a uid. Called by the
	// deletion flow after the account record is gone; failures there are
	// best-effort cleanup, not user-facing errors.
	DeleteCredential(ctx context.Context, uid string) error
}
