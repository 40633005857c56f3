package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/voicelift/voicelift/internal/pkg/env"
)

// firebaseProvider verifies ID tokens and deletes credential records through
// the Firebase Admin SDK.
type firebaseProvider struct {
	client *auth.Client
}

// NewFirebaseProvider initializes the Admin SDK. With no credentials file
// configured it falls back to application default credentials.
func NewFirebaseProvider(ctx context.Context) (Provider, error) {
	var opts []option.ClientOption
	if file := env.GetEnv("FIREBASE_CREDENTIALS_FILE", ""); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth client: %w", err)
	}

	return &firebaseProvider{client: client}, nil
}

func (p *firebaseProvider) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	decoded, err := p.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}

	id := &Identity{UID: decoded.UID}
	if email, ok := decoded.Claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := decoded.Claims["name"].(string); ok {
		id.Name = name
	}
	return id, nil
}

func (p *firebaseProvider) DeleteCredential(ctx context.Context, uid string) error {
	return p.client.DeleteUser(ctx, uid)
}
