package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/voicelift/voicelift/app/models"
	"github.com/voicelift/voicelift/internal/pkg/billing"
	"github.com/voicelift/voicelift/internal/pkg/deletion"
	"github.com/voicelift/voicelift/internal/pkg/entitlements"
	"github.com/voicelift/voicelift/internal/pkg/identity"
	"github.com/voicelift/voicelift/internal/pkg/usercontext"
)

type stubAccountRepo struct {
	accounts map[string]*models.Account
	updates  int
	deletes  int
}

func newStubAccountRepo(accounts ...*models.Account) *stubAccountRepo {
	repo := &stubAccountRepo{accounts: make(map[string]*models.Account)}
	for _, a := range accounts {
		repo.accounts[a.ID] = a
	}
	return repo
}

func (r *stubAccountRepo) Create(_ context.Context, account *models.Account) error {
	r.accounts[account.ID] = account
	return nil
}

func (r *stubAccountRepo) GetByID(_ context.Context, id string) (*models.Account, error) {
	if a, ok := r.accounts[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubAccountRepo) GetByCustomerID(_ context.Context, customerID string) (*models.Account, error) {
	for _, a := range r.accounts {
		if a.CustomerID != nil && *a.CustomerID == customerID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubAccountRepo) GetBySubscriptionID(_ context.Context, _ string) (*models.Account, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *stubAccountRepo) Update(_ context.Context, account *models.Account) error {
	r.updates++
	copied := *account
	r.accounts[account.ID] = &copied
	return nil
}

func (r *stubAccountRepo) Delete(_ context.Context, id string) error {
	r.deletes++
	delete(r.accounts, id)
	return nil
}

type stubProcessor struct {
	updateCalls int
	cancelCalls int
	cancelErr   error
	sub         *billing.Subscription
}

func (p *stubProcessor) SetCancelAtPeriodEnd(_ context.Context, subscriptionID string, cancel bool) (*billing.Subscription, error) {
	p.updateCalls++
	sub := *p.sub
	sub.ID = subscriptionID
	sub.CancelAtPeriodEnd = cancel
	return &sub, nil
}

func (p *stubProcessor) CancelImmediately(_ context.Context, _ string) error {
	p.cancelCalls++
	return p.cancelErr
}

func (p *stubProcessor) ListByCustomer(_ context.Context, _ string) ([]billing.Subscription, error) {
	return nil, nil
}

type stubIdentityProvider struct{}

func (p *stubIdentityProvider) VerifyToken(_ context.Context, _ string) (*identity.Identity, error) {
	return nil, errors.New("not used")
}

func (p *stubIdentityProvider) DeleteCredential(_ context.Context, _ string) error {
	return nil
}

func testAccount() *models.Account {
	account := models.NewAccount("uid-1", "lena@example.com", "Lena")
	account.Plan = string(entitlements.PlanCreator)
	customerID := "cus_123"
	subID := "sub_123"
	end := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	account.CustomerID = &customerID
	account.SubscriptionID = &subID
	account.SubscriptionStatus = models.SubscriptionStatusActive
	account.CurrentPeriodEnd = &end
	return account
}

// newTestApp wires the subscription routes behind a middleware that
// impersonates the given actor, the way the auth middleware would.
func newTestApp(actorID string, repo *stubAccountRepo, proc *stubProcessor) *fiber.App {
	service := billing.NewService(repo, proc, nil, nil)
	guard := deletion.NewGuard(repo, proc, &stubIdentityProvider{}, nil)
	SetupBilling(service)
	SetupDeletion(guard)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if actorID != "" {
			usercontext.SetUserContext(c, usercontext.UserContext{
				UserID:     actorID,
				Email:      "lena@example.com",
				Name:       "Lena",
				IsLoggedIn: true,
			})
		}
		return c.Next()
	})
	app.Post("/subscription/cancel", HandleSubscriptionCancel)
	app.Post("/subscription/resume", HandleSubscriptionResume)
	app.Get("/subscription/status", HandleSubscriptionStatus)
	app.Delete("/account", HandleAccountDelete)
	return app
}

func postJSON(t *testing.T, app *fiber.App, method, path string, body map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest(method, path, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var decoded map[string]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return resp, decoded
}

func TestHandleSubscriptionCancel(t *testing.T) {
	repo := newStubAccountRepo(testAccount())
	proc := &stubProcessor{sub: &billing.Subscription{
		Status:           models.SubscriptionStatusActive,
		CurrentPeriodEnd: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
	}}
	app := newTestApp("uid-1", repo, proc)

	resp, body := postJSON(t, app, http.MethodPost, "/subscription/cancel", map[string]string{"userId": "uid-1"})

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "cancel_scheduled", body["status"])
	assert.Equal(t, true, body["cancel_at_period_end"])
	assert.Equal(t, "15 Oct 2026", body["access_until"])
	assert.Equal(t, 1, proc.updateCalls)
	assert.True(t, repo.accounts["uid-1"].CancelAtPeriodEnd)
}

func TestHandleSubscriptionCancelActorMismatch(t *testing.T) {
	repo := newStubAccountRepo(testAccount())
	proc := &stubProcessor{sub: &billing.Subscription{Status: models.SubscriptionStatusActive}}
	app := newTestApp("uid-other", repo, proc)

	resp, body := postJSON(t, app, http.MethodPost, "/subscription/cancel", map[string]string{"userId": "uid-1"})

	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden", body["error"])
	assert.Equal(t, 0, proc.updateCalls)
}

func TestHandleSubscriptionCancelMissingUserID(t *testing.T) {
	repo := newStubAccountRepo(testAccount())
	proc := &stubProcessor{sub: &billing.Subscription{Status: models.SubscriptionStatusActive}}
	app := newTestApp("uid-1", repo, proc)

	resp, body := postJSON(t, app, http.MethodPost, "/subscription/cancel", map[string]string{})

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_request", body["error"])
	assert.Equal(t, 0, proc.updateCalls)
}

func TestHandleSubscriptionCancelUnauthenticated(t *testing.T) {
	app := newTestApp("", newStubAccountRepo(), &stubProcessor{})

	resp, body := postJSON(t, app, http.MethodPost, "/subscription/cancel", map[string]string{"userId": "uid-1"})

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", body["error"])
}

func TestHandleSubscriptionCancelAlreadyCanceling(t *testing.T) {
	account := testAccount()
	account.CancelAtPeriodEnd = true
	repo := newStubAccountRepo(account)
	proc := &stubProcessor{sub: &billing.Subscription{Status: models.SubscriptionStatusActive}}
	app := newTestApp("uid-1", repo, proc)

	resp, body := postJSON(t, app, http.MethodPost, "/subscription/cancel", map[string]string{"userId": "uid-1"})

	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ALREADY_CANCELING", body["error"])
	assert.NotEmpty(t, body["current_period_end"])
	assert.Equal(t, 0, proc.updateCalls)
}

func TestHandleSubscriptionResume(t *testing.T) {
	account := testAccount()
	account.CancelAtPeriodEnd = true
	repo := newStubAccountRepo(account)
	proc := &stubProcessor{sub: &billing.Subscription{
		Status:           models.SubscriptionStatusActive,
		CurrentPeriodEnd: *account.CurrentPeriodEnd,
	}}
	app := newTestApp("uid-1", repo, proc)

	resp, body := postJSON(t, app, http.MethodPost, "/subscription/resume", map[string]string{"userId": "uid-1"})

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "active", body["status"])
	assert.False(t, repo.accounts["uid-1"].CancelAtPeriodEnd)
}

func TestHandleSubscriptionResumeNothingToResume(t *testing.T) {
	repo := newStubAccountRepo(models.NewAccount("uid-1", "lena@example.com", "Lena"))
	app := newTestApp("uid-1", repo, &stubProcessor{})

	resp, body := postJSON(t, app, http.MethodPost, "/subscription/resume", map[string]string{"userId": "uid-1"})

	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "NOTHING_TO_RESUME", body["error"])
}

func TestHandleSubscriptionStatus(t *testing.T) {
	account := testAccount()
	account.CancelAtPeriodEnd = true
	repo := newStubAccountRepo(account)
	app := newTestApp("uid-1", repo, &stubProcessor{})

	req, _ := http.NewRequest(http.MethodGet, "/subscription/status?userId=uid-1", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var snapshot billing.StatusSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	assert.Equal(t, billing.StateCancelScheduled, snapshot.State)
	assert.Equal(t, string(entitlements.PlanCreator), snapshot.Plan)
	assert.True(t, snapshot.CancelAtPeriodEnd)
}

func TestHandleAccountDelete(t *testing.T) {
	repo := newStubAccountRepo(testAccount())
	proc := &stubProcessor{}
	app := newTestApp("uid-1", repo, proc)

	resp, body := postJSON(t, app, http.MethodDelete, "/account", map[string]string{"userId": "uid-1"})

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "deleted", body["status"])
	assert.Equal(t, 1, proc.cancelCalls)
	assert.Empty(t, repo.accounts)
}

func TestHandleAccountDeleteProcessorFailure(t *testing.T) {
	repo := newStubAccountRepo(testAccount())
	proc := &stubProcessor{cancelErr: errors.New("gateway timeout")}
	app := newTestApp("uid-1", repo, proc)

	resp, body := postJSON(t, app, http.MethodDelete, "/account", map[string]string{"userId": "uid-1"})

	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "SUBSCRIPTION_CANCEL_FAILED", body["error"])
	assert.Equal(t, 0, repo.deletes)
	assert.Contains(t, repo.accounts, "uid-1")
}
