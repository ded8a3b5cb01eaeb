package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"sparrow/internal/models"
)

type MockVerifier struct {
	VerifyFunc func(ctx context.Context, body []byte, signedToken string) bool
}

func (m *MockVerifier) Verify(ctx context.Context, body []byte, signedToken string) bool {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, body, signedToken)
	}
	return true
}

type MockItemResolver struct {
	GetByItemIDFunc func(ctx context.Context, itemID string) (*models.Item, error)
}

func (m *MockItemResolver) GetByItemID(ctx context.Context, itemID string) (*models.Item, error) {
	if m.GetByItemIDFunc != nil {
		return m.GetByItemIDFunc(ctx, itemID)
	}
	return nil, nil
}

type MockItemStateWriter struct {
	MarkItemBadFunc             func(ctx context.Context, item *models.Item) error
	MarkNewAccountsDetectedFunc func(ctx context.Context, item *models.Item) error

	badItems []string
	flagged  []string
}

func (m *MockItemStateWriter) MarkItemBad(ctx context.Context, item *models.Item) error {
	m.badItems = append(m.badItems, item.ItemID)
	if m.MarkItemBadFunc != nil {
		return m.MarkItemBadFunc(ctx, item)
	}
	return nil
}

func (m *MockItemStateWriter) MarkNewAccountsDetected(ctx context.Context, item *models.Item) error {
	m.flagged = append(m.flagged, item.ItemID)
	if m.MarkNewAccountsDetectedFunc != nil {
		return m.MarkNewAccountsDetectedFunc(ctx, item)
	}
	return nil
}

type MockSyncQueue struct {
	EnqueueSyncFunc func(itemID int64) error

	enqueued []int64
}

func (m *MockSyncQueue) EnqueueSync(itemID int64) error {
	m.enqueued = append(m.enqueued, itemID)
	if m.EnqueueSyncFunc != nil {
		return m.EnqueueSyncFunc(itemID)
	}
	return nil
}

func knownItemResolver() *MockItemResolver {
	return &MockItemResolver{
		GetByItemIDFunc: func(ctx context.Context, itemID string) (*models.Item, error) {
			return &models.Item{ID: 42, ItemID: itemID}, nil
		},
	}
}

func postWebhook(t *testing.T, handler *WebhookHandler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/plaid/webhook", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.HandleWebhook(rec, req)
	return rec
}

func TestHandleWebhookUnverified(t *testing.T) {
	verifier := &MockVerifier{
		VerifyFunc: func(ctx context.Context, body []byte, signedToken string) bool {
			return false
		},
	}
	state := &MockItemStateWriter{}
	queue := &MockSyncQueue{}
	handler := NewWebhookHandler(verifier, knownItemResolver(), state, queue)

	rec := postWebhook(t, handler, `{"webhook_type":"TRANSACTIONS","webhook_code":"SYNC_UPDATES_AVAILABLE","item_id":"item-1"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
	if len(queue.enqueued) != 0 {
		t.Error("unverified webhook must not reach dispatch")
	}
}

func TestHandleWebhookMethodNotAllowed(t *testing.T) {
	handler := NewWebhookHandler(&MockVerifier{}, knownItemResolver(), &MockItemStateWriter{}, &MockSyncQueue{})

	req := httptest.NewRequest(http.MethodGet, "/api/plaid/webhook", nil)
	rec := httptest.NewRecorder()
	handler.HandleWebhook(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}
}

func TestHandleWebhookDispatch(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantStatus   int
		wantBad      int
		wantFlagged  int
		wantEnqueued int
	}{
		{
			name:       "item login required marks item bad",
			body:       `{"webhook_type":"ITEM","webhook_code":"ERROR","item_id":"item-1","error":{"error_type":"ITEM_ERROR","error_code":"ITEM_LOGIN_REQUIRED"}}`,
			wantStatus: http.StatusOK,
			wantBad:    1,
		},
		{
			name:       "other item error is logged only",
			body:       `{"webhook_type":"ITEM","webhook_code":"ERROR","item_id":"item-1","error":{"error_type":"ITEM_ERROR","error_code":"INTERNAL_SERVER_ERROR","error_message":"oops"}}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "pending expiration marks item bad",
			body:       `{"webhook_type":"ITEM","webhook_code":"PENDING_EXPIRATION","item_id":"item-1"}`,
			wantStatus: http.StatusOK,
			wantBad:    1,
		},
		{
			name:        "new accounts available sets flag",
			body:        `{"webhook_type":"ITEM","webhook_code":"NEW_ACCOUNTS_AVAILABLE","item_id":"item-1"}`,
			wantStatus:  http.StatusOK,
			wantFlagged: 1,
		},
		{
			name:         "sync updates available enqueues sync",
			body:         `{"webhook_type":"TRANSACTIONS","webhook_code":"SYNC_UPDATES_AVAILABLE","item_id":"item-1"}`,
			wantStatus:   http.StatusOK,
			wantEnqueued: 1,
		},
		{
			name:       "other transactions codes are ignored",
			body:       `{"webhook_type":"TRANSACTIONS","webhook_code":"INITIAL_UPDATE","item_id":"item-1"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown webhook type is acknowledged",
			body:       `{"webhook_type":"ASSETS","webhook_code":"PRODUCT_READY","item_id":"item-1"}`,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &MockItemStateWriter{}
			queue := &MockSyncQueue{}
			handler := NewWebhookHandler(&MockVerifier{}, knownItemResolver(), state, queue)

			rec := postWebhook(t, handler, tt.body)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if len(state.badItems) != tt.wantBad {
				t.Errorf("expected %d items marked bad, got %d", tt.wantBad, len(state.badItems))
			}
			if len(state.flagged) != tt.wantFlagged {
				t.Errorf("expected %d items flagged, got %d", tt.wantFlagged, len(state.flagged))
			}
			if len(queue.enqueued) != tt.wantEnqueued {
				t.Errorf("expected %d syncs enqueued, got %d", tt.wantEnqueued, len(queue.enqueued))
			}
		})
	}
}

func TestHandleWebhookUnknownItem(t *testing.T) {
	resolver := &MockItemResolver{
		GetByItemIDFunc: func(ctx context.Context, itemID string) (*models.Item, error) {
			return nil, nil
		},
	}
	state := &MockItemStateWriter{}
	queue := &MockSyncQueue{}
	handler := NewWebhookHandler(&MockVerifier{}, resolver, state, queue)

	rec := postWebhook(t, handler, `{"webhook_type":"TRANSACTIONS","webhook_code":"SYNC_UPDATES_AVAILABLE","item_id":"ghost"}`)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200 for unknown item, got %d", rec.Code)
	}
	if len(queue.enqueued) != 0 {
		t.Error("expected no sync enqueued for unknown item")
	}
}

func TestHandleWebhookStateWriteFailure(t *testing.T) {
	state := &MockItemStateWriter{
		MarkItemBadFunc: func(ctx context.Context, item *models.Item) error {
			return errors.New("db unavailable")
		},
	}
	handler := NewWebhookHandler(&MockVerifier{}, knownItemResolver(), state, &MockSyncQueue{})

	rec := postWebhook(t, handler, `{"webhook_type":"ITEM","webhook_code":"PENDING_EXPIRATION","item_id":"item-1"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
}

func TestHandleWebhookEnqueueUsesDatabaseID(t *testing.T) {
	queue := &MockSyncQueue{}
	handler := NewWebhookHandler(&MockVerifier{}, knownItemResolver(), &MockItemStateWriter{}, queue)

	rec := postWebhook(t, handler, `{"webhook_type":"TRANSACTIONS","webhook_code":"SYNC_UPDATES_AVAILABLE","item_id":"item-1"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if len(queue.enqueued) != 1 || queue.enqueued[0] != 42 {
		t.Errorf("expected sync enqueued for item 42, got %v", queue.enqueued)
	}
}
