package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"sparrow/internal/models"
	"sparrow/internal/webhook"
)

// Verifier authenticates an inbound webhook body and token.
type Verifier interface {
	Verify(ctx context.Context, body []byte, signedToken string) bool
}

// ItemResolver resolves items by the provider's external item id.
type ItemResolver interface {
	GetByItemID(ctx context.Context, itemID string) (*models.Item, error)
}

// ItemStateWriter applies webhook-driven item state transitions.
type ItemStateWriter interface {
	MarkItemBad(ctx context.Context, item *models.Item) error
	MarkNewAccountsDetected(ctx context.Context, item *models.Item) error
}

// SyncQueue enqueues a background sync round for an item.
type SyncQueue interface {
	EnqueueSync(itemID int64) error
}

type webhookError struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type webhookPayload struct {
	WebhookType string        `json:"webhook_type"`
	WebhookCode string        `json:"webhook_code"`
	ItemID      string        `json:"item_id"`
	Error       *webhookError `json:"error"`
}

// WebhookHandler receives provider webhooks, verifies their authenticity and
// routes them to item-state updates or background syncs.
type WebhookHandler struct {
	verifier Verifier
	items    ItemResolver
	state    ItemStateWriter
	queue    SyncQueue
}

func NewWebhookHandler(verifier Verifier, items ItemResolver, state ItemStateWriter, queue SyncQueue) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, items: items, state: state, queue: queue}
}

// HandleWebhook is the provider-facing webhook endpoint. Unverified payloads
// never reach dispatch.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("Webhook: failed to read body: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	if !h.verifier.Verify(r.Context(), body, r.Header.Get(webhook.HeaderName)) {
		log.Println("Webhook didn't pass verification")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("Webhook: malformed payload: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	if err := h.dispatch(r.Context(), payload); err != nil {
		log.Printf("Webhook error: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) dispatch(ctx context.Context, payload webhookPayload) error {
	switch payload.WebhookType {
	case "ITEM":
		return h.handleItem(ctx, payload)
	case "TRANSACTIONS":
		return h.handleTransactions(ctx, payload)
	default:
		return nil
	}
}

func (h *WebhookHandler) handleItem(ctx context.Context, payload webhookPayload) error {
	item, err := h.items.GetByItemID(ctx, payload.ItemID)
	if err != nil {
		return fmt.Errorf("failed to resolve item %s: %w", payload.ItemID, err)
	}
	if item == nil {
		log.Printf("Webhook: item with id %s not found", payload.ItemID)
		return nil
	}

	switch payload.WebhookCode {
	case "ERROR":
		if payload.Error != nil && payload.Error.ErrorCode == "ITEM_LOGIN_REQUIRED" {
			if err := h.state.MarkItemBad(ctx, item); err != nil {
				return err
			}
			log.Printf("Item %s updated to bad state", item.ItemID)
			return nil
		}
		message := ""
		if payload.Error != nil {
			message = payload.Error.ErrorMessage
		}
		log.Printf("WEBHOOK: ITEM: item id %s: unhandled ITEM error %s", payload.ItemID, message)

	case "PENDING_EXPIRATION":
		if err := h.state.MarkItemBad(ctx, item); err != nil {
			return err
		}
		log.Printf("Item %s updated to bad state", item.ItemID)

	case "NEW_ACCOUNTS_AVAILABLE":
		if err := h.state.MarkNewAccountsDetected(ctx, item); err != nil {
			return err
		}
		log.Printf("Item %s: new accounts detected", item.ItemID)
	}

	return nil
}

func (h *WebhookHandler) handleTransactions(ctx context.Context, payload webhookPayload) error {
	if payload.WebhookCode != "SYNC_UPDATES_AVAILABLE" {
		return nil
	}

	item, err := h.items.GetByItemID(ctx, payload.ItemID)
	if err != nil {
		return fmt.Errorf("failed to resolve item %s: %w", payload.ItemID, err)
	}
	if item == nil {
		log.Printf("Webhook: item with id %s not found", payload.ItemID)
		return nil
	}

	return h.queue.EnqueueSync(item.ID)
}
