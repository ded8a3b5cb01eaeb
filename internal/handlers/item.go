package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"sparrow/internal/database"
	"sparrow/internal/models"
	"sparrow/internal/plaid"
)

// LinkClient is the slice of the provider client the item handlers use.
type LinkClient interface {
	LinkTokenCreate(ctx context.Context, params plaid.LinkTokenCreateParams) (*plaid.LinkTokenCreateResponse, error)
	ItemPublicTokenExchange(ctx context.Context, publicToken string) (*plaid.ItemPublicTokenExchangeResponse, error)
	ItemRemove(ctx context.Context, accessToken string) (*plaid.ItemRemoveResponse, error)
	SandboxItemResetLogin(ctx context.Context, accessToken string) (*plaid.SandboxResponse, error)
	SandboxItemFireWebhook(ctx context.Context, accessToken, webhookCode string) (*plaid.SandboxResponse, error)
}

// LinkSettings carries the static link-flow configuration passed to the
// provider when creating link tokens.
type LinkSettings struct {
	ClientName   string
	Language     string
	Products     []string
	CountryCodes []string
	RedirectURI  string
	WebhookURL   string
}

// ItemHandler owns the linked-item lifecycle: linking, removal, state reset,
// manual sync triggers and reads.
type ItemHandler struct {
	client       LinkClient
	items        *database.ItemRepository
	accounts     *database.AccountRepository
	transactions *database.TransactionRepository
	queue        SyncQueue
	link         LinkSettings
}

func NewItemHandler(
	client LinkClient,
	items *database.ItemRepository,
	accounts *database.AccountRepository,
	transactions *database.TransactionRepository,
	queue SyncQueue,
	link LinkSettings,
) *ItemHandler {
	return &ItemHandler{
		client:       client,
		items:        items,
		accounts:     accounts,
		transactions: transactions,
		queue:        queue,
		link:         link,
	}
}

type createLinkTokenRequest struct {
	UserID              int64 `json:"user_id"`
	ItemID              int64 `json:"item_id"`
	NewAccountsDetected bool  `json:"new_accounts_detected"`
}

// HandleCreateLinkToken creates a link token for the client app. A non-zero
// item_id switches link into update mode for that item; the new-accounts
// flag additionally enables account selection.
func (h *ItemHandler) HandleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createLinkTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	params := plaid.LinkTokenCreateParams{
		ClientName:              h.link.ClientName,
		Language:                h.link.Language,
		Products:                h.link.Products,
		CountryCodes:            h.link.CountryCodes,
		RedirectURI:             h.link.RedirectURI,
		WebhookURL:              h.link.WebhookURL,
		ClientUserID:            strconv.FormatInt(req.UserID, 10),
		AccountSelectionEnabled: req.NewAccountsDetected,
	}

	if req.ItemID != 0 {
		item, err := h.items.GetByID(r.Context(), req.ItemID)
		if err != nil {
			log.Printf("Error loading item %d for link token: %v", req.ItemID, err)
			http.Error(w, "Failed to create link token", http.StatusInternalServerError)
			return
		}
		if item == nil {
			http.Error(w, "Item not found", http.StatusNotFound)
			return
		}
		params.AccessToken = item.AccessToken
	}

	resp, err := h.client.LinkTokenCreate(r.Context(), params)
	if err != nil {
		log.Printf("Error creating link token for user %d: %v", req.UserID, err)
		http.Error(w, "Failed to create link token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

type exchangeTokenRequest struct {
	UserID          int64  `json:"user_id"`
	PublicToken     string `json:"public_token"`
	InstitutionID   string `json:"institution_id"`
	InstitutionName string `json:"institution_name"`
}

// HandleExchangeToken exchanges a link-flow public token for permanent
// credentials, creates the item and kicks off the initial sync.
func (h *ItemHandler) HandleExchangeToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req exchangeTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 || req.PublicToken == "" {
		http.Error(w, "user_id and public_token are required", http.StatusBadRequest)
		return
	}

	linked, err := h.items.HasInstitution(r.Context(), req.UserID, req.InstitutionID)
	if err != nil {
		log.Printf("Error checking institution for user %d: %v", req.UserID, err)
		http.Error(w, "Failed to link bank account", http.StatusInternalServerError)
		return
	}
	if linked {
		http.Error(w, "You have already linked an item at this institution", http.StatusConflict)
		return
	}

	exchange, err := h.client.ItemPublicTokenExchange(r.Context(), req.PublicToken)
	if err != nil {
		log.Printf("Error exchanging public token for user %d: %v", req.UserID, err)
		http.Error(w, "Failed to link bank account", http.StatusInternalServerError)
		return
	}

	item, err := h.items.Create(r.Context(), models.CreateItemParams{
		UserID:          req.UserID,
		AccessToken:     exchange.AccessToken,
		ItemID:          exchange.ItemID,
		InstitutionID:   req.InstitutionID,
		InstitutionName: req.InstitutionName,
	})
	if err != nil {
		log.Printf("Error creating item for user %d: %v", req.UserID, err)
		http.Error(w, "Failed to link bank account", http.StatusInternalServerError)
		return
	}

	// Initial fetch of accounts and transactions.
	if err := h.queue.EnqueueSync(item.ID); err != nil {
		log.Printf("Error enqueueing initial sync for item %d: %v", item.ID, err)
	}

	writeJSON(w, http.StatusCreated, item)
}

// HandleListItems lists a user's linked items.
func (h *ItemHandler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := userIDParam(r)
	if !ok {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	items, err := h.items.ListByUserID(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing items for user %d: %v", userID, err)
		http.Error(w, "Failed to list items", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// HandleItemByID serves GET (fetch) and DELETE (unlink) for one item.
func (h *ItemHandler) HandleItemByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid item id", http.StatusBadRequest)
		return
	}

	item, err := h.items.GetByID(r.Context(), id)
	if err != nil {
		log.Printf("Error loading item %d: %v", id, err)
		http.Error(w, "Failed to load item", http.StatusInternalServerError)
		return
	}
	if item == nil {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, item)

	case http.MethodDelete:
		// Best-effort revoke at the provider; the local record is
		// soft-deleted either way so the user is never stuck with a
		// half-removed connection.
		if _, err := h.client.ItemRemove(r.Context(), item.AccessToken); err != nil {
			log.Printf("Error revoking access token for item %d: %v", id, err)
		}

		if err := h.items.SoftDelete(r.Context(), id); err != nil {
			log.Printf("Error deleting item %d: %v", id, err)
			http.Error(w, "Failed to remove item", http.StatusInternalServerError)
			return
		}

		log.Printf("Item %d deleted successfully", id)
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleSyncItem enqueues an on-demand sync round for an item.
func (h *ItemHandler) HandleSyncItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	if err := h.queue.EnqueueSync(item.ID); err != nil {
		log.Printf("Error enqueueing sync for item %d: %v", item.ID, err)
		http.Error(w, "Failed to schedule sync", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"msg": "Sync scheduled."})
}

// HandleResetItem returns an item to GOOD and clears the new-accounts flag
// after the user completes link update mode.
func (h *ItemHandler) HandleResetItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	if err := h.items.ResetState(r.Context(), item.ID); err != nil {
		log.Printf("Error resetting item %d: %v", item.ID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"msg":   "Something went wrong while updating your bank account.",
			"alert": "danger",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"msg":   "Item updated successfully.",
		"alert": "success",
	})
}

// HandleListItemAccounts lists the accounts under one item.
func (h *ItemHandler) HandleListItemAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	accounts, err := h.accounts.ListByItemID(r.Context(), item.ID)
	if err != nil {
		log.Printf("Error listing accounts for item %d: %v", item.ID, err)
		http.Error(w, "Failed to list accounts", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, accounts)
}

// HandleListAccountTransactions lists transactions for one account,
// paginated newest first.
func (h *ItemHandler) HandleListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid account id", http.StatusBadRequest)
		return
	}

	limit := 50
	offset := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	transactions, err := h.transactions.ListByAccountID(r.Context(), id, limit, offset)
	if err != nil {
		log.Printf("Error listing transactions for account %d: %v", id, err)
		http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, transactions)
}

type sandboxRequest struct {
	ItemID      int64  `json:"item_id"`
	WebhookCode string `json:"webhook_code"`
}

// HandleSandboxResetLogin forces a sandbox item into ITEM_LOGIN_REQUIRED to
// exercise the bad-state flow end to end.
func (h *ItemHandler) HandleSandboxResetLogin(w http.ResponseWriter, r *http.Request) {
	h.sandbox(w, r, func(ctx context.Context, item *models.Item, _ string) error {
		_, err := h.client.SandboxItemResetLogin(ctx, item.AccessToken)
		return err
	})
}

// HandleSandboxFireWebhook asks the sandbox to deliver a webhook for an item.
func (h *ItemHandler) HandleSandboxFireWebhook(w http.ResponseWriter, r *http.Request) {
	h.sandbox(w, r, func(ctx context.Context, item *models.Item, code string) error {
		if code == "" {
			code = "NEW_ACCOUNTS_AVAILABLE"
		}
		_, err := h.client.SandboxItemFireWebhook(ctx, item.AccessToken, code)
		return err
	})
}

func (h *ItemHandler) sandbox(w http.ResponseWriter, r *http.Request, fn func(context.Context, *models.Item, string) error) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req sandboxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.items.GetByID(r.Context(), req.ItemID)
	if err != nil {
		log.Printf("Error loading item %d for sandbox call: %v", req.ItemID, err)
		http.Error(w, "Failed to load item", http.StatusInternalServerError)
		return
	}
	if item == nil {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}

	if err := fn(r.Context(), item, req.WebhookCode); err != nil {
		log.Printf("Sandbox call failed for item %d: %v", req.ItemID, err)
		http.Error(w, "Sandbox call failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *ItemHandler) loadItem(w http.ResponseWriter, r *http.Request) (*models.Item, bool) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid item id", http.StatusBadRequest)
		return nil, false
	}

	item, err := h.items.GetByID(r.Context(), id)
	if err != nil {
		log.Printf("Error loading item %d: %v", id, err)
		http.Error(w, "Failed to load item", http.StatusInternalServerError)
		return nil, false
	}
	if item == nil {
		http.Error(w, "Item not found", http.StatusNotFound)
		return nil, false
	}
	return item, true
}
