package main

import (
	"net/http"

	"sparrow/internal/handlers"
	"sparrow/internal/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", handlers.HandleHealth)

	// Provider-facing webhook
	mux.HandleFunc("/api/plaid/webhook", deps.WebhookHandler.HandleWebhook)

	// Link flow
	mux.HandleFunc("/api/plaid/link-token", deps.ItemHandler.HandleCreateLinkToken)
	mux.HandleFunc("/api/plaid/exchange-token", deps.ItemHandler.HandleExchangeToken)
	mux.HandleFunc("/api/link-events", deps.LinkEventHandler.HandleCreateLinkEvent)

	// Items
	mux.HandleFunc("/api/items", deps.ItemHandler.HandleListItems)
	mux.HandleFunc("/api/items/{id}", deps.ItemHandler.HandleItemByID)
	mux.HandleFunc("/api/items/{id}/sync", deps.ItemHandler.HandleSyncItem)
	mux.HandleFunc("/api/items/{id}/reset", deps.ItemHandler.HandleResetItem)
	mux.HandleFunc("/api/items/{id}/accounts", deps.ItemHandler.HandleListItemAccounts)

	// Accounts and transactions
	mux.HandleFunc("/api/accounts/{id}/transactions", deps.ItemHandler.HandleListAccountTransactions)

	// Dashboard
	mux.HandleFunc("/api/dashboard", deps.DashboardHandler.HandleDashboard)

	// Sandbox helpers
	mux.HandleFunc("/api/sandbox/reset-login", deps.ItemHandler.HandleSandboxResetLogin)
	mux.HandleFunc("/api/sandbox/fire-webhook", deps.ItemHandler.HandleSandboxFireWebhook)

	// Apply global middleware
	return middleware.Logging(middleware.Tracing(middleware.CORS(mux)))
}
