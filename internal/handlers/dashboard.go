package handlers

import (
	"log"
	"net/http"

	"github.com/shopspring/decimal"

	"sparrow/internal/database"
	"sparrow/internal/models"
)

const recentTransactionLimit = 10

// DashboardHandler aggregates a user's financial picture into a single
// response for the client app's landing view.
type DashboardHandler struct {
	items        *database.ItemRepository
	accounts     *database.AccountRepository
	transactions *database.TransactionRepository
}

func NewDashboardHandler(
	items *database.ItemRepository,
	accounts *database.AccountRepository,
	transactions *database.TransactionRepository,
) *DashboardHandler {
	return &DashboardHandler{items: items, accounts: accounts, transactions: transactions}
}

type dashboardResponse struct {
	NetWorth           decimal.Decimal          `json:"netWorth"`
	TotalIncome        decimal.Decimal          `json:"totalIncome"`
	TotalExpense       decimal.Decimal          `json:"totalExpense"`
	CategorySpending   []database.CategoryTotal `json:"categorySpending"`
	RecentTransactions []*models.Transaction    `json:"recentTransactions"`
	Items              []*models.Item           `json:"items"`
}

func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := userIDParam(r)
	if !ok {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	netWorth, err := h.accounts.NetWorth(ctx, userID)
	if err != nil {
		log.Printf("Error computing net worth for user %d: %v", userID, err)
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}

	income, expense, err := h.transactions.Totals(ctx, userID)
	if err != nil {
		log.Printf("Error computing totals for user %d: %v", userID, err)
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}

	categories, err := h.transactions.CategoryTotals(ctx, userID)
	if err != nil {
		log.Printf("Error computing category totals for user %d: %v", userID, err)
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}

	recent, err := h.transactions.ListRecentByUserID(ctx, userID, recentTransactionLimit)
	if err != nil {
		log.Printf("Error listing recent transactions for user %d: %v", userID, err)
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}

	items, err := h.items.ListByUserID(ctx, userID)
	if err != nil {
		log.Printf("Error listing items for user %d: %v", userID, err)
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		NetWorth:           netWorth,
		TotalIncome:        income,
		TotalExpense:       expense,
		CategorySpending:   categories,
		RecentTransactions: recent,
		Items:              items,
	})
}
