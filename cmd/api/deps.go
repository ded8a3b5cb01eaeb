package main

import (
	"log"

	"sparrow/internal/config"
	"sparrow/internal/database"
	"sparrow/internal/handlers"
	"sparrow/internal/plaid"
	"sparrow/internal/webhook"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *database.DB

	// Handlers
	ItemHandler      *handlers.ItemHandler
	LinkEventHandler *handlers.LinkEventHandler
	DashboardHandler *handlers.DashboardHandler
	WebhookHandler   *handlers.WebhookHandler

	// Sync pipeline
	SyncService *plaid.SyncService
	Enqueuer    *plaid.SyncEnqueuer

	// Repositories (for scheduler job provider)
	ItemRepo *database.ItemRepository
}

// NewDependencies initializes all application dependencies. The enqueuer is
// wired to the worker pool after the pool exists; see main.
func NewDependencies(cfg *config.Config, queue plaid.JobQueue) (*Dependencies, error) {
	// Connect to database
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	// Initialize repositories
	itemRepo := database.NewItemRepository(db)
	accountRepo := database.NewAccountRepository(db)
	transactionRepo := database.NewTransactionRepository(db)
	linkEventRepo := database.NewLinkEventRepository(db)

	// Initialize provider client and sync pipeline
	client := plaid.NewClient(plaid.Config{
		ClientID:    cfg.Plaid.ClientID,
		Secret:      cfg.Plaid.Secret,
		Environment: cfg.Plaid.Environment,
	})
	syncer := plaid.NewSyncer(client, cfg.Plaid.MaxRetries)
	persister := plaid.NewPersister(itemRepo, accountRepo, transactionRepo)
	syncService := plaid.NewSyncService(syncer, persister, itemRepo)
	enqueuer := plaid.NewSyncEnqueuer(queue, syncService)

	// Initialize webhook verification
	verifier := webhook.NewVerifier(client, webhook.NewKeyCache())

	// Initialize handlers
	linkSettings := handlers.LinkSettings{
		ClientName:   cfg.Plaid.ClientName,
		Language:     cfg.Plaid.Language,
		Products:     cfg.Plaid.Products,
		CountryCodes: cfg.Plaid.CountryCodes,
		RedirectURI:  cfg.Plaid.RedirectURI,
		WebhookURL:   cfg.Plaid.WebhookURL,
	}
	itemHandler := handlers.NewItemHandler(client, itemRepo, accountRepo, transactionRepo, enqueuer, linkSettings)
	linkEventHandler := handlers.NewLinkEventHandler(linkEventRepo)
	dashboardHandler := handlers.NewDashboardHandler(itemRepo, accountRepo, transactionRepo)
	webhookHandler := handlers.NewWebhookHandler(verifier, itemRepo, persister, enqueuer)

	return &Dependencies{
		DB:               db,
		ItemHandler:      itemHandler,
		LinkEventHandler: linkEventHandler,
		DashboardHandler: dashboardHandler,
		WebhookHandler:   webhookHandler,
		SyncService:      syncService,
		Enqueuer:         enqueuer,
		ItemRepo:         itemRepo,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
