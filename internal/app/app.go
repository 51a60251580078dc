package app

import (
	"net/http"
	"time"

	"skyfuel-backend/internal/bids"
	"skyfuel-backend/internal/certification"
	"skyfuel-backend/internal/config"
	"skyfuel-backend/internal/contracts"
	"skyfuel-backend/internal/fitscore"
	"skyfuel-backend/internal/health"
	"skyfuel-backend/internal/infrastructure/database"
	"skyfuel-backend/internal/ledger"
	"skyfuel-backend/internal/middleware"
	"skyfuel-backend/internal/models"
	"skyfuel-backend/internal/quotes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CreateApp builds the Fiber app with all global middleware and route
// registration. Vercel invokes the returned handler via adaptor.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = redis.NewClient(opt)
		app.Use(middleware.HealthMarker(rdb))
	}

	app.Use(middleware.ResponseFormatter())
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
	}

	// Health module (GET /, GET /reset, GET /health/json, GET /health/errors)
	healthHandlers := &health.Handlers{
		Rdb:            rdb,
		DB:             dbPinger(db),
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/", healthHandlers.Dashboard)
	app.Get("/reset", healthHandlers.Reset)
	app.Get("/health/json", healthHandlers.JSON)
	app.Get("/health/errors", healthHandlers.Errors)

	// db may be nil when DATABASE_URL is not set (e.g. handler tests).
	if db != nil {
		// Quote requests
		quoteService := &quotes.Service{DB: db}
		quoteHandlers := &quotes.Handlers{Service: quoteService}
		quoteGroup := app.Group("/api/v1/quote-requests")
		quoteGroup.Post("/", quoteHandlers.Create)
		quoteGroup.Get("/", quoteHandlers.List)
		quoteGroup.Post("/sweep", quoteHandlers.Sweep)
		quoteGroup.Get("/:quote_request_id", quoteHandlers.Get)
		quoteGroup.Post("/:quote_request_id/watch", quoteHandlers.Watch)
		quoteGroup.Post("/:quote_request_id/close", quoteHandlers.Close)

		// Fit scoring
		fitService := &fitscore.Service{
			DB:  db,
			Rdb: rdb,
			Bands: fitscore.Bands{
				VolumeComfortRatio: cfg.FitVolumeComfortRatio,
				GHGMarginPts:       cfg.FitGHGMarginPts,
			},
		}
		fitHandlers := &fitscore.Handlers{Service: fitService}
		fitGroup := app.Group("/api/v1/fit")
		fitGroup.Post("/capability", fitHandlers.DeclareCapability)
		fitGroup.Get("/:quote_request_id/:producer_org_id", fitHandlers.GetScore)

		// Bids + approval workflow
		bidService := &bids.Service{
			DB: db,
			Rules: bids.Rules{
				Mode:             models.ApprovalMode(cfg.ApprovalMode),
				MinUnitPrice:     cfg.ApprovalMinUnitPrice,
				MaxContractValue: cfg.ApprovalMaxContractValue,
			},
		}
		bidHandlers := &bids.Handlers{Service: bidService}
		bidGroup := app.Group("/api/v1/bids")
		bidGroup.Post("/", bidHandlers.CreateBid)
		bidGroup.Get("/:bid_id", bidHandlers.GetBid)
		bidGroup.Put("/:bid_id", bidHandlers.UpdateDraft)
		bidGroup.Post("/:bid_id/request-approval", bidHandlers.RequestApproval)
		bidGroup.Post("/:bid_id/decisions", bidHandlers.RecordDecision)
		bidGroup.Post("/:bid_id/submit", bidHandlers.Submit)
		bidGroup.Post("/:bid_id/decide", bidHandlers.Decide)
		bidGroup.Post("/:bid_id/withdraw", bidHandlers.Withdraw)
		bidGroup.Post("/:bid_id/revise", bidHandlers.Revise)

		// Volume ledger
		ledgerService := &ledger.Service{DB: db}
		ledgerHandlers := &ledger.Handlers{Service: ledgerService}
		ledgerGroup := app.Group("/api/v1/ledger")
		ledgerGroup.Post("/batches", ledgerHandlers.LogBatch)
		ledgerGroup.Get("/batches/:batch_id", ledgerHandlers.GetBatch)
		ledgerGroup.Post("/batches/:batch_id/allocate", ledgerHandlers.Allocate)
		ledgerGroup.Post("/batches/:batch_id/deallocate", ledgerHandlers.Deallocate)
		ledgerGroup.Post("/batches/:batch_id/delivered", ledgerHandlers.MarkDelivered)

		// Contracts + delivery tracking
		contractService := &contracts.Service{
			DB:                  db,
			Ledger:              ledgerService,
			DefaultTolerancePct: cfg.DefaultTolerancePct,
		}
		contractHandlers := &contracts.Handlers{Service: contractService}
		contractGroup := app.Group("/api/v1/contracts")
		contractGroup.Post("/materialize", contractHandlers.Materialize)
		contractGroup.Get("/:contract_id", contractHandlers.GetContract)
		contractGroup.Post("/:contract_id/cancel", contractHandlers.Cancel)
		contractGroup.Post("/:contract_id/deliveries/:delivery_id/log", contractHandlers.LogDelivery)
		contractGroup.Post("/:contract_id/deliveries/:delivery_id/invoice", contractHandlers.MarkInvoiced)
		contractGroup.Post("/:contract_id/deliveries/:delivery_id/pay", contractHandlers.MarkPaid)

		// Certification
		certService := &certification.Service{
			DB:           db,
			ExpiryWindow: time.Duration(cfg.CertExpiryWindowDays) * 24 * time.Hour,
		}
		certHandlers := &certification.Handlers{Service: certService}
		certGroup := app.Group("/api/v1/certification")
		certGroup.Put("/certificates", certHandlers.UpsertCertificate)
		certGroup.Post("/sweep", certHandlers.Sweep)
		certGroup.Get("/plants/:plant_id", certHandlers.GetPlantCertification)
	}

	return app, db, rdb, nil
}

// Handler returns an http.Handler for Vercel (Fiber app as net/http handler).
func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}

type gormPinger struct {
	db *gorm.DB
}

func (g *gormPinger) Ping() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func dbPinger(db *gorm.DB) health.DBPinger {
	if db == nil {
		return nil
	}
	return &gormPinger{db: db}
}
