package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vaultpay/vaultpay/internal/cache"
	"github.com/vaultpay/vaultpay/internal/config"
	"github.com/vaultpay/vaultpay/internal/engine"
	"github.com/vaultpay/vaultpay/internal/identity"
	"github.com/vaultpay/vaultpay/internal/ledger"
	"github.com/vaultpay/vaultpay/internal/middleware"
	"github.com/vaultpay/vaultpay/internal/notification"
	"github.com/vaultpay/vaultpay/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. Without a
// database the service runs on the in-memory store, which is only acceptable
// in development.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var store ledger.Store
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB, d.Cfg.LockTimeout)
	} else {
		store = ledger.NewMemory()
	}

	var userRepo identity.Repository
	if d.DB != nil {
		userRepo = identity.NewPostgresRepository(d.DB)
	} else {
		userRepo = identity.NewMemoryRepository()
	}

	var snapshots *cache.WalletCache
	if d.Cache != nil {
		snapshots = cache.NewWalletCache(d.Cache, d.Cfg.CacheTTL)
	}

	identitySvc := identity.NewService(userRepo)
	walletSvc := wallet.NewService(store, userRepo, snapshots)
	notifier := notification.NewLoggerNotifier(d.Logger)
	eng := engine.New(store, snapshots, notifier, d.Logger)

	walletHandler := wallet.NewHandler(walletSvc)
	engineHandler := engine.NewHandler(eng)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFromCtx(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterIdentityRoutes(api, identitySvc, d.Logger)
	RegisterWalletRoutes(api, walletHandler)
	RegisterLedgerRoutes(api, engineHandler)

	return nil
}
