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

	"github.com/congo-pay/walletledger/internal/cache"
	"github.com/congo-pay/walletledger/internal/config"
	"github.com/congo-pay/walletledger/internal/events"
	"github.com/congo-pay/walletledger/internal/identity"
	"github.com/congo-pay/walletledger/internal/ledger"
	"github.com/congo-pay/walletledger/internal/middleware"
	"github.com/congo-pay/walletledger/internal/storage"
	"github.com/congo-pay/walletledger/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg       config.Config
	DB        *pgxpool.Pool
	Cache     *redis.Client
	Publisher events.Publisher
	Logger    *slog.Logger
}

// Services is the wired application core.
type Services struct {
	Wallets *wallet.Service
	Users   *identity.Service
	Engine  *ledger.Engine
	Reader  *ledger.Reader
}

// BuildServices wires the stores, the engine and the readers. Without a
// database every store lives in memory; without Redis the cache is disabled.
func BuildServices(d Deps) Services {
	var (
		units      storage.Manager
		walletRepo wallet.Store
		userRepo   identity.Repository
		txLog      ledger.Log
	)
	if d.DB != nil {
		units = storage.NewPostgresManager(d.DB)
		walletRepo = wallet.NewPostgresStore(d.DB)
		userRepo = identity.NewPostgresRepository(d.DB)
		txLog = ledger.NewPostgresLog(d.DB)
	} else {
		units = storage.NewMemoryManager()
		walletRepo = wallet.NewMemoryStore()
		userRepo = identity.NewMemoryRepository()
		txLog = ledger.NewInMemoryLog()
	}

	store := cache.Disabled()
	if d.Cache != nil {
		store = cache.New(d.Cache, d.Cfg.CacheTTL, d.Logger)
	}
	publisher := d.Publisher
	if publisher == nil {
		publisher = events.NewLoggerPublisher(d.Logger)
	}

	wallets := wallet.NewService(walletRepo, store)
	users := identity.NewService(units, userRepo, wallets, identity.WithLogger(d.Logger))
	engine := ledger.NewEngine(units, walletRepo, txLog,
		ledger.WithInvalidator(store),
		ledger.WithPublisher(publisher),
		ledger.WithLogger(d.Logger))

	return Services{
		Wallets: wallets,
		Users:   users,
		Engine:  engine,
		Reader:  ledger.NewReader(txLog, users, store),
	}
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (Services, error) {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return Services{}, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return Services{}, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	svc := BuildServices(d)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals(middleware.RequestIDHeader).(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterUserRoutes(api, identity.NewHandler(svc.Users))
	RegisterWalletRoutes(api, wallet.NewHandler(svc.Wallets))
	RegisterLedgerRoutes(api, ledger.NewHandler(svc.Engine, svc.Reader, svc.Users))

	return svc, nil
}
