package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace-core/internal/config"
	"github.com/ariefcatur/go-marketplace-core/internal/httpx"
	kafkax "github.com/ariefcatur/go-marketplace-core/internal/kafka"
	"github.com/ariefcatur/go-marketplace-core/internal/logging"
	"github.com/ariefcatur/go-marketplace-core/internal/orders"
	"github.com/ariefcatur/go-marketplace-core/internal/postgres"
	"github.com/ariefcatur/go-marketplace-core/internal/prefs"
	"github.com/ariefcatur/go-marketplace-core/internal/redisx"
	"github.com/ariefcatur/go-marketplace-core/internal/theme"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers
	statusProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024, log)
	statusProd.Start(ctx)
	themeProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicThemeChanged, 256, log)
	themeProd.Start(ctx)

	// Preferences
	store := prefs.NewStore(prefsStorage(cfg, db, rdb, log), log,
		prefs.WithDefaultPreset(theme.Preset(cfg.DefaultTheme)))
	stopThemes := httpx.PublishThemeChanges(store, themeProd, cfg.ServiceName, log)
	loadPrefs(ctx, store, cfg.PrefsUserID)

	// Handlers
	router := httpx.NewRouter(log)
	(&httpx.OrdersHandler{
		Repo:     &orders.Repo{DB: db},
		Producer: statusProd,
		Redis:    rdb,
		Prefs:    store,
		Service:  cfg.ServiceName,
		Log:      log,
	}).Register(router)
	(&httpx.PrefsHandler{Store: store}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("prefs_backend", cfg.PrefsBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	if err := store.Shutdown(ctx2); err != nil { // drain pending theme writes
		log.Warn("theme writes not drained", zap.Error(err))
	}
	stopThemes()
	statusProd.Close()
	themeProd.Close()
	statusProd.WaitClosed()
	themeProd.WaitClosed()
}

func prefsStorage(cfg config.Config, db *pgxpool.Pool, rdb *redis.Client, log *zap.Logger) prefs.Storage {
	switch cfg.PrefsBackend {
	case config.BackendPostgres:
		return postgres.NewKVStore(db, cfg.PrefsNamespace)
	case config.BackendMemory:
		log.Warn("preferences kept in memory only")
		return prefs.NewMemoryStorage()
	default:
		return redisx.NewStorage(rdb, cfg.PrefsNamespace)
	}
}

// loadPrefs runs the initial read before the server accepts requests; it
// decides the signed-in user, and requests must not race it.
func loadPrefs(ctx context.Context, store *prefs.Store, userID string) {
	ctx, cancel := context.WithTimeout(ctx, prefsLoadTimeout)
	defer cancel()
	store.Load(ctx, userID)
}

const prefsLoadTimeout = 5 * time.Second
