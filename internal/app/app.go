// Package app builds the complaint bot from its configuration and runs it.
package app

import (
	"complaintbot/backend/internal/admin"
	"complaintbot/backend/internal/api/handler"
	"complaintbot/backend/internal/complaint"
	"complaintbot/backend/internal/config"
	"complaintbot/backend/internal/database"
	"complaintbot/backend/internal/dialog"
	"complaintbot/backend/internal/events"
	"complaintbot/backend/internal/feed"
	"complaintbot/backend/internal/localization"
	"complaintbot/backend/internal/notify"
	"complaintbot/backend/internal/storage"
	"complaintbot/backend/internal/telegram"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

// App is the application context shared by every component.
type App struct {
	Config    *config.Config
	Localizer *localization.Localizer

	DB       *gorm.DB
	Redis    *redis.Client
	Records  storage.RecordStore
	Sessions storage.SessionStore

	Producer   *events.Producer
	Feed       *feed.Manager
	Dispatcher *notify.Dispatcher
	Complaints *complaint.Service
	Console    *admin.Console
	Engine     *dialog.Engine

	Client *telegram.Client
	Bot    *telegram.BotService
	HTTP   *http.Server

	cron *cron.Cron
}

// New authorizes the bot and builds the application.
func New(cfg *config.Config) (*App, error) {
	bot, err := telegram.NewBotAPI(cfg.BotToken, false)
	if err != nil {
		return nil, err
	}
	a, err := Build(cfg, bot)
	if err != nil {
		return nil, err
	}
	a.Bot = telegram.NewBotService(bot, a.Client, a.Engine)
	return a, nil
}

// Build wires every component around the given Telegram API. It does not start anything.
func Build(cfg *config.Config, api telegram.Sender) (*App, error) {
	loc, err := localization.NewLocalizer(cfg.DefaultLang)
	if err != nil {
		return nil, fmt.Errorf("failed to create localizer: %w", err)
	}
	a := &App{Config: cfg, Localizer: loc}

	if err := a.openRecords(); err != nil {
		return nil, err
	}
	if err := a.openSessions(); err != nil {
		a.closeStores()
		return nil, err
	}

	a.Client = telegram.NewClient(api)
	a.Feed = feed.NewManager(a.Redis)
	a.Producer = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)

	// a disabled producer must reach the dispatcher as a nil interface
	var publisher events.Publisher
	if a.Producer.Enabled() {
		publisher = a.Producer
		log.Printf("INFO: publishing complaint events to kafka topic %s", cfg.KafkaTopic)
	} else {
		log.Println("WARN: KAFKA_BROKERS is not set, complaint events will not be published")
	}

	a.Dispatcher = notify.NewDispatcher(notify.NewWebhookClient(cfg.WebhookURL), publisher, a.Feed, a.Client, loc, cfg.DeliveryTimeout)
	a.Complaints = complaint.NewService(a.Records, a.Dispatcher)
	a.Console = admin.NewConsole(cfg.OperatorID, a.Complaints, a.Client, a.Dispatcher, loc, cfg.DefaultLang)
	a.Engine = dialog.NewEngine(a.Sessions, a.Complaints, a.Console, loc, cfg.VideoFileID)

	h := handler.NewHandler(a.Complaints, a.Feed, cfg.OperatorID, cfg.APIJWTSecret)
	h.Ready = a.Ready
	if cfg.APIJWTSecret == "" {
		log.Println("WARN: API_JWT_SECRET is not set, the operator API is disabled")
	}
	a.HTTP = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return a, nil
}

func (a *App) openRecords() error {
	records, db, err := OpenRecords(a.Config)
	if err != nil {
		return err
	}
	a.Records, a.DB = records, db
	return nil
}

// OpenRecords opens the configured record store. The gorm handle is nil for the file store.
func OpenRecords(cfg *config.Config) (storage.RecordStore, *gorm.DB, error) {
	if cfg.StoreDriver == config.StoreDriverPostgres {
		if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		db, err := database.Open(cfg.DSN())
		if err != nil {
			return nil, nil, err
		}
		log.Printf("INFO: complaint records in postgres database %s", cfg.DB.Database)
		return storage.NewSQLStore(db), db, nil
	}

	store, err := storage.OpenFileStore(cfg.StorePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open record log: %w", err)
	}
	log.Printf("INFO: complaint records in %s", cfg.StorePath)
	return store, nil, nil
}

func (a *App) openSessions() error {
	cfg := a.Config
	if cfg.RedisAddr == "" {
		a.Sessions = storage.NewMemorySessions()
		log.Println("WARN: REDIS_ADDR is not set, conversations are kept in memory")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return fmt.Errorf("connect redis: %w", err)
	}
	a.Redis = rdb
	a.Sessions = storage.NewRedisSessions(rdb, cfg.ConversationIdleTTL)
	log.Printf("INFO: conversations in redis at %s", cfg.RedisAddr)
	return nil
}

// Ready pings the backing stores.
func (a *App) Ready(ctx context.Context) error {
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Sweep clears idle conversations once.
func (a *App) Sweep(ctx context.Context) {
	removed, err := a.Engine.Sweep(ctx, a.Config.ConversationIdleTTL)
	if err != nil {
		log.Printf("ERROR: conversation sweep: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("INFO: cleared %d idle conversations", removed)
	}
}

// startSweeper schedules the idle sweep when a conversation TTL is configured.
func (a *App) startSweeper(ctx context.Context) error {
	if a.Config.ConversationIdleTTL <= 0 {
		return nil
	}
	a.cron = cron.New()
	if _, err := a.cron.AddFunc(config.SweepSchedule, func() { a.Sweep(ctx) }); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	a.cron.Start()
	log.Printf("INFO: idle conversations expire after %s", a.Config.ConversationIdleTTL)
	return nil
}

// Run starts the feed hub, the sweeper, the HTTP server and Telegram polling,
// and blocks until ctx is cancelled or the HTTP server fails. Polling is stopped
// before everything else shuts down.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.Feed.Run(ctx)
	if err := a.startSweeper(ctx); err != nil {
		a.Shutdown()
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("INFO: HTTP server listening on %s", a.HTTP.Addr)
		if err := a.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	botDone := make(chan struct{})
	go func() {
		defer close(botDone)
		if a.Bot != nil {
			a.Bot.Run(ctx)
		}
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-serverErr:
		log.Printf("ERROR: HTTP server: %v", err)
	}
	cancel()
	<-botDone
	a.Shutdown()
	return err
}

// Shutdown stops the HTTP server and the sweeper, waits for in-flight
// deliveries and closes the stores.
func (a *App) Shutdown() {
	log.Println("INFO: shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if a.HTTP != nil {
		if err := a.HTTP.Shutdown(ctx); err != nil {
			log.Printf("WARN: HTTP shutdown: %v", err)
		}
	}
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if a.Dispatcher != nil {
		a.Dispatcher.Wait()
		stats := a.Dispatcher.Stats()
		log.Printf("INFO: deliveries: forwarded=%d/%d pushed=%d/%d published=%d/%d",
			stats.Forwarded, stats.Forwarded+stats.ForwardFailed,
			stats.Pushed, stats.Pushed+stats.PushFailed,
			stats.Published, stats.Published+stats.PublishFailed)
	}
	if a.Producer != nil {
		if err := a.Producer.Close(); err != nil {
			log.Printf("WARN: kafka producer close: %v", err)
		}
	}
	a.closeStores()
	log.Println("INFO: stopped")
}

func (a *App) closeStores() {
	if a.Records != nil {
		if err := a.Records.Close(); err != nil {
			log.Printf("WARN: record store close: %v", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.Printf("WARN: redis close: %v", err)
		}
	}
}
