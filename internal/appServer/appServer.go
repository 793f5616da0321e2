package appServer

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/tickethub/config"
	repository "github.com/ds124wfegd/tickethub/internal/database/postgres"
	"github.com/ds124wfegd/tickethub/internal/service"
	"github.com/ds124wfegd/tickethub/internal/transport"
	"github.com/ds124wfegd/tickethub/internal/worker"

	"github.com/ds124wfegd/tickethub/pkg/notifier"
	"github.com/ds124wfegd/tickethub/pkg/postgres"
	"github.com/ds124wfegd/tickethub/pkg/queue"
	"github.com/ds124wfegd/tickethub/pkg/redis"
	"github.com/ds124wfegd/tickethub/pkg/scheduler"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)

	// Initialize database
	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run database migrations
	if err := postgres.RunMigrations(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize store and repositories
	store := repository.NewStore(db)
	eventRepo := repository.NewEventRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	regRepo := repository.NewRegistrationRepository(db)
	waitlistRepo := repository.NewWaitlistRepository(db)
	discountRepo := repository.NewDiscountRepository(db)

	// Initialize notifier
	var notify notifier.Notifier = notifier.NewNopNotifier()
	switch {
	case cfg.RabbitMQ.Enabled:
		rmq, err := notifier.NewRabbitMQNotifier(notifier.RabbitMQConfig{
			URL:       cfg.RabbitMQ.URL,
			QueueName: cfg.RabbitMQ.QueueName,
		})
		if err != nil {
			logrus.Errorf("Failed to initialize RabbitMQ notifier: %v. Notifications disabled", err)
		} else {
			notify = rmq
			defer rmq.Close()
			logrus.Info("RabbitMQ notifier initialized")
		}
	case cfg.Telegram.Enabled && cfg.Telegram.BotToken != "":
		notify = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		logrus.Info("Telegram notifier initialized")
	default:
		logrus.Warn("No notification channel configured, notifications disabled")
	}

	// Initialize Redis: idempotency cache and task queue
	var redisClient *goredis.Client
	var redisQueue queue.Queue
	var taskPublisher service.TaskPublisher

	if cfg.Redis.Enabled {
		redisClient, err = redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logrus.Errorf("Failed to connect to Redis: %v. Continuing without cache and queue", err)
		} else {
			defer redisClient.Close()

			retryManager := queue.NewRetryManager(cfg.Booking.TxRetries, 5*time.Second)
			rq, err := queue.NewRedisQueue(redisClient, queue.DefaultRedisQueueConfig(), retryManager, nil)
			if err != nil {
				logrus.Errorf("Failed to initialize Redis queue: %v. Continuing without queue", err)
			} else {
				logrus.Info("Redis queue initialized")
				redisQueue = rq
				taskPublisher = service.NewQueueAdapter(rq)
			}
		}
	}

	// Initialize services
	catalogService := service.NewCatalogService(eventRepo)
	discountService := service.NewDiscountService(discountRepo, eventRepo)
	waitlistService := service.NewWaitlistService(store, waitlistRepo, taskPublisher, notify,
		cfg.Booking.HoldTTL, cfg.Booking.TxRetries)
	reservationService := service.NewReservationService(store, regRepo, ticketRepo, redisClient, notify,
		cfg.Booking.TxRetries, cfg.Booking.IdempotencyTTL, cfg.Booking.MaxQuantity)
	lifecycleService := service.NewLifecycleService(store, ticketRepo, waitlistService, notify,
		cfg.Booking.TxRetries)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start queue consumer if queue is available
	if redisQueue != nil {
		taskHandler := queue.NewTaskHandler(waitlistService, 30*time.Second)
		go func() {
			if err := redisQueue.Subscribe(ctx, taskHandler.Handle); err != nil {
				logrus.Errorf("Queue subscriber error: %v", err)
			}
		}()
		logrus.Info("Queue subscriber started")
	}

	// Initialize and start hold-expiry scheduler
	holdScheduler := scheduler.NewScheduler(waitlistService, cfg.Worker.SchedulerInterval)
	go holdScheduler.Start(ctx)
	logrus.Info("Hold expiry scheduler started")

	// Initialize sweep worker
	sweepWorker := worker.NewHoldExpiryWorker(taskPublisher, cfg.Worker.SweepInterval)
	go sweepWorker.Start(ctx)
	logrus.Info("Sweep worker started")

	// Initialize handlers
	eventHandler := transport.NewEventHandler(catalogService, discountService)
	purchaseHandler := transport.NewPurchaseHandler(reservationService)
	ticketHandler := transport.NewTicketHandler(lifecycleService)
	waitlistHandler := transport.NewWaitlistHandler(waitlistService)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(eventHandler, purchaseHandler, ticketHandler, waitlistHandler)); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	if redisQueue != nil {
		if err := redisQueue.Close(); err != nil {
			logrus.Errorf("error occured on queue shutting down: %s", err.Error())
		}
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
}
