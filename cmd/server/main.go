package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stride_back_end/internal/cache"
	"stride_back_end/internal/config"
	"stride_back_end/internal/database"
	"stride_back_end/internal/handlers/order"
	"stride_back_end/internal/logger"
	"stride_back_end/internal/middleware"
	"stride_back_end/internal/repository"
	"stride_back_end/internal/routes"
	"stride_back_end/internal/services"
	"stride_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger depends on config, so this one goes to stderr as is.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clients, err := database.Connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := clients.Close(closeCtx); err != nil {
			log.Warn("closing connections", zap.Error(err))
		}
	}()

	users := cache.NewCachedUsers(repository.NewMongoUsers(clients.DB), clients.Redis, log)
	shoes := repository.NewMongoShoes(clients.DB)

	var storage services.ImageStorage
	uploadDir := ""
	if clients.MinIO != nil {
		storage = services.NewMinIOStorage(clients.MinIO, cfg.Storage.MinIOBucket, cfg.Storage.PublicURL)
	} else {
		uploadDir = cfg.Storage.UploadDir
		storage = services.NewLocalStorage(uploadDir, "/uploads")
	}

	// Both stay untyped nil when not configured; the handlers check for nil.
	var index services.ShoeIndex
	if clients.Elastic != nil {
		index = services.NewElasticShoeIndex(clients.Elastic, cfg.ElasticIndex)
	}
	var gateway services.PaymentGateway
	if cfg.StripeSecretKey != "" {
		gateway = services.NewStripeGateway(cfg.StripeSecretKey, cfg.Currency)
		log.Info("stripe payments enabled")
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, card payments disabled")
	}

	var events services.EventPublisher = services.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		events = services.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Info("publishing order events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}
	var mailer services.Mailer = services.NoopMailer{}
	if cfg.SMTP.Enabled() {
		mailer = services.NewSMTPMailer(cfg.SMTP)
	}

	orders := services.NewOrderService(services.OrderServiceConfig{
		Shoes:    shoes,
		Orders:   repository.NewMongoOrders(clients.DB),
		Events:   events,
		Mailer:   mailer,
		Payments: gateway,
		CODFee:   cfg.CODFee,
		Log:      log,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.RequestLogger(log))
	routes.RegisterRoutes(r, routes.Deps{
		Users:               users,
		Shoes:               shoes,
		Carts:               cache.NewRedisCarts(clients.Redis),
		Attempts:            cache.NewRedisAttempts(clients.Redis),
		Orders:              orders,
		Index:               index,
		Storage:             storage,
		Tokens:              utils.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiresIn),
		AdminEmail:          cfg.AdminEmail,
		AllowedOrigins:      cfg.FrontendURL,
		UploadDir:           uploadDir,
		UPIPayee:            order.UPIPayee{VPA: cfg.UPIPayeeVPA, Name: cfg.UPIPayeeName},
		StripeWebhookSecret: cfg.StripeWebhookSecret,
		Log:                 log,
	})

	// Shutdown does not track hijacked websocket connections; cancelling
	// the base context after it returns closes them.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	cancelBase()

	orders.Wait()
	if err := events.Close(); err != nil {
		log.Warn("closing event publisher", zap.Error(err))
	}
	return nil
}
