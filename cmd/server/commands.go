package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"restaurant_backend/internal/cache"
	"restaurant_backend/internal/config"
	"restaurant_backend/internal/database"
	"restaurant_backend/internal/notifications"
	"restaurant_backend/internal/repositories"
	"restaurant_backend/internal/router"
	"restaurant_backend/internal/services"
	"restaurant_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "restaurant-server",
		Short:         "Restaurant ordering backend",
		Long:          "Serves the order, inventory and waste API and delivers queued customer notifications.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the notification dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var schemaPath string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			utils.InitLogger(cfg.LogLevel, cfg.LogPretty)
			if schemaPath == "" {
				schemaPath = cfg.Database.SchemaPath
			}
			db, err := database.InitDB(cfg.Database.DSN())
			if err != nil {
				return err
			}
			defer db.Close()
			return database.ApplySchema(db, schemaPath)
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "schema file to apply instead of the bundled one")
	return cmd
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	utils.InitLogger(cfg.LogLevel, cfg.LogPretty)
	utils.ConfigureJWT(cfg.JWTSecret, cfg.JWTTTL)

	policy, err := services.PolicyByName(cfg.ReservationPolicy)
	if err != nil {
		return err
	}

	db, err := database.InitDB(cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.Database.SchemaPath != "" {
		if err := database.ApplySchema(db, cfg.Database.SchemaPath); err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var rdb *redis.Client
	var idempotency cache.IdempotencyStore
	if cfg.RedisAddr != "" {
		rdb, err = cache.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		idempotency = cache.NewRedisIdempotencyStore(rdb, cfg.IdempotencyTTL)
		utils.LogInfo("Connected to redis", map[string]interface{}{"addr": cfg.RedisAddr})
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(utils.GinLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Idempotency-Key"}
	corsConfig.AllowCredentials = true
	engine.Use(cors.New(corsConfig))

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	router.Setup(engine, db, router.Options{Policy: policy, Idempotency: idempotency})

	dispatcher := notifications.NewDispatcher(
		repositories.NewOutboxRepository(db),
		repositories.NewTransactor(db),
		newSender(cfg, rdb),
		notifications.DispatcherConfig{
			PollInterval: cfg.Notify.PollInterval,
			BatchSize:    cfg.Notify.BatchSize,
			MaxAttempts:  cfg.Notify.MaxAttempts,
		},
	)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()

	return serveHTTP(ctx, cancel, &http.Server{Addr: ":" + cfg.Port, Handler: engine}, db, &wg, policy.Name())
}

func newSender(cfg config.Config, rdb *redis.Client) notifications.Sender {
	if cfg.Notify.Transport == "redis" && rdb != nil {
		return notifications.NewRedisSender(cache.NewPublisher(rdb), cfg.Notify.Channel)
	}
	return notifications.LogSender{}
}

// serveHTTP runs srv until ctx is done or the listener fails. Either way stop is called and the
// background workers in wg are waited for before returning.
func serveHTTP(ctx context.Context, stop context.CancelFunc, srv *http.Server, db *sql.DB, wg *sync.WaitGroup, policy string) error {
	errCh := make(chan error, 1)
	go func() {
		utils.LogInfo("Server starting", map[string]interface{}{"addr": srv.Addr, "reservation_policy": policy})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			utils.LogError(err, "HTTP server failed")
			stop()
			wg.Wait()
			return err
		}
	}

	utils.LogInfo("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.LogError(err, "HTTP server shutdown")
	}
	stop()
	wg.Wait()
	utils.LogInfo("Server stopped", map[string]interface{}{"open_connections": db.Stats().OpenConnections})
	return nil
}

func init() {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
}
