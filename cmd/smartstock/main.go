package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	inventoryapp "github.com/wyfcoding/smartstock/internal/inventory/application"
	"github.com/wyfcoding/smartstock/internal/inventory/infrastructure/messaging"
	persistence "github.com/wyfcoding/smartstock/internal/inventory/infrastructure/persistence/mysql"
	inventoryhttp "github.com/wyfcoding/smartstock/internal/inventory/interfaces/http"
	pricingapp "github.com/wyfcoding/smartstock/internal/pricing/application"
	pricingdomain "github.com/wyfcoding/smartstock/internal/pricing/domain"
	pricingcache "github.com/wyfcoding/smartstock/internal/pricing/infrastructure/cache"
	"github.com/wyfcoding/smartstock/internal/pricing/infrastructure/client"
	"github.com/wyfcoding/smartstock/internal/pricing/infrastructure/llm"
	pricinghttp "github.com/wyfcoding/smartstock/internal/pricing/interfaces/http"
	"github.com/wyfcoding/smartstock/pkg/cache"
	"github.com/wyfcoding/smartstock/pkg/config"
	"github.com/wyfcoding/smartstock/pkg/db"
	"github.com/wyfcoding/smartstock/pkg/logger"
	"github.com/wyfcoding/smartstock/pkg/metrics"
	"github.com/wyfcoding/smartstock/pkg/middleware"
	"github.com/wyfcoding/smartstock/pkg/mq"
	"github.com/wyfcoding/smartstock/pkg/ratelimit"
)

func main() {
	configPath := flag.String("config", "configs/smartstock/config.toml", "config file path")
	issueToken := flag.String("issue-token", "", "print a signed token for actor:role and exit")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *issueToken != "" {
		if err := printToken(cfg, *issueToken); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// 2. 初始化日志
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger.Info(ctx, "Starting smartstock", "environment", cfg.Environment, "db_driver", cfg.Database.Driver)

	// 3. 初始化数据库
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize database", "error", err)
	}
	defer database.Close()

	if cfg.Database.AutoMigrate {
		if err := persistence.Migrate(ctx, database, &messaging.OutboxMessage{}); err != nil {
			logger.Fatal(ctx, "Failed to migrate database", "error", err)
		}
	}

	// 4. 初始化 Redis（可选），用于定价建议缓存与限流
	var (
		limiter     ratelimit.Limiter
		suggestions pricingdomain.SuggestionCache
	)
	if cfg.Redis.Enabled {
		redisCache, err := cache.New(cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			logger.Fatal(ctx, "Failed to initialize redis", "error", err)
		}
		defer redisCache.Close()
		limiter = ratelimit.NewRedisLimiter(redisCache.Client(), "smartstock:ratelimit:")
		suggestions = pricingcache.NewSuggestionCache(redisCache)
	} else {
		logger.Warn(ctx, "Redis disabled, pricing suggestions are neither cached nor rate limited")
	}

	// 5. 初始化指标
	m := metrics.New(cfg.ServiceName)

	// 6. 仓储与应用服务
	products := persistence.NewProductRepository(database)
	categories := persistence.NewCategoryRepository(database)
	sales := persistence.NewSaleRepository(database)
	alerts := persistence.NewAlertRepository(database)
	movements := persistence.NewMovementRepository(database)
	invoices := persistence.NewInvoiceSequencer(database)
	publisher := messaging.NewOutboxEventPublisher(database)

	txOpts := inventoryapp.TxOptions{
		Timeout:    cfg.Inventory.TxTimeoutDuration(),
		MaxRetries: cfg.Inventory.MaxRetries,
	}
	reconciler := inventoryapp.NewStockReconciler(inventoryapp.StockReconcilerDeps{
		Tx:        database,
		Products:  products,
		Alerts:    alerts,
		Movements: movements,
		Publisher: publisher,
		Metrics:   m,
		TxOptions: txOpts,
	})
	ledger := inventoryapp.NewSaleLedger(inventoryapp.SaleLedgerDeps{
		Tx:           database,
		Products:     products,
		Sales:        sales,
		Invoices:     invoices,
		Reconciler:   reconciler,
		Publisher:    publisher,
		Metrics:      m,
		TxOptions:    txOpts,
		TotalPolicy:  cfg.Inventory.TotalPolicy,
		PaymentModes: cfg.Inventory.PaymentModes,
	})
	commands := inventoryapp.NewProductCommandService(inventoryapp.ProductCommandDeps{
		Tx:              database,
		Products:        products,
		Categories:      categories,
		Sales:           sales,
		Alerts:          alerts,
		Movements:       movements,
		Reconciler:      reconciler,
		Metrics:         m,
		TxOptions:       txOpts,
		DefaultMinLevel: cfg.Inventory.DefaultMinStockLevel,
	})
	queries := inventoryapp.NewInventoryQueryService(products, categories, sales, alerts, movements)

	var advisor pricingdomain.Advisor
	if cfg.Advisor.Enabled {
		advisor = llm.NewGroqAdvisor(llm.Config{
			BaseURL:         cfg.Advisor.BaseURL,
			APIKey:          cfg.Advisor.APIKey,
			Model:           cfg.Advisor.Model,
			Timeout:         time.Duration(cfg.Advisor.Timeout) * time.Millisecond,
			BreakerFailures: cfg.Advisor.BreakerFailures,
			BreakerOpen:     time.Duration(cfg.Advisor.BreakerOpen) * time.Second,
		})
	}
	pricing := pricingapp.NewPricingService(
		client.NewInventoryClient(queries), advisor, suggestions,
		time.Duration(cfg.Advisor.CacheTTL)*time.Second, m,
	)

	// 7. HTTP 路由
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.GinLoggingMiddleware(),
		middleware.GinRecoveryMiddleware(),
		middleware.GinCORSMiddleware(cfg.HTTP.AllowOrigins),
		middleware.GinMetricsMiddleware(m),
	)
	r.GET("/healthz", func(c *gin.Context) {
		if err := database.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP", "service": cfg.ServiceName})
	})
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Warn(ctx, "JWT secret not configured, actors are taken from request headers")
	}
	api := r.Group("/api/v1", middleware.JWTAuth(cfg.Auth.JWTSecret, cfg.Auth.Issuer))
	inventoryhttp.NewInventoryHandler(ledger, commands, queries).RegisterRoutes(api)
	pricinghttp.NewPricingHandler(pricing, limiter, cfg.Advisor.RatePerMinute).RegisterRoutes(api)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// 8. 启动
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(gctx, "HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := mq.NewProducer(mq.KafkaConfig{Brokers: cfg.Kafka.Brokers})
		if err != nil {
			logger.Fatal(ctx, "Failed to initialize kafka producer", "error", err)
		}
		defer producer.Close()
		relay := messaging.NewOutboxRelay(database, producer, cfg.Kafka.Topic,
			time.Duration(cfg.Kafka.RelayInterval)*time.Millisecond, cfg.Kafka.RelayBatch, m)
		g.Go(func() error {
			return relay.Run(gctx)
		})
	} else {
		logger.Info(ctx, "Kafka brokers not configured, outbox events stay in the database")
	}

	// 9. 优雅关闭
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(context.Background(), "Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(context.Background(), "Server exited with error", "error", err)
		return
	}
	logger.Info(context.Background(), "Server exited")
}

func printToken(cfg *config.Config, actorRole string) error {
	actor, role, ok := strings.Cut(actorRole, ":")
	if !ok || actor == "" {
		return fmt.Errorf("expected actor:role, got %q", actorRole)
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is not configured")
	}
	token, err := middleware.IssueToken(cfg.Auth.JWTSecret, cfg.Auth.Issuer, actor, role,
		time.Duration(cfg.Auth.TokenTTL)*time.Minute)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
