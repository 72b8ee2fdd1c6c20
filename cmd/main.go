/**
 * @description
 * This is the main entry point for the domain-service. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, external API clients, message brokers, repositories, the core
 * application service, and the HTTP server. It wires everything together and
 * starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: Distributed rate limiting.
 * - github.com/robfig/cron/v3: Scheduled claim reconciliation.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/stacksclient, pkg/pinataclient, pkg/rabbitmq: External service clients.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/betterbns/domain-service/internal/api"
	"github.com/betterbns/domain-service/internal/app"
	"github.com/betterbns/domain-service/internal/config"
	"github.com/betterbns/domain-service/internal/store"
	"github.com/betterbns/domain-service/pkg/pinataclient"
	rmrabbit "github.com/betterbns/domain-service/pkg/rabbitmq"
	"github.com/betterbns/domain-service/pkg/stacksclient"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.TreasuryAddress) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"treasury address must be configured\" env=TREASURY_ADDRESS")
	}
	if strings.TrimSpace(cfg.SessionSigningKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"session signing key must be configured\" env=SESSION_SIGNING_KEY")
	}

	log.Printf("level=info component=bootstrap msg=\"starting domain-service\" port=%s network=%s", cfg.ServerPort, cfg.StacksNetwork)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish claim and issuance events.
	// This service only needs to publish, so we use a producer.
	var producer rmrabbit.Publisher
	rabbitProducer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rmrabbit.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		producer = rabbitProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the client for the Stacks chain indexer API.
	chainClient := stacksclient.NewClient(cfg.StacksAPIBaseURL)

	// Initialize the IPFS pinning client. Missing Pinata config should not
	// prevent the service from booting; uploads and issue preparation degrade.
	if strings.TrimSpace(cfg.PinataJWT) == "" {
		log.Println("level=warn component=bootstrap msg=\"pinata jwt missing; ipfs pinning will fail\" env=PINATA_JWT")
	}
	pinClient := pinataclient.NewClient("", cfg.PinataGateway, cfg.PinataJWT)

	var redisClient *redis.Client
	rateLimitingEnabled := cfg.ClaimRateLimitPerMinute > 0 || cfg.CheckRateLimitPerMinute > 0
	if rateLimitingEnabled {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	pollInterval := time.Duration(cfg.ConfirmationIntervalMs) * time.Millisecond

	// Initialize the core application service with its dependencies.
	domainService := app.NewService(
		repository,
		chainClient,
		pinClient,
		producer,
		cfg.TreasuryAddress,
		cfg.ClaimFeeMicroSTX,
		cfg.ConfirmationMaxAttempts,
		pollInterval,
		cfg.ContractAddress,
		cfg.BNSContractName,
		cfg.SBTContractName,
		cfg.StacksNetwork,
	)
	if redisClient != nil {
		domainService.SetRateLimiter(
			app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
		)
	}

	// Schedule periodic re-verification of finalized claims.
	scheduler := cron.New()
	reconcileSpec := fmt.Sprintf("@every %dm", cfg.ReconcileIntervalMinutes)
	_, err = scheduler.AddFunc(reconcileSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := domainService.ReconcileClaims(ctx, cfg.ReconcileBatchLimit); err != nil {
			log.Printf("level=error component=claim_reconcile msg=\"reconcile run failed\" err=%v", err)
		}
	})
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"reconcile schedule invalid\" spec=%s err=%v", reconcileSpec, err)
	}
	scheduler.Start()
	defer scheduler.Stop()
	log.Printf("level=info component=bootstrap msg=\"claim reconcile scheduled\" spec=%s", reconcileSpec)

	// Initialize the API handlers and router. The claim route timeout must
	// cover a full confirmation poll plus headroom for verification and the
	// database write.
	handlers := api.NewDomainHandlers(
		domainService,
		[]byte(cfg.SessionSigningKey),
		cfg.ClaimRateLimitPerMinute,
		cfg.CheckRateLimitPerMinute,
	)
	claimTimeout := time.Duration(cfg.ConfirmationMaxAttempts)*pollInterval + 30*time.Second
	router := api.DomainRoutes(handlers, cfg.AllowedOrigins(), claimTimeout)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
