package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	// Infrastructure
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	// Interne
	"github.com/jupiterclapton/cenackle-feed/config"
	"github.com/jupiterclapton/cenackle-feed/internal/adapters/primary/rest"
	"github.com/jupiterclapton/cenackle-feed/internal/adapters/primary/ws"
	"github.com/jupiterclapton/cenackle-feed/internal/adapters/secondary/eventbroker"
	"github.com/jupiterclapton/cenackle-feed/internal/adapters/secondary/repository/memory"
	"github.com/jupiterclapton/cenackle-feed/internal/adapters/secondary/repository/postgres"
	"github.com/jupiterclapton/cenackle-feed/internal/adapters/secondary/security"
	fsstore "github.com/jupiterclapton/cenackle-feed/internal/adapters/secondary/storage/fs"
	memstore "github.com/jupiterclapton/cenackle-feed/internal/adapters/secondary/storage/memory"
	s3store "github.com/jupiterclapton/cenackle-feed/internal/adapters/secondary/storage/s3"
	"github.com/jupiterclapton/cenackle-feed/internal/core/ports"
	"github.com/jupiterclapton/cenackle-feed/internal/core/services"
)

func main() {
	// 1. Charger la Config
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. Initialiser le Logger (slog JSON pour la prod, Text pour le dev)
	initLogger(cfg)
	slog.Info("🚀 Starting Feed Service", "config", cfg.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialiser le Tracing (OpenTelemetry)
	if cfg.TracingEnabled {
		tp, err := initTracer(ctx, cfg)
		if err != nil {
			slog.Error("Failed to init tracer", "error", err)
		} else {
			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					slog.Error("Error shutting down tracer", "error", err)
				}
			}()
		}
	}

	// 4. Infrastructure : persistance (Postgres ou mémoire)
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Unable to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// 5. Infrastructure : stockage des images
	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		slog.Error("Unable to open blob store", "error", err)
		os.Exit(1)
	}

	// 6. Infrastructure : Sécurité (JWT & Argon2)
	tokens, err := newTokenProvider(cfg)
	if err != nil {
		slog.Error("Failed to init JWT provider", "error", err)
		os.Exit(1)
	}
	hasher := security.NewArgon2Hasher(nil) // Params par défaut

	// 7. Notifications : notifier local, relayé par un broker si configuré
	notifier := services.NewNotifier(0)
	publisher, closeBroker, err := openBroker(ctx, cfg, notifier)
	if err != nil {
		slog.Error("Failed to connect to broker", "broker", cfg.Broker, "error", err)
		os.Exit(1)
	}

	// 8. Wiring (Injection de dépendances) - Adapters -> Services
	postService := services.NewPostService(store.posts, store.users, store.tx, blobs, publisher, services.PostConfig{
		PageSize: cfg.PageSize,
	})
	identityService := services.NewIdentityService(store.users, hasher, tokens)
	imageService := services.NewImageService(blobs)
	authenticator := services.NewAuthenticator(tokens)

	// Réparation des ensembles possédés après un arrêt brutal
	if err := postService.ReconcileOwnership(ctx); err != nil {
		slog.Error("Ownership reconciliation failed", "error", err)
	}

	hub := ws.NewHub(notifier, cfg.AllowedOrigins)
	router := rest.NewRouter(rest.RouterConfig{
		ServiceName:    cfg.ServiceName,
		AllowedOrigins: cfg.AllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, rest.Deps{
		Auth:     authenticator,
		Posts:    postService,
		Identity: identityService,
		Images:   imageService,
		Live:     hub,
	})

	// 9. Démarrage du serveur HTTP
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("📡 HTTP server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// 10. Graceful Shutdown (Attente des signaux OS)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	sig := <-quit
	slog.Info("⚠️  Signal received, shutting down...", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	hub.Close()

	// Suppressions d'images en cours, puis arrêt des relais
	postService.Wait()
	cancel()
	closeBroker()

	slog.Info("👋 Service stopped")
}

// --- HELPERS ---

func initLogger(cfg *config.Config) {
	var handler slog.Handler
	if cfg.Env == "local" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func initTracer(ctx context.Context, cfg *config.Config) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OtelEndpoint),
		otlptracegrpc.WithInsecure(), // En prod, gérez le TLS
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String("1.0.0"),
			semconv.DeploymentEnvironmentKey.String(cfg.Env),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}

type stores struct {
	users ports.UserRepository
	posts ports.PostRepository
	tx    ports.Transactor
}

func openStore(ctx context.Context, cfg *config.Config) (stores, func(), error) {
	if cfg.UsesMemoryDB() {
		mem := memory.NewStore()
		slog.Warn("⚠️  Using in-memory store, data will not survive a restart")
		return stores{users: mem.Users(), posts: mem.Posts(), tx: mem}, func() {}, nil
	}

	dbConfig, err := pgxpool.ParseConfig(cfg.DBUrl)
	if err != nil {
		return stores{}, nil, fmt.Errorf("parse DB config: %w", err)
	}
	dbConfig.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return stores{}, nil, fmt.Errorf("connect: %w", err)
	}
	// Vérification connectivité immédiate (Fail Fast)
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return stores{}, nil, fmt.Errorf("ping: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return stores{}, nil, err
	}
	slog.Info("✅ Database connected")

	return stores{
		users: postgres.NewUserRepo(pool),
		posts: postgres.NewPostRepo(pool),
		tx:    postgres.NewTransactor(pool),
	}, pool.Close, nil
}

func openBlobStore(ctx context.Context, cfg *config.Config) (ports.BlobStore, error) {
	st, err := cfg.Storage()
	if err != nil {
		return nil, err
	}

	switch st.Kind {
	case config.StorageFile:
		slog.Info("✅ Image storage ready", "backend", "fs", "dir", st.Location)
		return fsstore.New(st.Location)
	case config.StorageS3:
		slog.Info("✅ Image storage ready", "backend", "s3", "bucket", st.Location)
		return s3store.New(ctx, s3store.Config{
			Bucket:                 st.Location,
			Region:                 cfg.S3.Region,
			AccessKeyID:            cfg.S3.AccessKeyID,
			SecretAccessKey:        cfg.S3.SecretAccessKey,
			Endpoint:               cfg.S3.Endpoint,
			UsePathStyle:           cfg.S3.UsePathStyle,
			CreateBucketIfNotExist: cfg.S3.CreateBucket,
		})
	default:
		slog.Warn("⚠️  Using in-memory image storage")
		return memstore.New(), nil
	}
}

func newTokenProvider(cfg *config.Config) (*security.JWTProvider, error) {
	if cfg.UsesRSA() {
		privKey, pubKey, err := loadKeys(cfg.RSAPrivateKeyPath, cfg.RSAPublicKeyPath)
		if err != nil {
			return nil, err
		}
		return security.NewRSAProvider(privKey, pubKey, cfg.TokenTTL)
	}

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		// Hors prod uniquement (Validate l'impose) : les tokens ne survivent pas au redémarrage
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		slog.Warn("⚠️  JWT_SECRET not set, using an ephemeral secret")
	}
	return security.NewHMACProvider(secret, cfg.TokenTTL)
}

func loadKeys(privPath, pubPath string) ([]byte, []byte, error) {
	priv, err := os.ReadFile(privPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading private key: %w", err)
	}
	pub, err := os.ReadFile(pubPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading public key: %w", err)
	}
	return priv, pub, nil
}

// openBroker retourne le publisher utilisé par le cœur. Avec un broker, le cœur
// publie sur le broker et chaque instance relaie vers son notifier local.
func openBroker(ctx context.Context, cfg *config.Config, local *services.Notifier) (ports.EventPublisher, func(), error) {
	switch cfg.Broker {
	case config.BrokerNats:
		nc, err := nats.Connect(cfg.NatsUrl, nats.Name(cfg.ServiceName))
		if err != nil {
			return nil, nil, fmt.Errorf("nats connect: %w", err)
		}
		relay := eventbroker.NewNatsRelay(nc, local)
		if err := relay.Start(); err != nil {
			nc.Close()
			return nil, nil, err
		}
		slog.Info("✅ NATS connected", "url", cfg.NatsUrl)

		return eventbroker.NewNatsPublisher(nc), func() {
			_ = relay.Close()
			if err := nc.Drain(); err != nil {
				slog.Error("NATS drain failed", "error", err)
			}
		}, nil

	case config.BrokerRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			slog.Error("Failed to instrument redis", "error", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		relay := eventbroker.NewRedisRelay(rdb, local)
		if err := relay.Start(ctx); err != nil {
			rdb.Close()
			return nil, nil, err
		}
		slog.Info("✅ Redis connected", "addr", cfg.RedisAddr)

		pub := eventbroker.NewRedisPublisher(rdb)
		return pub, func() {
			pub.Wait()
			<-relay.Done()
			if err := rdb.Close(); err != nil {
				slog.Error("Redis close failed", "error", err)
			}
		}, nil

	default:
		return local, func() {}, nil
	}
}
