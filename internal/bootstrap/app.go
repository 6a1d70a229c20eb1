package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/couplediary/diary/internal/config"
	"github.com/couplediary/diary/internal/database"
	"github.com/couplediary/diary/internal/diary/repository"
	"github.com/couplediary/diary/internal/diary/service"
	"github.com/couplediary/diary/internal/events"
	"github.com/couplediary/diary/internal/render"
	"github.com/couplediary/diary/internal/storage"
	"github.com/couplediary/diary/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	mongoConnectAttempts = 5
	mongoConnectBackoff  = time.Second
)

var log = logger.For("bootstrap")

// App owns every long-lived resource of the diary service.
type App struct {
	Config   *config.Config
	Index    repository.IndexStore
	Payloads repository.PayloadStore
	Store    *service.Store
	Renderer *render.Renderer

	// Optional clients; nil when the matching backend is not configured.
	Redis  *redis.Client
	Mongo  *mongo.Client
	MQConn *amqp.Connection

	StartedAt time.Time
}

// New connects the configured backends and assembles the document store.
// Resources opened before a failure are released.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg, StartedAt: time.Now()}
	if err := app.init(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	if err := a.connectRedis(ctx); err != nil {
		return err
	}

	var (
		mem *repository.MemoryRepo
		fs  *repository.FSRepo
		err error
	)
	if cfg.Storage.Index == config.BackendMemory || cfg.Storage.Payload == config.BackendMemory {
		mem = repository.NewMemoryRepo()
	}
	if cfg.Storage.Index == config.BackendFile || cfg.Storage.Payload == config.BackendFile {
		if fs, err = repository.NewFSRepo(cfg.Storage.Dir); err != nil {
			return fmt.Errorf("open storage dir: %w", err)
		}
	}

	switch cfg.Storage.Index {
	case config.BackendMemory:
		a.Index = mem
	case config.BackendFile:
		a.Index = fs
	case config.BackendMongo:
		client, err := database.ConnectMongoRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, mongoConnectAttempts, mongoConnectBackoff)
		if err != nil {
			return err
		}
		a.Mongo = client
		a.Index = repository.NewMongoIndex(client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection))
	case config.BackendRedis:
		if a.Redis == nil {
			return fmt.Errorf("redis index selected but redis is unavailable")
		}
		a.Index = repository.NewRedisIndex(a.Redis, cfg.Redis.IndexKey)
	default:
		return fmt.Errorf("unknown index backend %q", cfg.Storage.Index)
	}

	switch cfg.Storage.Payload {
	case config.BackendMemory:
		a.Payloads = mem
	case config.BackendFile:
		a.Payloads = fs
	case config.BackendMinIO:
		s, err := storage.NewMinIOStorage(ctx, &cfg.MinIO)
		if err != nil {
			return fmt.Errorf("init minio: %w", err)
		}
		a.Payloads = s
	default:
		return fmt.Errorf("unknown payload backend %q", cfg.Storage.Payload)
	}

	a.Renderer, err = render.New(cfg.Diary.TemplatePath)
	if err != nil {
		return fmt.Errorf("load template: %w", err)
	}

	a.Store = service.NewStore(a.Index, a.Payloads, service.Config{
		MaxAttempts: cfg.Storage.MaxAttempts,
		Publisher:   a.publisher(ctx),
	})
	log.Infof("storage ready: index=%s payload=%s", cfg.Storage.Index, cfg.Storage.Payload)
	return nil
}

// connectRedis dials Redis when the index lives there or the rate limiter
// wants it. Only the index makes it mandatory.
func (a *App) connectRedis(ctx context.Context) error {
	cfg := a.Config
	needIndex := cfg.Storage.Index == config.BackendRedis
	wantLimiter := cfg.RateLimit.Enabled && cfg.RateLimit.UseRedis && cfg.Redis.Host != ""
	if !needIndex && !wantLimiter {
		return nil
	}
	client, err := database.ConnectRedis(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		if needIndex {
			return err
		}
		log.Warnf("redis unavailable (%s), rate limiter falls back to memory: %v", cfg.Redis.Addr(), err)
		return nil
	}
	a.Redis = client
	return nil
}

// publisher returns the AMQP publisher when RabbitMQ is configured and
// reachable. Events are best-effort, so a dial failure only disables them.
func (a *App) publisher(ctx context.Context) events.Publisher {
	url := a.Config.RabbitMQ.URL
	if url == "" {
		return events.Noop{}
	}
	conn, err := events.Dial(ctx, url)
	if err != nil {
		log.Warnf("rabbitmq unavailable, diary.created events disabled: %v", err)
		return events.Noop{}
	}
	a.MQConn = conn
	return events.NewAMQPPublisher(conn, a.Config.RabbitMQ.Queue)
}

// Ready reports the health of each dependency the service needs to take writes.
func (a *App) Ready(ctx context.Context) (bool, map[string]bool) {
	deps := map[string]bool{}
	ready := true

	_, _, err := a.Index.FetchIndex(ctx)
	deps["index"] = err == nil
	if err != nil {
		log.Warnf("readiness: index: %v", err)
		ready = false
	}
	if a.Redis != nil {
		deps["redis"] = a.Redis.Ping(ctx).Err() == nil
		ready = ready && deps["redis"]
	}
	if a.Mongo != nil {
		deps["mongo"] = a.Mongo.Ping(ctx, nil) == nil
		ready = ready && deps["mongo"]
	}
	if a.MQConn != nil {
		deps["rabbitmq"] = !a.MQConn.IsClosed()
	}
	return ready, deps
}

func (a *App) Close() error {
	var closeErr error
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Mongo.Disconnect(ctx); err != nil {
			closeErr = err
		}
	}
	return closeErr
}
