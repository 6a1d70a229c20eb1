package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/couplediary/diary/internal/storage"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	LogLevel  string
	Server    ServerConfig
	Storage   StorageConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	MinIO     storage.MinIOConfig
	RabbitMQ  RabbitMQConfig
	RateLimit RateLimitConfig
	Diary     DiaryConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StorageConfig selects where the slug Index and the rendered pages live.
type StorageConfig struct {
	// Index is one of memory, file, mongo, redis.
	Index string
	// Payload is one of memory, file, minio.
	Payload string
	// Dir is the root for the file backends.
	Dir string
	// MaxAttempts bounds retries after losing an Index write race.
	MaxAttempts int
}

type MongoDBConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	IndexKey string
}

func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

type RabbitMQConfig struct {
	URL   string
	Queue string
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

type DiaryConfig struct {
	TemplatePath  string
	MinImages     int
	MaxImages     int
	MaxImageBytes int64
}

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
	BackendMinIO  = "minio"
)

// LoadConfig loads configuration from environment variables, an optional
// .env file and an optional config file named by CONFIG_FILE.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if f := v.GetString("CONFIG_FILE"); f != "" {
		v.SetConfigFile(f)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", f, err)
		}
	}

	cfg := &Config{
		LogLevel: v.GetString("LOG_LEVEL"),
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  time.Duration(v.GetInt("SERVER_READ_TIMEOUT")) * time.Second,
			WriteTimeout: time.Duration(v.GetInt("SERVER_WRITE_TIMEOUT")) * time.Second,
		},
		Storage: StorageConfig{
			Index:       strings.ToLower(v.GetString("STORAGE_INDEX")),
			Payload:     strings.ToLower(v.GetString("STORAGE_PAYLOAD")),
			Dir:         v.GetString("STORAGE_DIR"),
			MaxAttempts: v.GetInt("STORAGE_MAX_ATTEMPTS"),
		},
		MongoDB: MongoDBConfig{
			URI:        v.GetString("MONGODB_URI"),
			Database:   v.GetString("MONGODB_DATABASE"),
			Collection: v.GetString("MONGODB_COLLECTION"),
			Timeout:    time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			IndexKey: v.GetString("REDIS_INDEX_KEY"),
		},
		MinIO: storage.MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			Prefix:    v.GetString("MINIO_PREFIX"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:   v.GetString("RABBITMQ_URL"),
			Queue: v.GetString("RABBITMQ_QUEUE"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Diary: DiaryConfig{
			TemplatePath:  v.GetString("DIARY_TEMPLATE_PATH"),
			MinImages:     v.GetInt("DIARY_MIN_IMAGES"),
			MaxImages:     v.GetInt("DIARY_MAX_IMAGES"),
			MaxImageBytes: v.GetInt64("DIARY_MAX_IMAGE_BYTES"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_PORT", "3000")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("STORAGE_INDEX", BackendFile)
	v.SetDefault("STORAGE_PAYLOAD", BackendFile)
	v.SetDefault("STORAGE_DIR", "generated-diaries")
	v.SetDefault("STORAGE_MAX_ATTEMPTS", 5)
	v.SetDefault("MONGODB_DATABASE", "diary")
	v.SetDefault("MONGODB_COLLECTION", "diary_index")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_INDEX_KEY", "diary:index")
	v.SetDefault("MINIO_BUCKET", "diaries")
	v.SetDefault("RABBITMQ_QUEUE", "diary.created")
	v.SetDefault("RATE_LIMIT_RPS", 1.0)
	v.SetDefault("RATE_LIMIT_BURST", 5)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("DIARY_MIN_IMAGES", 2)
	v.SetDefault("DIARY_MAX_IMAGES", 10)
	v.SetDefault("DIARY_MAX_IMAGE_BYTES", 10<<20)
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	switch c.Storage.Index {
	case BackendMemory, BackendFile:
	case BackendMongo:
		if c.MongoDB.URI == "" {
			return fmt.Errorf("STORAGE_INDEX=mongo requires MONGODB_URI")
		}
	case BackendRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("STORAGE_INDEX=redis requires REDIS_HOST")
		}
	default:
		return fmt.Errorf("unknown STORAGE_INDEX %q", c.Storage.Index)
	}
	switch c.Storage.Payload {
	case BackendMemory, BackendFile:
	case BackendMinIO:
		if err := c.MinIO.Validate(); err != nil {
			return fmt.Errorf("STORAGE_PAYLOAD=minio: %w", err)
		}
	default:
		return fmt.Errorf("unknown STORAGE_PAYLOAD %q", c.Storage.Payload)
	}
	if (c.Storage.Index == BackendFile || c.Storage.Payload == BackendFile) && c.Storage.Dir == "" {
		return fmt.Errorf("file storage requires STORAGE_DIR")
	}
	if c.Diary.MinImages < 1 || c.Diary.MaxImages < c.Diary.MinImages {
		return fmt.Errorf("invalid image bounds: min=%d max=%d", c.Diary.MinImages, c.Diary.MaxImages)
	}
	if c.Diary.MaxImageBytes <= 0 {
		return fmt.Errorf("DIARY_MAX_IMAGE_BYTES must be positive")
	}
	return nil
}
