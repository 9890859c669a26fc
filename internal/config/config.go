// Package config loads the server configuration from ./config/.env or the
// process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Document stores.
const (
	StoreOxiDB = "oxidb"
	StoreMongo = "mongo"
)

// Image storage backends.
const (
	StorageDisk = "disk"
	StorageS3   = "s3"
	StorageBlob = "blob"
)

const DefaultPath = "./config/.env"

type Config struct {
	HTTPAddr string `env:"SUBMIT_ADDR" env-default:":5000"`
	Store    string `env:"SUBMIT_STORE" env-default:"oxidb"`

	OxiDBHost string `env:"OXIDB_HOST" env-default:"127.0.0.1"`
	OxiDBPort int    `env:"OXIDB_PORT" env-default:"4444"`
	PoolSize  int    `env:"SUBMIT_POOL_SIZE" env-default:"3"`

	MongoURI      string `env:"MONGO_URI" env-default:"mongodb://127.0.0.1:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" env-default:"oxisubmit"`

	ImageStorage string `env:"IMAGE_STORAGE" env-default:"disk"`
	UploadDir    string `env:"UPLOAD_DIR" env-default:"uploads"`
	BlobBucket   string `env:"BLOB_BUCKET" env-default:"submission_images"`
	MaxUploadMB  int64  `env:"MAX_UPLOAD_MB" env-default:"12"`

	S3Bucket          string `env:"S3_BUCKET" env-default:"submissions"`
	S3Region          string `env:"S3_REGION" env-default:"us-east-1"`
	S3Endpoint        string `env:"S3_ENDPOINT" env-default:""`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID" env-default:""`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY" env-default:""`
	S3Folder          string `env:"S3_FOLDER" env-default:"3w-submissions"`
	S3PublicURL       string `env:"S3_PUBLIC_URL" env-default:""`

	RedisURL     string        `env:"REDIS_URL" env-default:""`
	ListCacheTTL time.Duration `env:"LIST_CACHE_TTL" env-default:"30s"`

	GelfAddr       string `env:"GELF_ADDR" env-default:""`
	LogLevel       string `env:"LOG_LEVEL" env-default:"info"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT" env-default:"false"`
}

// New reads the config file at path when it exists, otherwise the
// environment alone. Values are validated before returning.
func New(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown backends and incomplete backend settings.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreOxiDB:
		if c.PoolSize < 1 {
			return fmt.Errorf("config: SUBMIT_POOL_SIZE must be positive, got %d", c.PoolSize)
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return errors.New("config: MONGO_URI is required for the mongo store")
		}
	default:
		return fmt.Errorf("config: unknown SUBMIT_STORE %q", c.Store)
	}

	switch c.ImageStorage {
	case StorageDisk:
		if c.UploadDir == "" {
			return errors.New("config: UPLOAD_DIR is required for disk storage")
		}
	case StorageS3:
		if c.S3Bucket == "" {
			return errors.New("config: S3_BUCKET is required for s3 storage")
		}
		if c.S3Endpoint == "" && c.S3PublicURL == "" {
			return errors.New("config: S3_ENDPOINT or S3_PUBLIC_URL is required for s3 storage")
		}
	case StorageBlob:
		if c.Store != StoreOxiDB {
			return errors.New("config: blob storage requires the oxidb store")
		}
	default:
		return fmt.Errorf("config: unknown IMAGE_STORAGE %q", c.ImageStorage)
	}

	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	return nil
}

// MaxUploadBytes is the multipart body limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}
