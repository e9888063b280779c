package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Artifact store backends.
const (
	StoreLocal = "local"
	StoreS3    = "s3"
)

// Config holds the ambient runtime settings, populated from environment
// variables. The interface file is loaded separately into Settings.
type Config struct {
	LogLevel        string
	LogFormat       string
	HTTPAddr        string // empty disables the /metrics server
	PushgatewayURL  string // empty disables pushing at the end of a run
	ShutdownTimeout time.Duration

	KafkaBrokers []string // empty disables artifact notifications
	KafkaTopic   string

	Store string
	S3    S3Config

	SourceCacheSize int
}

// S3Config addresses an S3-compatible bucket.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	UseSSL    bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	useSSL, err := strconv.ParseBool(sharedcfg.EnvOrDefault("CIMT_S3_USE_SSL", "true"))
	if err != nil {
		return nil, errors.New("invalid CIMT_S3_USE_SSL")
	}

	cacheSize, err := parseSourceCacheSize()
	if err != nil {
		return nil, err
	}

	var brokers []string
	if s := strings.TrimSpace(os.Getenv("CIMT_KAFKA_BROKERS")); s != "" {
		brokers = sharedcfg.ParseBrokers(s)
	}

	cfg := &Config{
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		HTTPAddr:        os.Getenv("CIMT_HTTP_ADDR"),
		PushgatewayURL:  os.Getenv("CIMT_PUSHGATEWAY_URL"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("CIMT_KAFKA_TOPIC", "climate-impact-artifacts"),

		Store: strings.ToLower(sharedcfg.EnvOrDefault("CIMT_STORE", StoreLocal)),
		S3: S3Config{
			Endpoint:  os.Getenv("CIMT_S3_ENDPOINT"),
			AccessKey: os.Getenv("CIMT_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("CIMT_S3_SECRET_KEY"),
			Region:    sharedcfg.EnvOrDefault("CIMT_S3_REGION", "us-east-1"),
			Bucket:    os.Getenv("CIMT_S3_BUCKET"),
			UseSSL:    useSSL,
		},

		SourceCacheSize: cacheSize,
	}

	switch cfg.Store {
	case StoreLocal:
	case StoreS3:
		if cfg.S3.Endpoint == "" {
			return nil, errors.New("CIMT_S3_ENDPOINT is required when CIMT_STORE=s3")
		}
		if cfg.S3.Bucket == "" {
			return nil, errors.New("CIMT_S3_BUCKET is required when CIMT_STORE=s3")
		}
	default:
		return nil, fmt.Errorf("invalid CIMT_STORE %q: must be %s or %s", cfg.Store, StoreLocal, StoreS3)
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("CIMT_KAFKA_TOPIC is required when CIMT_KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func parseSourceCacheSize() (int, error) {
	s := os.Getenv("CIMT_SOURCE_CACHE_SIZE")
	if s == "" {
		return 16, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid CIMT_SOURCE_CACHE_SIZE")
	}
	return n, nil
}
