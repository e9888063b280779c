package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.HTTPAddr)
	assert.Empty(t, cfg.PushgatewayURL)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "climate-impact-artifacts", cfg.KafkaTopic)
	assert.Equal(t, StoreLocal, cfg.Store)
	assert.Equal(t, "us-east-1", cfg.S3.Region)
	assert.True(t, cfg.S3.UseSSL)
	assert.Equal(t, 16, cfg.SourceCacheSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("CIMT_HTTP_ADDR", ":9090")
	t.Setenv("CIMT_PUSHGATEWAY_URL", "http://pushgateway:9091")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("CIMT_KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("CIMT_KAFKA_TOPIC", "artifacts")
	t.Setenv("CIMT_STORE", "s3")
	t.Setenv("CIMT_S3_ENDPOINT", "minio:9000")
	t.Setenv("CIMT_S3_ACCESS_KEY", "access")
	t.Setenv("CIMT_S3_SECRET_KEY", "secret")
	t.Setenv("CIMT_S3_REGION", "eu-west-2")
	t.Setenv("CIMT_S3_BUCKET", "metrics")
	t.Setenv("CIMT_S3_USE_SSL", "false")
	t.Setenv("CIMT_SOURCE_CACHE_SIZE", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "http://pushgateway:9091", cfg.PushgatewayURL)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "artifacts", cfg.KafkaTopic)
	assert.Equal(t, StoreS3, cfg.Store)
	assert.Equal(t, S3Config{
		Endpoint:  "minio:9000",
		AccessKey: "access",
		SecretKey: "secret",
		Region:    "eu-west-2",
		Bucket:    "metrics",
		UseSSL:    false,
	}, cfg.S3)
	assert.Equal(t, 4, cfg.SourceCacheSize)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidStore(t *testing.T) {
	t.Setenv("CIMT_STORE", "ftp")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CIMT_STORE")
}

func TestLoad_S3WithoutEndpoint(t *testing.T) {
	t.Setenv("CIMT_STORE", "s3")
	t.Setenv("CIMT_S3_BUCKET", "metrics")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CIMT_S3_ENDPOINT")
}

func TestLoad_S3WithoutBucket(t *testing.T) {
	t.Setenv("CIMT_STORE", "s3")
	t.Setenv("CIMT_S3_ENDPOINT", "minio:9000")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CIMT_S3_BUCKET")
}

func TestLoad_InvalidUseSSL(t *testing.T) {
	t.Setenv("CIMT_S3_USE_SSL", "maybe")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CIMT_S3_USE_SSL")
}

func TestLoad_InvalidSourceCacheSize(t *testing.T) {
	t.Setenv("CIMT_SOURCE_CACHE_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CIMT_SOURCE_CACHE_SIZE")
}
