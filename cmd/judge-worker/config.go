package main

import (
	"fmt"
	"os"
	"time"

	"judgeengine/pkg/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8085"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultStatusTTL       = 24 * time.Hour
	defaultPoolSize        = 4
)

// ServerConfig holds the status/streaming HTTP surface's settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// KafkaConfig holds submission-ingest consumer settings.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	Topic         string   `yaml:"topic"`
	ConsumerGroup string   `yaml:"consumerGroup"`
}

// RedisConfig holds the status-cache connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MinIOConfig holds object-storage connection settings.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSSL"`
}

// MySQLConfig holds the compile-cache connection settings.
type MySQLConfig struct {
	DSN string `yaml:"dsn"`
}

// ProblemSourceConfig holds problem-bundle resolution settings.
type ProblemSourceConfig struct {
	KeyPrefix     string `yaml:"keyPrefix"`
	EncryptionKey string `yaml:"encryptionKey"`
}

// WorkerConfig holds the submission worker pool's settings.
type WorkerConfig struct {
	PoolSize int    `yaml:"poolSize"`
	WorkRoot string `yaml:"workRoot"`
}

// AppConfig is judge-worker's full configuration surface.
type AppConfig struct {
	Server  ServerConfig        `yaml:"server"`
	Logger  logger.Config       `yaml:"logger"`
	Kafka   KafkaConfig         `yaml:"kafka"`
	Redis   RedisConfig         `yaml:"redis"`
	MinIO   MinIOConfig         `yaml:"minio"`
	MySQL   MySQLConfig         `yaml:"mysql"`
	Problem ProblemSourceConfig `yaml:"problem"`
	Worker  WorkerConfig        `yaml:"worker"`
	Status  StatusConfig        `yaml:"status"`
}

// StatusConfig holds submission-status snapshot settings.
type StatusConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

func loadAppConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if cfg.Kafka.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Worker.PoolSize <= 0 {
		cfg.Worker.PoolSize = defaultPoolSize
	}
	if cfg.Worker.WorkRoot == "" {
		cfg.Worker.WorkRoot = os.TempDir()
	}
	if cfg.Status.TTL == 0 {
		cfg.Status.TTL = defaultStatusTTL
	}
	if cfg.Kafka.ConsumerGroup == "" {
		cfg.Kafka.ConsumerGroup = "judge-worker"
	}
	return &cfg, nil
}
