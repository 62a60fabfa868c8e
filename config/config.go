package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Ship24    Ship24Config    `yaml:"ship24"`
	Shipwatch ShipwatchConfig `yaml:"shipwatch"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port"`
	ShipmentUpdatedTopicName string `yaml:"shipment_updated_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type Ship24Config struct {
	// Absence of the key is not a startup error: the aggregator adapter
	// fails per-fetch with "not configured" instead.
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type ShipwatchConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	// "ship24" (aggregator API) or "scrape" (per-carrier pages).
	StatusSource string `yaml:"status_source"`

	UpdateIntervalSeconds   int `yaml:"update_interval_seconds"`
	FetchTimeoutSeconds     int `yaml:"fetch_timeout_seconds"`
	UpdateConcurrency       int `yaml:"update_concurrency"`
	RateLimitPerMinute      int `yaml:"rate_limit_per_minute"`
	CurrentStatusTTLSeconds int `yaml:"current_status_ttl_seconds"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
