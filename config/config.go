package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Identity  IdentityConfig  `yaml:"identity"`
	Device    DeviceConfig    `yaml:"device"`
	Web       WebConfig       `yaml:"web"`
	Messaging MessagingConfig `yaml:"messaging"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// IdentityConfig selects the token validation backend: "local" checks
// tokens against the api_tokens table, "http" delegates to an external
// identity provider.
type IdentityConfig struct {
	Driver  string        `yaml:"driver"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DeviceConfig selects the machine controller backend: "http" for a
// gateway speaking REST, "mqtt" for machines reachable over a broker.
type DeviceConfig struct {
	Driver  string          `yaml:"driver"`
	BaseURL string          `yaml:"base_url"`
	Timeout time.Duration   `yaml:"timeout"`
	MQTT    DeviceMQTTConfig `yaml:"mqtt"`
}

type DeviceMQTTConfig struct {
	Broker     string        `yaml:"broker"`
	Port       int           `yaml:"port"`
	ClientID   string        `yaml:"client_id"`
	AckTimeout time.Duration `yaml:"ack_timeout"`
}

type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	SessionSecret string `yaml:"session_secret"`
}

type MessagingConfig struct {
	Kafka               KafkaConfig   `yaml:"kafka"`
	TransitionsTopic    string        `yaml:"transitions_topic"`
	OutboxDrainInterval time.Duration `yaml:"outbox_drain_interval"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"group_id"`
}

func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "washcore.db"},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "washcore",
				User:     "washcore",
				Password: "",
				SSLMode:  "disable",
			},
		},
		Redis: RedisConfig{
			Address:  "localhost:6379",
			Password: "",
			DB:       0,
		},
		Identity: IdentityConfig{
			Driver:  "local",
			BaseURL: "http://localhost:8580",
			Timeout: 5 * time.Second,
		},
		Device: DeviceConfig{
			Driver:  "http",
			BaseURL: "http://localhost:8590",
			Timeout: 10 * time.Second,
			MQTT: DeviceMQTTConfig{
				Broker:     "localhost",
				Port:       1883,
				ClientID:   "washcore",
				AckTimeout: 15 * time.Second,
			},
		},
		Web: WebConfig{
			Host:          "0.0.0.0",
			Port:          8084,
			SessionSecret: "change-me-in-production",
		},
		Messaging: MessagingConfig{
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
				GroupID: "washcore",
			},
			TransitionsTopic:    "washcore.transitions",
			OutboxDrainInterval: 5 * time.Second,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
