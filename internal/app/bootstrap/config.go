package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	MaxDBConns  int32

	RedisURL  string
	LockLease time.Duration

	KafkaBrokers                []string
	KafkaConsumerGroup          string
	TopicLedgerEvents           string
	TopicLedgerAnalytics        string
	TopicOrderPaymentConfirmed  string
	TopicShipmentDelivered      string
	DLQTopic                    string

	PaymentGatewayURL string
	PaymentGatewayKey string
	PayoutGatewayURL  string
	PayoutGatewayKey  string
	GatewayTimeout    time.Duration

	DefaultCurrency      string
	PayoutMaxRetries     int
	IdempotencyTTL       time.Duration
	EventDedupTTL        time.Duration
	OutboxFlushBatchSize int
	OutboxPollInterval   time.Duration
	ConsumerPollInterval time.Duration
	RetrySweepInterval   time.Duration
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		DatabaseURL                string   `yaml:"database_url"`
		MaxDBConns                 int      `yaml:"max_db_conns"`
		RedisURL                   string   `yaml:"redis_url"`
		KafkaBrokers               []string `yaml:"kafka_brokers"`
		KafkaConsumerGroup         string   `yaml:"kafka_consumer_group"`
		TopicLedgerEvents          string   `yaml:"topic_ledger_events"`
		TopicLedgerAnalytics       string   `yaml:"topic_ledger_analytics"`
		TopicOrderPaymentConfirmed string   `yaml:"topic_order_payment_confirmed"`
		TopicShipmentDelivered     string   `yaml:"topic_shipment_delivered"`
		TopicDLQ                   string   `yaml:"topic_dlq"`
		PaymentGatewayURL          string   `yaml:"payment_gateway_url"`
		PayoutGatewayURL           string   `yaml:"payout_gateway_url"`
	} `yaml:"dependencies"`
	Ledger struct {
		DefaultCurrency  string `yaml:"default_currency"`
		PayoutMaxRetries int    `yaml:"payout_max_retries"`
	} `yaml:"ledger"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                  "marketplace-ledger",
		HTTPPort:                   8080,
		GRPCPort:                   9090,
		MaxDBConns:                 20,
		LockLease:                  30 * time.Second,
		KafkaConsumerGroup:         "marketplace-ledger",
		TopicLedgerEvents:          "ledger.events",
		TopicLedgerAnalytics:       "ledger.analytics",
		TopicOrderPaymentConfirmed: "order.payment_confirmed",
		TopicShipmentDelivered:     "shipment.delivered",
		DLQTopic:                   "marketplace-ledger.dlq",
		GatewayTimeout:             15 * time.Second,
		DefaultCurrency:            "USD",
		PayoutMaxRetries:           3,
		IdempotencyTTL:             7 * 24 * time.Hour,
		EventDedupTTL:              7 * 24 * time.Hour,
		OutboxFlushBatchSize:       100,
		OutboxPollInterval:         2 * time.Second,
		ConsumerPollInterval:       2 * time.Second,
		RetrySweepInterval:         time.Minute,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		cfg.DatabaseURL = f.Dependencies.DatabaseURL
		if f.Dependencies.MaxDBConns > 0 {
			cfg.MaxDBConns = int32(f.Dependencies.MaxDBConns)
		}
		cfg.RedisURL = f.Dependencies.RedisURL
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
		}
		if f.Dependencies.KafkaConsumerGroup != "" {
			cfg.KafkaConsumerGroup = f.Dependencies.KafkaConsumerGroup
		}
		if f.Dependencies.TopicLedgerEvents != "" {
			cfg.TopicLedgerEvents = f.Dependencies.TopicLedgerEvents
		}
		if f.Dependencies.TopicLedgerAnalytics != "" {
			cfg.TopicLedgerAnalytics = f.Dependencies.TopicLedgerAnalytics
		}
		if f.Dependencies.TopicOrderPaymentConfirmed != "" {
			cfg.TopicOrderPaymentConfirmed = f.Dependencies.TopicOrderPaymentConfirmed
		}
		if f.Dependencies.TopicShipmentDelivered != "" {
			cfg.TopicShipmentDelivered = f.Dependencies.TopicShipmentDelivered
		}
		if f.Dependencies.TopicDLQ != "" {
			cfg.DLQTopic = f.Dependencies.TopicDLQ
		}
		cfg.PaymentGatewayURL = f.Dependencies.PaymentGatewayURL
		cfg.PayoutGatewayURL = f.Dependencies.PayoutGatewayURL
		if f.Ledger.DefaultCurrency != "" {
			cfg.DefaultCurrency = f.Ledger.DefaultCurrency
		}
		if f.Ledger.PayoutMaxRetries > 0 {
			cfg.PayoutMaxRetries = f.Ledger.PayoutMaxRetries
		}
	}

	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaConsumerGroup = envOrDefault("KAFKA_CONSUMER_GROUP", cfg.KafkaConsumerGroup)
	cfg.TopicLedgerEvents = envOrDefault("KAFKA_TOPIC_LEDGER_EVENTS", cfg.TopicLedgerEvents)
	cfg.TopicLedgerAnalytics = envOrDefault("KAFKA_TOPIC_LEDGER_ANALYTICS", cfg.TopicLedgerAnalytics)
	cfg.TopicOrderPaymentConfirmed = envOrDefault("KAFKA_TOPIC_ORDER_PAYMENT_CONFIRMED", cfg.TopicOrderPaymentConfirmed)
	cfg.TopicShipmentDelivered = envOrDefault("KAFKA_TOPIC_SHIPMENT_DELIVERED", cfg.TopicShipmentDelivered)
	cfg.DLQTopic = envOrDefault("KAFKA_TOPIC_LEDGER_DLQ", cfg.DLQTopic)
	cfg.PaymentGatewayURL = envOrDefault("PAYMENT_GATEWAY_URL", cfg.PaymentGatewayURL)
	cfg.PaymentGatewayKey = envOrDefault("PAYMENT_GATEWAY_API_KEY", cfg.PaymentGatewayKey)
	cfg.PayoutGatewayURL = envOrDefault("PAYOUT_GATEWAY_URL", cfg.PayoutGatewayURL)
	cfg.PayoutGatewayKey = envOrDefault("PAYOUT_GATEWAY_API_KEY", cfg.PayoutGatewayKey)
	cfg.DefaultCurrency = envOrDefault("LEDGER_DEFAULT_CURRENCY", cfg.DefaultCurrency)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.PayoutMaxRetries = envInt("PAYOUT_MAX_RETRIES", cfg.PayoutMaxRetries)
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour
	cfg.EventDedupTTL = time.Duration(envInt("EVENT_DEDUP_TTL_HOURS", int(cfg.EventDedupTTL.Hours()))) * time.Hour
	cfg.OutboxFlushBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxFlushBatchSize)
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.ConsumerPollInterval = time.Duration(envInt("CONSUMER_POLL_SECONDS", int(cfg.ConsumerPollInterval.Seconds()))) * time.Second
	cfg.RetrySweepInterval = time.Duration(envInt("RETRY_SWEEP_SECONDS", int(cfg.RetrySweepInterval.Seconds()))) * time.Second
	cfg.GatewayTimeout = time.Duration(envInt("GATEWAY_TIMEOUT_SECONDS", int(cfg.GatewayTimeout.Seconds()))) * time.Second

	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
