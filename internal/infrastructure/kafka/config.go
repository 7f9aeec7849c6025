package kafka

import (
	"crypto/tls"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
)

type Config struct {
	Brokers     []string
	Topic       string
	GroupID     string
	Username    string
	Password    string
	SASL        bool // SASL/PLAIN over TLS
	StartOffset string
	DialTimeout time.Duration
}

func (c Config) dialTimeout() time.Duration {
	if c.DialTimeout <= 0 {
		return 10 * time.Second
	}
	return c.DialTimeout
}

func (c Config) mechanism() sasl.Mechanism {
	if !c.SASL {
		return nil
	}
	return plain.Mechanism{Username: c.Username, Password: c.Password}
}

func (c Config) tlsConfig() *tls.Config {
	if !c.SASL {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

// NewDialer builds the reader dialer, with SASL/PLAIN and TLS when enabled.
func NewDialer(cfg Config) *kafka.Dialer {
	return &kafka.Dialer{
		Timeout:       cfg.dialTimeout(),
		DualStack:     true,
		SASLMechanism: cfg.mechanism(),
		TLS:           cfg.tlsConfig(),
	}
}

// NewTransport is the writer-side counterpart of NewDialer.
func NewTransport(cfg Config) *kafka.Transport {
	return &kafka.Transport{
		DialTimeout: cfg.dialTimeout(),
		SASL:        cfg.mechanism(),
		TLS:         cfg.tlsConfig(),
	}
}
