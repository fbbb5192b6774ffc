package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// Config holds NATS client configuration
type Config struct {
	URL           string        `yaml:"url"`
	StreamName    string        `yaml:"stream"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"-"`
	MaxAge        time.Duration `yaml:"-"` // retention of unconsumed batches
	AckWait       time.Duration `yaml:"-"`
	MaxDeliver    int           `yaml:"max_deliver"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		URL:           "nats://localhost:4222",
		StreamName:    "twin",
		RetryAttempts: 3,
		RetryDelay:    time.Second,
		MaxAge:        72 * time.Hour, // Covers a long weekend without a writer
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
	}
}

// withDefaults fills zero values from DefaultConfig
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.URL == "" {
		c.URL = def.URL
	}
	if c.StreamName == "" {
		c.StreamName = def.StreamName
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = def.RetryAttempts
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = def.RetryDelay
	}
	if c.MaxAge == 0 {
		c.MaxAge = def.MaxAge
	}
	if c.AckWait == 0 {
		c.AckWait = def.AckWait
	}
	if c.MaxDeliver == 0 {
		c.MaxDeliver = def.MaxDeliver
	}
	return c
}

// Client wraps NATS JetStream functionality
type Client struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config Config
	log    zerolog.Logger
}

// NewClient creates a new NATS client with JetStream support
func NewClient(cfg Config, log zerolog.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	log = log.With().Str("component", "nats").Logger()

	nc, err := nats.Connect(cfg.URL,
		nats.Name("twin"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.RetryAttempts),
		nats.ReconnectWait(cfg.RetryDelay),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("Disconnected from NATS")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("Reconnected to NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Client{
		nc:     nc,
		js:     js,
		config: cfg,
		log:    log,
	}, nil
}

// CreateStream creates the JetStream stream carrying ingestion batches
func (c *Client) CreateStream(ctx context.Context, subjects []string) error {
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      c.config.StreamName,
		Subjects:  subjects,
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
		MaxAge:    c.config.MaxAge,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Publish publishes a message to a subject
func (c *Client) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := c.js.Publish(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// PublishJSON encodes v and publishes it to subject
func (c *Client) PublishJSON(ctx context.Context, subject string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return c.Publish(ctx, subject, data)
}

// MessageHandler is called with the payload of each received message
type MessageHandler func(ctx context.Context, data []byte) error

// Subscribe creates a durable consumer and subscribes to messages.
// Messages are acked when handler succeeds and nacked otherwise.
func (c *Client) Subscribe(ctx context.Context, subject string, consumerName string, handler MessageHandler) (jetstream.ConsumeContext, error) {
	consumer, err := c.js.CreateOrUpdateConsumer(ctx, c.config.StreamName, jetstream.ConsumerConfig{
		Durable:       consumerName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       c.config.AckWait,
		MaxDeliver:    c.config.MaxDeliver,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(ctx, msg.Data()); err != nil {
			c.log.Error().
				Err(err).
				Str("subject", msg.Subject()).
				Str("consumer", consumerName).
				Msg("Failed to handle message")
			if nakErr := msg.Nak(); nakErr != nil {
				c.log.Warn().Err(nakErr).Msg("Failed to nak message")
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			c.log.Warn().Err(ackErr).Msg("Failed to ack message")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	return consumeCtx, nil
}

// Close drains and closes the NATS connection
func (c *Client) Close() {
	if c.nc != nil {
		if err := c.nc.Drain(); err != nil {
			c.nc.Close()
		}
	}
}

// IsConnected returns true if connected to NATS
func (c *Client) IsConnected() bool {
	return c.nc != nil && c.nc.IsConnected()
}
