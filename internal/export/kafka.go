package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"corpuslab/atogen/internal/corpus"
)

// DefaultTopic receives corpus records when no topic is configured.
const DefaultTopic = "atogen.corpus"

// KafkaConfig configures the Kafka sink.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// MessageWriter is the part of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Envelope is the value of every message.
type Envelope struct {
	Kind  string `json:"kind"`
	RunID string `json:"run_id"`
	Data  any    `json:"data"`
}

// Kafka publishes every record of a corpus as a JSON message keyed by user
// id, so one user's records land on one partition in order.
type Kafka struct {
	writer    MessageWriter
	topic     string
	batchSize int
	logger    *slog.Logger
}

// NewKafka connects a writer to cfg.Brokers.
func NewKafka(cfg KafkaConfig, logger *slog.Logger) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("export: kafka: no brokers")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error(fmt.Sprintf(msg, args...), "component", "kafka-writer")
		}),
	}
	logger.Info("kafka sink initialized", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return NewKafkaWriter(w, cfg.Topic, cfg.BatchSize, logger), nil
}

// NewKafkaWriter wraps an existing writer.
func NewKafkaWriter(w MessageWriter, topic string, batchSize int, logger *slog.Logger) *Kafka {
	if batchSize <= 0 {
		batchSize = 500
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Kafka{writer: w, topic: topic, batchSize: batchSize, logger: logger}
}

func (k *Kafka) Write(ctx context.Context, c *corpus.Corpus) error {
	msgs := make([]kafka.Message, 0, len(c.Users)+len(c.Profiles)+len(c.Interactions))
	add := func(kind, key string, data any) error {
		raw, err := json.Marshal(Envelope{Kind: kind, RunID: c.RunID, Data: data})
		if err != nil {
			return fmt.Errorf("export: kafka: encode %s %s: %w", kind, key, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(key),
			Value:   raw,
			Headers: []kafka.Header{{Key: "kind", Value: []byte(kind)}},
		})
		return nil
	}
	for _, u := range c.Users {
		if err := add(KindUser, u.UserID, u); err != nil {
			return err
		}
	}
	for _, p := range c.Profiles {
		if err := add(KindProfile, p.UserID, p); err != nil {
			return err
		}
	}
	for _, ev := range interactions(c) {
		if err := add(KindInteraction, ev.UserID, ev); err != nil {
			return err
		}
	}

	for start := 0; start < len(msgs); start += k.batchSize {
		end := min(start+k.batchSize, len(msgs))
		if err := k.writer.WriteMessages(ctx, msgs[start:end]...); err != nil {
			return fmt.Errorf("export: kafka: write batch at %d: %w", start, err)
		}
	}
	k.logger.Info("kafka export complete", "topic", k.topic, "run_id", c.RunID, "messages", len(msgs))
	return nil
}

func (k *Kafka) Close() error { return k.writer.Close() }
