package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-accounts/internal/infra/config"
	"github.com/arklim/social-platform-accounts/internal/infra/telemetry"
)

const deliveryErrBuffer = 256

// Producer owns a sarama async producer plus the goroutine draining its
// delivery errors. Publish paths enqueue through Producer(); delivery
// failures surface on Errors() and in the failure counter.
type Producer struct {
	producer sarama.AsyncProducer
	logger   *zap.Logger
	cfg      config.KafkaSettings
	metrics  *telemetry.Metrics

	deliveryErrs chan error
	quit         chan struct{}
}

// NewProducer connects to the brokers and starts the error drain.
func NewProducer(cfg config.KafkaSettings, logger *zap.Logger) (*Producer, error) {
	asyncProducer, err := sarama.NewAsyncProducer(cfg.Brokers, producerConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	p := &Producer{
		producer:     asyncProducer,
		logger:       logger,
		cfg:          cfg,
		deliveryErrs: make(chan error, deliveryErrBuffer),
		quit:         make(chan struct{}),
	}
	go p.drainErrors()

	logger.Info("kafka producer initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic_prefix", cfg.TopicPrefix),
		zap.Bool("async", cfg.Async))

	return p, nil
}

func producerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_5_0_0

	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Flush.Frequency = 100 * time.Millisecond
	cfg.Producer.Flush.Messages = 100
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = false
	cfg.Producer.Return.Errors = true

	cfg.Metadata.Retry.Max = 3
	cfg.Metadata.Retry.Backoff = 250 * time.Millisecond

	return cfg
}

// WithMetrics attaches counters incremented when deliveries fail.
func (p *Producer) WithMetrics(metrics *telemetry.Metrics) *Producer {
	p.metrics = metrics
	return p
}

func (p *Producer) drainErrors() {
	for {
		select {
		case err := <-p.producer.Errors():
			if err == nil {
				continue
			}
			p.logger.Error("kafka producer error",
				zap.Error(err.Err),
				zap.String("topic", err.Msg.Topic),
				zap.Int32("partition", err.Msg.Partition),
				zap.Int64("offset", err.Msg.Offset))
			p.metrics.PublishFailed(err.Msg.Topic)

			select {
			case p.deliveryErrs <- err.Err:
			default:
				p.logger.Warn("error channel full, dropping error")
			}
		case <-p.quit:
			return
		}
	}
}

// Producer exposes the underlying sarama producer for enqueueing.
func (p *Producer) Producer() sarama.AsyncProducer {
	return p.producer
}

// Errors is a buffered stream of delivery failures for external monitoring.
func (p *Producer) Errors() <-chan error {
	return p.deliveryErrs
}

// Close stops the drain goroutine and flushes pending messages.
func (p *Producer) Close() error {
	p.logger.Info("closing kafka producer")
	close(p.quit)

	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}

	close(p.deliveryErrs)
	return nil
}

// TopicName prefixes eventType with the configured topic prefix, leaving
// already-prefixed names untouched.
func (p *Producer) TopicName(eventType string) string {
	if p.cfg.TopicPrefix == "" {
		return eventType
	}

	prefix := p.cfg.TopicPrefix + "."
	if strings.HasPrefix(eventType, prefix) {
		return eventType
	}
	return prefix + eventType
}
