package kafka

//go:generate go run go.uber.org/mock/mockgen -source=./kafka.go -destination=./mocks/kafka_mock.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"stayhub/config"
	"stayhub/infras/otel"
	"stayhub/shared/constant"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
)

const (
	otelAttrTopic = "kafka.topic"
	retryBackoff  = time.Second
	maxAttempts   = 3

	HeaderOriginalTopic  = "dlq-original-topic"
	HeaderOriginalOffset = "dlq-original-offset"
	HeaderError          = "dlq-error"
	HeaderConsumerGroup  = "dlq-consumer-group"
	HeaderFailedAt       = "dlq-failed-at"
)

type Message struct {
	Key   string
	Value any
}

func (m *Message) ToKafkaMessage(topic string) (kafkaGo.Message, error) {
	jsonValue, err := json.Marshal(m.Value)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal message value to JSON")

		return kafkaGo.Message{}, fmt.Errorf("failed to marshal message value to JSON: %w", err)
	}

	return kafkaGo.Message{
		Topic: topic,
		Key:   []byte(m.Key),
		Value: jsonValue,
	}, nil
}

// Decode unmarshals the JSON value of msg into T.
func Decode[T any](msg kafkaGo.Message) (T, error) {
	var value T

	if err := json.Unmarshal(msg.Value, &value); err != nil {
		log.Error().Err(err).Str("topic", msg.Topic).Msg("Failed to unmarshal Kafka message value from JSON")

		return value, fmt.Errorf("failed to unmarshal Kafka message value from JSON: %w", err)
	}

	return value, nil
}

// ErrPermanent marks a handler error that retrying cannot fix, such as a malformed payload.
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err so Consume skips the remaining attempts.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Handler processes one message. A nil error commits the message offset.
type Handler func(ctx context.Context, message kafkaGo.Message) error

type Client interface {
	SendMessages(ctx context.Context, topic string, messages ...Message) (err error)
	Consume(ctx context.Context, consumerGroup, topic string, handler Handler) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkaGo.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkaGo.Message) error
	Close() error
}

type kafkaClientImpl struct {
	config    *config.Config
	otel      otel.Otel
	dialer    *kafkaGo.Dialer
	writer    messageWriter
	newReader func(groupID, topic string) messageReader
	backoff   time.Duration
}

func New(config *config.Config, otel otel.Otel) Client {
	var mechanism sasl.Mechanism
	if config.Kafka.SASL.Username != constant.Empty {
		mechanism = plain.Mechanism{
			Username: config.Kafka.SASL.Username,
			Password: config.Kafka.SASL.Password,
		}
	}

	dialer := &kafkaGo.Dialer{
		DualStack:     true,
		SASLMechanism: mechanism,
	}

	writer := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(config.Kafka.Brokers...),
		Transport:              &kafkaGo.Transport{SASL: mechanism},
		Balancer:               &kafkaGo.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafkaGo.RequireOne,
	}

	log.Info().Strs("brokers", config.Kafka.Brokers).Msg("Kafka client initialized")

	k := &kafkaClientImpl{
		config:  config,
		otel:    otel,
		dialer:  dialer,
		writer:  writer,
		backoff: retryBackoff,
	}
	k.newReader = k.reader

	return k
}

func (k *kafkaClientImpl) reader(groupID, topic string) messageReader {
	return kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:     k.config.Kafka.Brokers,
		Topic:       topic,
		GroupID:     groupID,
		Dialer:      k.dialer,
		StartOffset: kafkaGo.FirstOffset,
	})
}

func (k *kafkaClientImpl) groupID(consumerGroup string) string {
	if consumerGroup != constant.Empty {
		return consumerGroup
	}

	return k.config.Kafka.ConsumerGroup
}

func (k *kafkaClientImpl) SendMessages(ctx context.Context, topic string, messages ...Message) (err error) {
	ctx, scope := k.otel.NewScope(ctx, constant.OtelEventScopeName, constant.OtelEventScopeName+".SendMessages")
	defer scope.End()
	defer scope.TraceIfError(&err)

	scope.SetAttribute(otelAttrTopic, topic)

	msgs := make([]kafkaGo.Message, 0, len(messages))

	for _, message := range messages {
		msg, err := message.ToKafkaMessage(topic)
		if err != nil {
			log.Error().Err(err).Str("topic", topic).Msg("Failed to convert message to Kafka message.")

			return fmt.Errorf("failed to convert message to Kafka message: %w", err)
		}

		msgs = append(msgs, msg)
	}

	err = k.writer.WriteMessages(ctx, msgs...)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to send message to Kafka.")

		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	log.Info().Str("topic", topic).Int("count", len(msgs)).Msg("Sent message successfully.")

	return nil
}

// Consume reads topic until ctx is cancelled. Messages are handled one at a
// time and retried up to maxAttempts times; errors wrapped with Permanent are
// not retried. A message that still fails is copied to the dead-letter topic
// and committed. Without a dead-letter topic, or when that write fails, the
// offset stays uncommitted and Consume returns so the group redelivers it.
func (k *kafkaClientImpl) Consume(ctx context.Context, consumerGroup, topic string, handler Handler) error {
	if topic == constant.Empty {
		return errors.New("topic name cannot be empty when creating Kafka reader")
	}

	groupID := k.groupID(consumerGroup)

	reader := k.newReader(groupID, topic)
	defer func() {
		if err := reader.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Kafka reader.")
		}
	}()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Str("topic", topic).Msg("Consumer context done.")

				return nil
			}

			log.Error().Err(err).Str("topic", topic).Msg("Failed to read message from Kafka.")
			k.sleep(ctx, k.backoff)

			continue
		}

		log.Info().Str("topic", topic).Str("key", string(msg.Key)).Int64("offset", msg.Offset).Msg("Received message from Kafka.")

		if err := k.process(ctx, groupID, msg, handler); err != nil {
			if ctx.Err() != nil {
				log.Info().Str("topic", topic).Msg("Consumer context done.")

				return nil
			}

			return fmt.Errorf("stopped consuming %s at offset %d: %w", topic, msg.Offset, err)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error().Err(err).Str("topic", topic).Msg("Failed to commit Kafka message.")
		}
	}
}

// process returns nil when msg may be committed.
func (k *kafkaClientImpl) process(ctx context.Context, groupID string, msg kafkaGo.Message, handler Handler) error {
	err := k.handle(ctx, msg, handler)
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err() //nolint:wrapcheck
	}

	if dlqErr := k.deadLetter(ctx, groupID, msg, err); dlqErr != nil {
		if errors.Is(err, ErrPermanent) {
			log.Error().Err(dlqErr).Str("topic", msg.Topic).Int64("offset", msg.Offset).Msg("Dropping unprocessable Kafka message.")

			return nil
		}

		return errors.Join(err, dlqErr)
	}

	return nil
}

func (k *kafkaClientImpl) handle(ctx context.Context, msg kafkaGo.Message, handler Handler) error {
	var err error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = handler(ctx, msg); err == nil {
			return nil
		}

		log.Error().Err(err).Str("topic", msg.Topic).Int64("offset", msg.Offset).Int("attempt", attempt).Msg("Failed to handle Kafka message.")

		if ctx.Err() != nil || errors.Is(err, ErrPermanent) {
			return err
		}

		if attempt < maxAttempts {
			k.sleep(ctx, k.backoff*time.Duration(attempt))
		}
	}

	log.Error().Str("topic", msg.Topic).Int64("offset", msg.Offset).Str("key", string(msg.Key)).Msg("Giving up on Kafka message.")

	return err
}

var errNoDeadLetterTopic = errors.New("no dead-letter topic configured")

func (k *kafkaClientImpl) deadLetter(ctx context.Context, groupID string, msg kafkaGo.Message, cause error) (err error) {
	ctx, scope := k.otel.NewScope(ctx, constant.OtelEventScopeName, constant.OtelEventScopeName+".DeadLetter")
	defer scope.End()
	defer scope.TraceIfError(&err)

	topic := k.config.Kafka.Topics.DeadLetter
	if topic == constant.Empty {
		return errNoDeadLetterTopic
	}

	scope.SetAttribute(otelAttrTopic, topic)

	headers := append([]kafkaGo.Header{}, msg.Headers...)
	headers = append(headers,
		kafkaGo.Header{Key: HeaderOriginalTopic, Value: []byte(msg.Topic)},
		kafkaGo.Header{Key: HeaderOriginalOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafkaGo.Header{Key: HeaderError, Value: []byte(cause.Error())},
		kafkaGo.Header{Key: HeaderConsumerGroup, Value: []byte(groupID)},
		kafkaGo.Header{Key: HeaderFailedAt, Value: []byte(time.Now().UTC().Format(time.RFC3339))},
	)

	err = k.writer.WriteMessages(ctx, kafkaGo.Message{
		Topic:   topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	})
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to write Kafka message to dead-letter topic.")

		return fmt.Errorf("failed to write dead-letter message: %w", err)
	}

	log.Warn().Str("topic", msg.Topic).Int64("offset", msg.Offset).Str("dlq", topic).Msg("Moved Kafka message to dead-letter topic.")

	return nil
}

func (k *kafkaClientImpl) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (k *kafkaClientImpl) Close() error {
	if err := k.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka writer: %w", err)
	}

	return nil
}
