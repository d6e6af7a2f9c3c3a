package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayhub/config"
	"stayhub/infras/otel/mocks"
)

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafkaGo.Message
	committed []kafkaGo.Message
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkaGo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.pending) == 0 {
		r.cancel()

		return kafkaGo.Message{}, ctx.Err()
	}

	msg := r.pending[0]
	r.pending = r.pending[1:]

	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.committed = append(r.committed, msgs...)

	return nil
}

func (r *fakeReader) Close() error { return nil }

type fakeWriter struct {
	written []kafkaGo.Message
	err     error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	if w.err != nil {
		return w.err
	}

	w.written = append(w.written, msgs...)

	return nil
}

func (w *fakeWriter) Close() error { return nil }

func newTestClient(dlqTopic string, writer *fakeWriter, reader *fakeReader) *kafkaClientImpl {
	cfg := &config.Config{}
	cfg.Kafka.ConsumerGroup = "stayhub"
	cfg.Kafka.Topics.DeadLetter = dlqTopic

	return &kafkaClientImpl{
		config:    cfg,
		otel:      mocks.NewOtel(),
		writer:    writer,
		newReader: func(string, string) messageReader { return reader },
	}
}

func TestConsume_GiveUp(t *testing.T) {
	failing := errors.New("db down")

	tests := []struct {
		name          string
		dlqTopic      string
		writerErr     error
		handlerErr    error
		wantCalls     int
		wantErr       bool
		wantCommitted int
		wantDLQ       int
	}{
		{
			name:          "exhausted message goes to dead-letter topic and is committed",
			dlqTopic:      "booking.completed.dlq",
			handlerErr:    failing,
			wantCalls:     maxAttempts,
			wantCommitted: 1,
			wantDLQ:       1,
		},
		{
			name:       "exhausted message without dead-letter topic stays uncommitted",
			handlerErr: failing,
			wantCalls:  maxAttempts,
			wantErr:    true,
		},
		{
			name:       "dead-letter write failure leaves offset uncommitted",
			dlqTopic:   "booking.completed.dlq",
			writerErr:  errors.New("broker unavailable"),
			handlerErr: failing,
			wantCalls:  maxAttempts,
			wantErr:    true,
		},
		{
			name:          "permanent failure is not retried",
			dlqTopic:      "booking.completed.dlq",
			handlerErr:    Permanent(errors.New("bad payload")),
			wantCalls:     1,
			wantCommitted: 1,
			wantDLQ:       1,
		},
		{
			name:          "permanent failure without dead-letter topic is dropped",
			handlerErr:    Permanent(errors.New("bad payload")),
			wantCalls:     1,
			wantCommitted: 1,
		},
		{
			name:          "handled message is committed",
			wantCalls:     1,
			wantCommitted: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			msg := kafkaGo.Message{Topic: "booking.completed", Key: []byte("l-1"), Value: []byte(`{}`), Offset: 42}
			reader := &fakeReader{pending: []kafkaGo.Message{msg}, cancel: cancel}
			writer := &fakeWriter{err: tt.writerErr}
			client := newTestClient(tt.dlqTopic, writer, reader)

			calls := 0
			err := client.Consume(ctx, "", "booking.completed", func(context.Context, kafkaGo.Message) error {
				calls++

				return tt.handlerErr
			})

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, failing)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.wantCalls, calls)
			assert.Len(t, reader.committed, tt.wantCommitted)
			assert.Len(t, writer.written, tt.wantDLQ)
		})
	}
}

func TestDeadLetterKeepsPayloadAndOrigin(t *testing.T) {
	writer := &fakeWriter{}
	client := newTestClient("booking.completed.dlq", writer, nil)

	msg := kafkaGo.Message{
		Topic:   "booking.completed",
		Key:     []byte("l-1"),
		Value:   []byte(`{"event_id":"ev-1"}`),
		Offset:  7,
		Headers: []kafkaGo.Header{{Key: "trace", Value: []byte("abc")}},
	}

	require.NoError(t, client.deadLetter(context.Background(), "stayhub", msg, errors.New("db down")))
	require.Len(t, writer.written, 1)

	out := writer.written[0]
	assert.Equal(t, "booking.completed.dlq", out.Topic)
	assert.Equal(t, msg.Key, out.Key)
	assert.Equal(t, msg.Value, out.Value)

	headers := map[string]string{}
	for _, h := range out.Headers {
		headers[h.Key] = string(h.Value)
	}

	assert.Equal(t, "abc", headers["trace"])
	assert.Equal(t, "booking.completed", headers[HeaderOriginalTopic])
	assert.Equal(t, "7", headers[HeaderOriginalOffset])
	assert.Equal(t, "db down", headers[HeaderError])
	assert.Equal(t, "stayhub", headers[HeaderConsumerGroup])
	assert.NotEmpty(t, headers[HeaderFailedAt])
}
