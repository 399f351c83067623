//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/reservoir-scenario-service/internal/adapter/kafka"
	"github.com/couchcryptid/reservoir-scenario-service/internal/config"
	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
	"github.com/couchcryptid/reservoir-scenario-service/internal/model"
	"github.com/couchcryptid/reservoir-scenario-service/internal/observability"
	"github.com/couchcryptid/reservoir-scenario-service/internal/pipeline"
	"github.com/couchcryptid/reservoir-scenario-service/internal/scenario"
)

const (
	testSourceTopic = "test-source"
	testSinkTopic   = "test-sink"
	kafkaImage      = "confluentinc/confluent-local:7.5.0"
)

// resultMessage holds a deserialized message read from the sink topic.
type resultMessage struct {
	Result  domain.ScenarioResult
	Key     string
	Headers map[string]string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("reservoir-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}
}

func newService(t *testing.T) *scenario.Service {
	t.Helper()
	m, err := model.FitToy()
	require.NoError(t, err)
	return scenario.NewService(model.NewRegistry(m), observability.NewMetricsForTesting(), discardLogger())
}

func requestPayload(t *testing.T, id string, in domain.ScenarioInput) []byte {
	t.Helper()
	payload, err := json.Marshal(domain.ScenarioRequest{ID: id, Scenario: in})
	require.NoError(t, err)
	return payload
}

func sinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// readResult reads a single message from the sink consumer and deserializes it.
func readResult(ctx context.Context, t *testing.T, consumer *kafkago.Reader) resultMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var result domain.ScenarioResult
	require.NoError(t, json.Unmarshal(msg.Value, &result), "unmarshal sink message")

	return resultMessage{Result: result, Key: string(msg.Key), Headers: headers}
}

var referenceInput = domain.ScenarioInput{
	PrecipitationChangePercent: 10,
	TemperatureIncreaseC:       1.5,
	CropAreaIncreasePercent:    5,
	TechnologyAdoptionPercent:  30,
}

// TestKafkaReaderWriter verifies that kafka.Reader and kafka.Writer round-trip
// a scenario through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-reader")

	payload := requestPayload(t, "req-1", referenceInput)
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{Key: []byte("req-1"), Value: payload}))

	// The consumer group may need time to rebalance before partitions are assigned.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawEvent
	for len(batch) == 0 {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("req-1"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	out, err := pipeline.NewTransformer(newService(t), discardLogger()).Transform(ctx, raw)
	require.NoError(t, err)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, []domain.OutputEvent{out}))

	rm := readResult(ctx, t, sinkConsumer(t, broker))
	assert.Equal(t, "req-1", rm.Key)
	assert.Equal(t, "toy", rm.Headers["model_mode"])
	_, err = time.Parse(time.RFC3339, rm.Headers["computed_at"])
	assert.NoError(t, err, "computed_at should be valid RFC3339")
	require.NotNil(t, rm.Result.PredictedStorage)
	assert.InDelta(t, 120.0, *rm.Result.PredictedStorage, 1e-6)
	assert.Equal(t, domain.Simulate(referenceInput), rm.Result.Simulation)
}

// TestPipelineEndToEnd wires Reader, ScenarioTransformer and Writer against a
// real broker and checks every request produces its result.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-pipeline")

	const n = 20
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })

	msgs := make([]kafkago.Message, 0, n)
	for i := range n {
		id := fmt.Sprintf("req-%d", i)
		in := domain.ScenarioInput{TechnologyAdoptionPercent: float64(i * 5)}
		msgs = append(msgs, kafkago.Message{Key: []byte(id), Value: requestPayload(t, id, in)})
	}
	require.NoError(t, producer.WriteMessages(ctx, msgs...))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(reader, pipeline.NewTransformer(newService(t), discardLogger()), writer, discardLogger(), observability.NewMetricsForTesting(), 8)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	received := make(map[string]domain.ScenarioResult, n)
	for len(received) < n {
		rm := readResult(ctx, t, consumer)
		received[rm.Key] = rm.Result
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	for i := range n {
		result, ok := received[fmt.Sprintf("req-%d", i)]
		require.True(t, ok, "missing result %d", i)
		want := domain.Simulate(domain.ScenarioInput{TechnologyAdoptionPercent: float64(i * 5)})
		assert.InDelta(t, want.StorageChange, result.Simulation.StorageChange, 1e-9)
	}
	assert.NoError(t, p.CheckReadiness(ctx))
}

// TestPipelineTransformError verifies that an invalid request is skipped and
// the pipeline keeps processing valid ones.
func TestPipelineTransformError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-poison")

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("partial"), Value: []byte(`{"scenario":{"temperature_increase_c":1}}`)},
		kafkago.Message{Key: []byte("good"), Value: requestPayload(t, "good", referenceInput)},
	))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(reader, pipeline.NewTransformer(newService(t), discardLogger()), writer, discardLogger(), observability.NewMetricsForTesting(), 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	rm := readResult(ctx, t, consumer)
	assert.Equal(t, "good", rm.Key)

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}
