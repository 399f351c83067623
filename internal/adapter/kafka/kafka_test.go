package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("key-1"),
		Value:     []byte(`{"id":"req-1"}`),
		Topic:     "scenario-requests",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("dashboard")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("key-1"), raw.Key)
	assert.JSONEq(t, `{"id":"req-1"}`, string(raw.Value))
	assert.Equal(t, "scenario-requests", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "dashboard", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestToMessage(t *testing.T) {
	computedAt := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	result := domain.NewScenarioResult("req-1", domain.ScenarioInput{TechnologyAdoptionPercent: 50}, 125, "model-1", "toy")
	result.ComputedAt = computedAt

	event, err := domain.SerializeScenarioResult(result)
	require.NoError(t, err)

	msg := toMessage(event)

	assert.Equal(t, []byte("req-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"predicted_storage":125`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "computed_at", msg.Headers[0].Key)
	assert.Equal(t, []byte(computedAt.Format(time.RFC3339)), msg.Headers[0].Value)
	assert.Equal(t, "model_id", msg.Headers[1].Key)
	assert.Equal(t, []byte("model-1"), msg.Headers[1].Value)
	assert.Equal(t, "model_mode", msg.Headers[2].Key)
	assert.Equal(t, []byte("toy"), msg.Headers[2].Value)
}

func TestToMessage_NoHeaders(t *testing.T) {
	msg := toMessage(domain.OutputEvent{Key: []byte("k"), Value: []byte("v")})

	assert.Empty(t, msg.Headers)
	assert.Equal(t, []byte("v"), msg.Value)
}
