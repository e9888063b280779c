package kafka

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/climate-impact-metrics/internal/config"
	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 4, 26, 15, 10, 0, 0, time.UTC)
	event := domain.ArtifactEvent{
		Name:      "NPP_[RCP85-Historical]_(1990-2000)_ann",
		Kind:      domain.ArtifactMapData,
		Location:  "/data/out/NPP_[RCP85-Historical]_(1990-2000)_ann.nc",
		Units:     "kg m-2 yr-1",
		Shape:     []int{73, 96},
		RunID:     "run-1",
		CreatedAt: now,
	}

	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte(event.Name), msg.Key)
	assert.Contains(t, string(msg.Value), `"kind":"map_data"`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "artifact_kind", msg.Headers[0].Key)
	assert.Equal(t, []byte("map_data"), msg.Headers[0].Value)
	assert.Equal(t, "created_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)

	var back domain.ArtifactEvent
	require.NoError(t, json.Unmarshal(msg.Value, &back))
	assert.Equal(t, event, back)
}

func TestSerializeToMessage_OmitsEmptyRunID(t *testing.T) {
	msg, err := serializeToMessage(domain.ArtifactEvent{Name: "a", Kind: domain.ArtifactMap})
	require.NoError(t, err)
	assert.NotContains(t, string(msg.Value), "run_id")
}

func TestNewWriter(t *testing.T) {
	w := NewWriter(&config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "artifacts"}, slog.Default())
	defer w.Close()

	assert.Equal(t, "artifacts", w.writer.Topic)
	assert.Equal(t, "localhost:9092", w.writer.Addr.String())
}
