package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEventSerializer(t *testing.T) {
	s := NewEventSerializer("crm-dashboard")
	events := statusChangedEvents(t)

	data, err := s.Serialize(events[0])
	require.NoError(t, err)

	env, err := s.deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, events[0].EventID(), env.EventID)
	assert.Equal(t, events[0].AggregateID(), env.AggregateID)
	assert.Equal(t, "purchase.status_changed", env.EventType)
	assert.Contains(t, string(env.Payload), `"purchase_number"`)
}

func TestEventSerializer_Errors(t *testing.T) {
	s := NewEventSerializer("")

	_, err := s.Serialize(nil)
	assert.Error(t, err)

	_, err = s.deserialize([]byte("not json"))
	assert.Error(t, err)

	_, err = s.deserialize([]byte(`{"event_id":"00000000-0000-0000-0000-000000000000"}`))
	assert.Error(t, err)
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	pub := NewLogPublisher(zap.New(core))

	require.NoError(t, pub.Publish(context.Background(), statusChangedEvents(t)...))

	entries := logs.FilterMessage("Domain event (not forwarded)").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "purchase.status_changed", entries[0].ContextMap()["event_type"])
}
