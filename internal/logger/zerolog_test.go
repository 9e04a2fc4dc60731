package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var events []map[string]interface{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		event := map[string]interface{}{}
		require.NoError(t, json.Unmarshal(line, &event))
		events = append(events, event)
	}
	return events
}

func TestZerologAdapterFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewZerolog(buf, zerolog.DebugLevel)

	log.Info("Registry", "algorithm registered", map[string]interface{}{"name": "FrameDifference"})
	log.Error("Pipeline", errors.New("boom"), map[string]interface{}{"frame": 3})

	events := decodeLines(t, buf)
	require.Len(t, events, 2)

	assert.Equal(t, "info", events[0]["level"])
	assert.Equal(t, "Registry", events[0]["component"])
	assert.Equal(t, "algorithm registered", events[0]["message"])
	assert.Equal(t, "FrameDifference", events[0]["name"])

	assert.Equal(t, "error", events[1]["level"])
	assert.Equal(t, "boom", events[1]["error"])
	assert.Equal(t, "Pipeline failed", events[1]["message"])
	assert.EqualValues(t, 3, events[1]["frame"])
}

func TestZerologAdapterLevelFilter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewZerolog(buf, zerolog.WarnLevel)

	log.Debug("c", "hidden", nil)
	log.Info("c", "hidden", nil)
	log.Warning("c", "shown", nil)

	events := decodeLines(t, buf)
	require.Len(t, events, 1)
	assert.Equal(t, "shown", events[0]["message"])
}

func TestWithAddsFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewZerolog(buf, zerolog.InfoLevel).With(map[string]interface{}{"run_id": "abc"})

	log.Info("main", "started", nil)

	events := decodeLines(t, buf)
	require.Len(t, events, 1)
	assert.Equal(t, "abc", events[0]["run_id"])
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, level)

	level, err = ParseLevel(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestNopDiscards(t *testing.T) {
	var log Logger = Nop()
	assert.NotPanics(t, func() {
		log.Info("c", "m", map[string]interface{}{"k": 1})
		log.Error("c", errors.New("x"), nil)
	})
}

func TestDisabledLevelSkipsFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewZerolog(buf, zerolog.ErrorLevel)

	assert.NotPanics(t, func() {
		log.Debug("c", "hidden", map[string]interface{}{"k": 1})
		log.Warning("c", "hidden", nil)
	})
	assert.Zero(t, buf.Len())
}
