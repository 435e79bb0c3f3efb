package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(t *testing.T, level LogLevel) (*Logger, *bytes.Buffer) {
	t.Helper()
	l, err := NewLogger(&Config{Level: level, Format: "json", AppName: "momo-gateway", Version: "test"})
	require.NoError(t, err)
	buf := &bytes.Buffer{}
	l.SetOutput(buf)
	return l, buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestJSONFormatterIncludesAppAndFields(t *testing.T) {
	l, buf := newBufferedLogger(t, InfoLevel)

	l.WithReferenceID("ref-1").WithField("status_code", 202).Info("request to pay accepted")

	line := decodeLine(t, buf)
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "request to pay accepted", line["message"])
	assert.Equal(t, "momo-gateway", line["app"])
	assert.Equal(t, "test", line["version"])
	assert.Equal(t, "ref-1", line["reference_id"])
	assert.EqualValues(t, 202, line["status_code"])
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	l, buf := newBufferedLogger(t, InfoLevel)

	_ = l.WithField("a", 1)
	l.Info("plain")

	line := decodeLine(t, buf)
	_, ok := line["a"]
	assert.False(t, ok)
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferedLogger(t, WarnLevel)

	l.LogGatewayCall("get_balance", 200, time.Millisecond)
	l.Info("skipped")
	assert.Zero(t, buf.Len())

	l.SetLevel(DebugLevel)
	l.LogGatewayCall("get_balance", 200, 5*time.Millisecond)
	line := decodeLine(t, buf)
	assert.Equal(t, "gateway_call", line["type"])
	assert.Equal(t, "get_balance", line["operation"])
}

func TestWithContextAndError(t *testing.T) {
	l, buf := newBufferedLogger(t, InfoLevel)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-9")
	l.WithContext(ctx).WithError(errors.New("boom")).Error("failed")

	line := decodeLine(t, buf)
	assert.Equal(t, "req-9", line["request_id"])
	assert.Equal(t, "boom", line["error"])
	assert.Same(t, l, l.WithError(nil))
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("nothing to see")
	l.WithField("k", "v").Info("still nothing")
}
