package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ReusesNamedLogger(t *testing.T) {
	Init(Options{Level: "debug", Format: "text", Output: "stdout"})
	a := Get("orchestrator")
	assert.Same(t, a, Get("orchestrator"))
	assert.NotSame(t, a, Get("httpapi"))
	assert.Equal(t, logrus.DebugLevel, a.Logger.GetLevel())
	assert.Equal(t, "orchestrator", a.Data["component"])
}

func TestGet_JSONFormat(t *testing.T) {
	Init(Options{Level: "nonsense", Format: "json", Output: "stdout"})
	l := Get("cache")
	assert.Equal(t, logrus.InfoLevel, l.Logger.GetLevel())

	var buf bytes.Buffer
	l.Logger.SetOutput(&buf)
	l.Info("Cache: hit")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Cache: hit", line["message"])
	assert.Equal(t, "cache", line["component"])
}
