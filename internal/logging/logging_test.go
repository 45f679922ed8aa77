package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"fuelprice/internal/logging"
)

func TestNew(t *testing.T) {
	t.Parallel()

	l := logging.New("debug", "json")
	require.Equal(t, logrus.DebugLevel, l.GetLevel())
	require.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	var buf bytes.Buffer
	l.SetOutput(&buf)
	l.WithField("city", "Cluj").Info("hello")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "Cluj", entry["city"])
	require.Equal(t, "hello", entry["msg"])
}

func TestNew_Fallbacks(t *testing.T) {
	t.Parallel()

	l := logging.New("loud", "")
	require.Equal(t, logrus.InfoLevel, l.GetLevel())
	require.IsType(t, &logrus.TextFormatter{}, l.Formatter)
}
