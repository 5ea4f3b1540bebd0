package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/otusdpi/internal/config"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(config.LogConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	l.WithField("flow", "10.0.0.1:1972").Info("flow detected")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "flow detected", line["msg"])
	assert.Equal(t, "10.0.0.1:1972", line["flow"])
	assert.Equal(t, "info", line["level"])
}

func TestNewLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(config.LogConfig{Level: "warn", Format: "text"}, &buf)
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.False(t, l.IsDebugEnabled())
	assert.False(t, l.IsInfoEnabled())
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud", Format: "json"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNewInvalidFormat(t *testing.T) {
	_, err := New(config.LogConfig{Level: "info", Format: "xml"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported log format")
}

func TestPatternFormatter(t *testing.T) {
	f := &formatter{pattern: "[%level] %msg %field%n", time: time.RFC3339}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Level:   logrus.DebugLevel,
		Message: "search IRIS",
		Data:    logrus.Fields{"type": "HANDSHAKE", "code": 21320},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[debug] search IRIS code=21320,type=HANDSHAKE\n", string(out))
}

func TestPatternFormatterAppendsNewline(t *testing.T) {
	f := &formatter{pattern: "%msg", time: time.RFC3339}
	out, err := f.Format(&logrus.Entry{Logger: logrus.New(), Message: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x\n", string(out))
}

func TestPatternFormatterNoCaller(t *testing.T) {
	f := &formatter{pattern: "%caller %func", time: time.RFC3339}
	out, err := f.Format(&logrus.Entry{Logger: logrus.New()})
	require.NoError(t, err)
	assert.Equal(t, "- -\n", string(out))
}

func TestNewWithFileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "dpi.log")
	cfg := config.LogConfig{
		Level:  "debug",
		Format: "pattern",
		Outputs: config.LogOutputsConfig{
			File: config.FileOutputConfig{
				Enabled:  true,
				Path:     logPath,
				Rotation: config.RotationConfig{MaxSizeMB: 1, MaxBackups: 1},
			},
		},
	}

	l, err := New(cfg, nil)
	require.NoError(t, err)
	l.Debug("written to file")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestNewFileOutputRequiresPath(t *testing.T) {
	cfg := config.LogConfig{
		Level:   "info",
		Format:  "json",
		Outputs: config.LogOutputsConfig{File: config.FileOutputConfig{Enabled: true}},
	}
	_, err := New(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path")
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestMultiWriterKeepsWritingOnError(t *testing.T) {
	var buf bytes.Buffer
	m := NewMultiWriter().Add(failingWriter{}).Add(&buf)

	n, err := m.Write([]byte("line"))
	assert.Error(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "line", buf.String())
	assert.Equal(t, 2, m.Len())
}

func TestSetLogger(t *testing.T) {
	prev := GetLogger()
	defer SetLogger(prev)

	var buf bytes.Buffer
	l, err := New(config.LogConfig{Level: "info", Format: "text"}, &buf)
	require.NoError(t, err)
	SetLogger(l)

	GetLogger().Info("via global")
	assert.True(t, strings.Contains(buf.String(), "via global"))
}
