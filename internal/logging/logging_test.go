package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"real-estate-site/internal/config"
)

type recordingPoster struct {
	mu    sync.Mutex
	tags  []string
	posts []map[string]interface{}
}

func (p *recordingPoster) Post(tag string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tags = append(p.tags, tag)
	p.posts = append(p.posts, message.(map[string]interface{}))
	return nil
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" WARN "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestConsoleHandlerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, config.LoggingConfig{Level: "info", Format: "json"}))

	logger.Debug("hidden")
	logger.Info("catalog refreshed", "count", 10)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "catalog refreshed", line["msg"])
	assert.EqualValues(t, 10, line["count"])
}

func TestFluentHandlerFlattensAttrs(t *testing.T) {
	poster := &recordingPoster{}
	logger := slog.New(NewFluentHandler(poster, "site", slog.LevelInfo)).
		With("trace_id", "abc").
		WithGroup("http")

	logger.Debug("dropped")
	logger.Warn("slow request", "status", 200, "err", errors.New("boom"))

	require.Len(t, poster.posts, 1)
	assert.Equal(t, "site", poster.tags[0])

	post := poster.posts[0]
	assert.Equal(t, "warn", post["level"])
	assert.Equal(t, "slow request", post["message"])
	assert.Equal(t, "abc", post["trace_id"])
	assert.EqualValues(t, 200, post["http.status"])
	assert.Equal(t, "boom", post["http.err"])
	assert.NotEmpty(t, post["timestamp"])
}

func TestMultiHandlerFansOut(t *testing.T) {
	var buf bytes.Buffer
	poster := &recordingPoster{}
	console := NewConsoleHandler(&buf, config.LoggingConfig{Level: "debug", Format: "json"})
	logger := slog.New(NewMultiHandler(console, NewFluentHandler(poster, "site", slog.LevelWarn)))

	logger.Info("only console")
	logger.Error("both")

	assert.Contains(t, buf.String(), "only console")
	assert.Contains(t, buf.String(), "both")
	require.Len(t, poster.posts, 1)
	assert.Equal(t, "both", poster.posts[0]["message"])
}

func TestSetupWithoutFluent(t *testing.T) {
	logger, closeFn, err := Setup(config.LoggingConfig{Level: "info"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.NoError(t, closeFn())
}
