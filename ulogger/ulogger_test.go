package ulogger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroLogger_JSON(t *testing.T) {
	var buf bytes.Buffer

	logger := New("validator", WithWriter(&buf), WithPretty(false), WithLevel("DEBUG"))
	logger.Infof("validated %d transactions", 12)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "validated 12 transactions", line["message"])
	assert.Equal(t, "validator", line["service"])
}

func TestZeroLogger_Levels(t *testing.T) {
	var buf bytes.Buffer

	logger := New("cache", WithWriter(&buf), WithPretty(false), WithLevel("WARN"))
	assert.Equal(t, LevelWarn, logger.LogLevel())

	logger.Infof("hidden")
	assert.Empty(t, buf.String())

	logger.Warnf("shown")
	assert.Contains(t, buf.String(), "shown")

	logger.SetLogLevel("error")
	assert.Equal(t, LevelError, logger.LogLevel())

	logger.SetLogLevel("nonsense")
	assert.Equal(t, LevelInfo, logger.LogLevel())
}

func TestZeroLogger_NewKeepsParentSettings(t *testing.T) {
	var buf bytes.Buffer

	parent := New("parent", WithWriter(&buf), WithPretty(false), WithLevel("DEBUG"))
	child := parent.New("child")

	child.Debugf("from child")
	assert.Contains(t, buf.String(), `"service":"child"`)
	assert.Equal(t, LevelDebug, child.LogLevel())

	dup := parent.Duplicate(WithLevel("ERROR"))
	assert.Equal(t, LevelError, dup.LogLevel())
}

func TestZeroLogger_Pretty(t *testing.T) {
	var buf bytes.Buffer

	logger := New("blockvalidation", WithWriter(&buf), WithLevel("INFO"))
	logger.Infof("block %s valid", "abcd")

	out := buf.String()
	assert.True(t, strings.Contains(out, "blockvalidation"))
	assert.True(t, strings.Contains(out, "block abcd valid"))
}

func TestTestLoggers(t *testing.T) {
	var logger Logger = &TestLogger{}
	logger.Errorf("ignored %d", 1)
	assert.Equal(t, logger, logger.New("x"))

	verbose := NewVerboseTestLogger(t)
	verbose.Infof("hello %s", "world")
	assert.Equal(t, Logger(verbose), verbose.Duplicate())

	errLogger := NewErrorTestLogger(t)
	errLogger.SkipFailOnError(true)
	errLogger.Errorf("expected failure %d", 1)
	errLogger.Shutdown()
	errLogger.Errorf("after shutdown")
}

func TestShortCaller(t *testing.T) {
	assert.Equal(t, "util/usql/DB.go:10", shortCaller("util/usql/DB.go:10"))
	assert.Equal(t, "BlockValidator.go:42", shortCaller("services/blockvalidation/BlockValidator.go:42"))
}
