package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugGating(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, false)

	logger.Debug("hidden %d", 1)
	assert.Empty(t, buf.String())

	logger = NewWithWriter(&buf, true)
	logger.Debug("shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
	assert.True(t, logger.IsDebug())
}

func TestNoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, false)

	logger.Compare("main...feature")
	assert.Equal(t, compareEmoji+"main...feature\n", buf.String())
	assert.NotContains(t, buf.String(), "\033[")
}

func TestWrap(t *testing.T) {
	long := strings.Repeat("word ", 40)
	for _, line := range strings.Split(wrap(long), "\n") {
		assert.LessOrEqual(t, len(line), wrapWidth)
	}

	assert.Equal(t, "short\nlines", wrap("short\nlines"))
}
