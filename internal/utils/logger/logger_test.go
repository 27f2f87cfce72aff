package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_WrapsCause(t *testing.T) {
	SetLevel("silent")
	defer SetLevel("info")

	cause := errors.New("connection refused")
	err := New("test").Error("failed to reach %s", cause, "airtable")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to reach airtable: connection refused", err.Error())
}

func TestSetLevel(t *testing.T) {
	defer SetLevel("info")

	SetLevel("warn")
	assert.False(t, enabled(LevelInfo))
	assert.True(t, enabled(LevelWarn))

	SetLevel("bogus")
	assert.True(t, enabled(LevelError))
	assert.False(t, enabled(LevelInfo))

	SetLevel("DEBUG")
	assert.True(t, enabled(LevelDebug))
}
