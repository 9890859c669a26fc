package notify

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf)

	n.Notify(Success, "Form submitted successfully!")
	n.Notify(Error, "Server error. Please try again.")

	out := buf.String()
	assert.Contains(t, out, "Form submitted successfully!")
	assert.Contains(t, out, "Server error. Please try again.")
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestRecorder(t *testing.T) {
	var r Recorder
	_, ok := r.Last()
	assert.False(t, ok)

	r.Notify(Success, "New data received!")
	r.Notify(Error, "Failed to fetch users")

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, Notification{Level: Error, Message: "Failed to fetch users"}, last)
	assert.Len(t, r.All(), 2)
}

func TestNotifierFunc(t *testing.T) {
	var got Level = -1
	NotifierFunc(func(l Level, _ string) { got = l }).Notify(Error, "x")
	assert.Equal(t, Error, got)
	assert.Equal(t, "error", got.String())
	assert.Equal(t, "success", Success.String())
}
