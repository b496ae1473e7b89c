package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStaticMessages(t *testing.T) {
	var buf bytes.Buffer
	c := NewWriter(&buf, false)

	c.Info("plain %d", 1)
	c.Success("done")
	c.Warn("careful")
	c.Error("broken")

	out := buf.String()
	assert.Contains(t, out, "plain 1\n")
	assert.Contains(t, out, "✓ done")
	assert.Contains(t, out, "! careful")
	assert.Contains(t, out, "✗ broken")
}

func TestQuietKeepsErrors(t *testing.T) {
	var buf bytes.Buffer
	c := NewWriter(&buf, true)

	c.Info("hidden")
	c.Success("hidden")
	c.Warn("hidden")
	c.Error("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "✗ shown")
	assert.True(t, c.Quiet())
}

func TestTasksAreSilentWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	c := NewWriter(&buf, false)

	c.AddTask("rec-1", "starting", OpTransfer)
	c.UpdateTask("rec-1", "50%")
	c.RemoveTask("rec-1")
	c.StopRenderer()

	assert.Empty(t, buf.String())
}

func TestLineColoursByActivity(t *testing.T) {
	c := NewWriter(&bytes.Buffer{}, false)
	task := &managedTask{id: "rec-1", msg: "fetching", opType: OpTransfer, spinner: newSpinner()}

	// Idle tasks keep their frame.
	first := c.line(task)
	assert.Contains(t, first, "rec-1:")
	assert.Contains(t, first, "fetching")
	assert.Equal(t, 0, task.spinner.index)

	task.lastActivity = time.Now()
	c.line(task)
	assert.Equal(t, 1, task.spinner.index)

	task.lastActivity = time.Now().Add(-7 * time.Second)
	c.line(task)
	assert.Equal(t, 1, task.spinner.index)
}

func TestRenderLoopStops(t *testing.T) {
	var buf bytes.Buffer
	c := NewWriter(&buf, false)
	c.animate = true

	c.AddTask("rec-1", "starting", OpExtract)
	c.UpdateTask("rec-1", "unpacking")
	time.Sleep(250 * time.Millisecond)
	c.StopRenderer()

	assert.Contains(t, buf.String(), "rec-1:")
	assert.Contains(t, buf.String(), "unpacking")
	c.StopRenderer()
}
