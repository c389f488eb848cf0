package workers_test

import (
	"testing"
	"time"

	"github.com/APTrust/transfer-services/workers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskNSQFinish(t *testing.T) {
	message, delegate := newMessage("op-1")
	task := &workers.Task{NSQMessage: message}
	assert.False(t, task.StartCalled())

	task.NSQStart()
	assert.True(t, message.IsAutoResponseDisabled())
	assert.True(t, task.StartCalled())
	assert.False(t, task.TickerStopped())

	task.NSQFinish()
	assert.True(t, task.TickerStopped())
	select {
	case <-delegate.finished:
	case <-time.After(time.Second):
		require.Fail(t, "message was not finished")
	}
}

func TestTaskNSQRequeue(t *testing.T) {
	message, delegate := newMessage("op-2")
	task := &workers.Task{NSQMessage: message}
	task.NSQStart()
	task.NSQRequeue(50 * time.Minute)
	assert.True(t, task.TickerStopped())
	select {
	case delay := <-delegate.requeued:
		assert.Equal(t, 50*time.Minute, delay)
	case <-time.After(time.Second):
		require.Fail(t, "message was not requeued")
	}
}
