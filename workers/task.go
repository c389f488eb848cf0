package workers

import (
	"time"

	"github.com/APTrust/transfer-services/models/service"
	"github.com/nsqio/go-nsq"
)

// Task encapsulates everything that a worker will need to
// pass from one channel to the next during procesing.
type Task struct {

	// NextQueueTopic is the NSQ topic the operation id goes to once
	// the manifest is parsed and saved. An empty string is also
	// valid, indicating that this item should not be pushed into
	// any NSQ topic.
	NextQueueTopic string

	// NSQMessage is the NSQ message the worker is processing.
	NSQMessage *nsq.Message

	// Request says which manifest to parse and how.
	Request *ManifestRequest

	// Result describes the result of this worker's work. It is
	// saved to Redis at the start and end of every attempt.
	Result *service.OperationResult

	// ParseResult is set when the manifest was parsed.
	ParseResult *service.ParseResult

	nsqStopChannel chan bool
	nsqDone        chan struct{}

	// For testing
	nsqStartCalled bool
}

// NSQStart creates a timer that touches the NSQ message every two
// minutes while the task is in process. Checking payloads of a
// large transfer can take longer than the NSQ message timeout.
func (item *Task) NSQStart() {
	item.NSQMessage.DisableAutoResponse()
	interval := time.Duration(2) * time.Minute
	ticker := time.NewTicker(interval)
	stopChannel := make(chan bool)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ticker.C:
				item.NSQMessage.Touch()
			case <-stopChannel:
				ticker.Stop()
				return
			}
		}
	}()
	item.nsqStartCalled = true
	item.nsqStopChannel = stopChannel
	item.nsqDone = done
}

// NSQRequeue requeues the message with the specified duration
// and stops sending touches.
func (item *Task) NSQRequeue(delay time.Duration) {
	item.stopTicker()
	item.NSQMessage.Requeue(delay)
}

// NSQFinish finishes the message and stops sending touches.
func (item *Task) NSQFinish() {
	item.stopTicker()
	item.NSQMessage.Finish()
}

func (item *Task) stopTicker() {
	if item.nsqStopChannel == nil {
		return
	}
	item.nsqStopChannel <- true
	<-item.nsqDone
	item.nsqStopChannel = nil
}

// StartCalled returns true if NSQStart() has been called on this object.
// This method exist for testing purposes.
func (item *Task) StartCalled() bool {
	return item.nsqStartCalled
}

// TickerStopped returns true if either NSQFinish() or NSQRequeue()
// has been called. This method exist for testing purposes.
func (item *Task) TickerStopped() bool {
	return item.nsqStartCalled && item.nsqStopChannel == nil
}
