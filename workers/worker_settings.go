package workers

import (
	"encoding/json"
	"time"
)

// Settings contains settings for a manifest worker.
type Settings struct {
	// ChannelBufferSize is the size of the buffer for the
	// ProcessChannel, SuccessChannel, ErrorChannel,
	// and FatalErrorChannel. It is also NSQ's max_in_flight.
	ChannelBufferSize int

	// DeleteManifestAfterParse removes the downloaded manifest and
	// its working directory once the operation is finished.
	DeleteManifestAfterParse bool

	// MaxAttempts is the maximum number of times the worker should
	// attempt its work before giving up. Note that this applies
	// only to attempts that fail from infrastructure errors.
	// Manifest errors are never retried.
	MaxAttempts int

	// NSQChannel is the NSQ channel the worker should subscribe
	// to to receive messages.
	NSQChannel string

	// NSQTopic is the NSQ topic the worker should subscribe
	// to to receive messages.
	NSQTopic string

	// NextQueueTopic is the name of the NSQ topic to which an
	// operation id should be pushed after the worker successfully
	// parses its manifest. An empty string means nowhere.
	NextQueueTopic string

	// NumberOfWorkers is the number of go routines that fetch and
	// parse manifests. Parsing is CPU-bound, while fetching and
	// payload checks are mostly I/O.
	NumberOfWorkers int

	// RequeueTimeout describes how long of a timeout to set
	// on the NSQ requeue after an item fails with non-fatal
	// errors.
	RequeueTimeout time.Duration
}

func (settings *Settings) ToJSON() string {
	data, _ := json.Marshal(settings)
	return string(data)
}
