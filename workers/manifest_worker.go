package workers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/APTrust/transfer-services/constants"
	"github.com/APTrust/transfer-services/ingest"
	"github.com/APTrust/transfer-services/models/common"
	"github.com/APTrust/transfer-services/models/service"
	"github.com/APTrust/transfer-services/network"
	"github.com/APTrust/transfer-services/util"
	"github.com/nsqio/go-nsq"
)

// FetchFunc copies bucket/key to localPath.
type FetchFunc func(ctx context.Context, bucket, key, localPath string) error

// SigTermState contains info about whether the current worker
// received SIGTERM (or SIGINT), and if so, what action it took
// in response to the signal.
type SigTermState struct {
	// Received indicates whether this worker received SIGTERM
	// or SIGINT.
	Received bool
	// Completed indicates whether this worker completed all of
	// its SIGTERM cleanup tasks.
	Completed bool
	// ItemsInProcess is the number of operations this worker was
	// working on when SIGTERM was received.
	ItemsInProcess int
	// ItemsReleased is the number of operation results this worker
	// marked as interrupted.
	ItemsReleased int
	// FailedReleases is the number of operation results this worker
	// could not update.
	FailedReleases int
}

// ManifestWorker reads manifest requests from NSQ, fetches each
// manifest from S3, parses it and saves the parse result to Redis
// for the storage stage.
type ManifestWorker struct {

	// Context contains the config and the NSQ, Redis, Registry and S3
	// clients.
	Context *common.Context

	// ItemsInProcess keeps track of operation ids that the worker is
	// currently processing. We need to do this because NSQ does not
	// dedupe messages, so the worker must.
	ItemsInProcess *service.RingList[string]

	// ProcessChannel is where manifests are fetched and parsed.
	ProcessChannel chan *Task

	// SuccessChannel processes items that have gone through the
	// ProcessChannel with no errors.
	SuccessChannel chan *Task

	// ErrorChannel processes items that failed because of
	// infrastructure errors. These are retried up to MaxAttempts.
	ErrorChannel chan *Task

	// FatalErrorChannel processes items whose manifests were
	// rejected. These are never retried.
	FatalErrorChannel chan *Task

	// KillChannel handles SIGTERM and SIGINT.
	KillChannel chan os.Signal

	Settings *Settings

	// NSQConsumer implements HandleMessage to receive messages from NSQ.
	NSQConsumer *nsq.Consumer

	// Fetch downloads a manifest. It defaults to the configured S3
	// client.
	Fetch FetchFunc

	sigTermState SigTermState
	sigTermMutex sync.Mutex
}

// NewSettings returns the settings of a manifest parse worker.
func NewSettings(bufSize, numWorkers, maxAttempts int, requeueTimeout time.Duration) *Settings {
	return &Settings{
		ChannelBufferSize:        bufSize,
		DeleteManifestAfterParse: true,
		MaxAttempts:              maxAttempts,
		NSQChannel:               constants.ChannelManifest,
		NSQTopic:                 constants.TopicManifestParse,
		NextQueueTopic:           constants.TopicManifestStore,
		NumberOfWorkers:          numWorkers,
		RequeueTimeout:           requeueTimeout,
	}
}

// NewManifestWorker creates a worker. Call Start to run its channel
// processors, then RegisterAsNsqConsumer to begin taking messages.
func NewManifestWorker(_context *common.Context, settings *Settings) *ManifestWorker {
	worker := &ManifestWorker{
		Context:           _context,
		Settings:          settings,
		ItemsInProcess:    service.NewRingList[string](settings.ChannelBufferSize),
		ProcessChannel:    make(chan *Task, settings.ChannelBufferSize),
		SuccessChannel:    make(chan *Task, settings.ChannelBufferSize),
		ErrorChannel:      make(chan *Task, settings.ChannelBufferSize),
		FatalErrorChannel: make(chan *Task, settings.ChannelBufferSize),
		KillChannel:       make(chan os.Signal, 1),
	}
	worker.Fetch = worker.fetchFromS3
	return worker
}

// Start launches the process and post-process goroutines and
// installs the SIGTERM handler.
func (w *ManifestWorker) Start() {
	for i := 0; i < w.Settings.NumberOfWorkers; i++ {
		go w.ProcessItem()
	}
	go w.ProcessSuccessChannel()
	go w.ProcessErrorChannel()
	go w.ProcessFatalErrorChannel()
	signal.Notify(w.KillChannel, syscall.SIGINT, syscall.SIGTERM)
	w.Context.Logger.Infof("Manifest worker started with settings %s", w.Settings.ToJSON())
}

// RegisterAsNsqConsumer registers this worker as an NSQ consumer on
// Settings.NSQTopic and Settings.NSQChannel. Note that as soon as you
// call this, your worker will start handling messages if any are
// available.
func (w *ManifestWorker) RegisterAsNsqConsumer() error {
	config := nsq.NewConfig()
	config.Set("heartbeat_interval", "10s")
	config.Set("max_in_flight", w.Settings.ChannelBufferSize)
	consumer, err := nsq.NewConsumer(w.Settings.NSQTopic, w.Settings.NSQChannel, config)
	if err != nil {
		return err
	}
	w.NSQConsumer = consumer
	w.NSQConsumer.AddHandler(w)
	if err := w.NSQConsumer.ConnectToNSQLookupd(w.Context.Config.NsqLookupd); err != nil {
		return err
	}
	w.Context.Logger.Info("Registered as NSQ consumer")
	return nil
}

// HandleMessage decides whether to process message at all. If so, it
// marks the operation as started and puts it in the ProcessChannel.
func (w *ManifestWorker) HandleMessage(message *nsq.Message) error {
	req, err := ParseManifestRequest(message.Body)
	if err != nil {
		// Returning nil finishes the message. A request that
		// cannot be read will never succeed.
		w.Context.Logger.Error(err.Error())
		ManifestsTotal.WithLabelValues(outcomeRejected).Inc()
		return nil
	}
	if w.ImAlreadyProcessingThis(req.OperationID) {
		ManifestsTotal.WithLabelValues(outcomeSkipped).Inc()
		return nil
	}
	result := w.GetOperationResult(req.OperationID)
	if result.Succeeded() || result.HasFatalError {
		w.Context.Logger.Infof("Skipping operation %s: already finished after %d attempt(s)",
			req.OperationID, result.Attempt)
		ManifestsTotal.WithLabelValues(outcomeSkipped).Inc()
		return nil
	}

	task := &Task{
		NSQMessage:     message,
		NextQueueTopic: w.Settings.NextQueueTopic,
		Request:        req,
		Result:         result,
	}
	w.MarkAsStarted(task)
	w.AddToInProcessList(req.OperationID)
	TasksInFlight.Inc()
	w.ProcessChannel <- task
	return nil
}

// ProcessItem parses manifests from the ProcessChannel until the
// worker is told to stop.
func (w *ManifestWorker) ProcessItem() {
	for {
		select {
		case signal := <-w.KillChannel:
			w.doSigTermCleanup(signal)
		case task := <-w.ProcessChannel:
			w.processItem(task)
		}
	}
}

func (w *ManifestWorker) processItem(task *Task) {
	req := task.Request
	w.Context.Logger.Infof("Operation %s (%s/%s) is in ProcessChannel", req.OperationID, req.Bucket, req.Key)
	startTime := time.Now()
	w.parseManifest(task)
	ParseDuration.WithLabelValues(req.OperationKind).Observe(time.Since(startTime).Seconds())
	if w.Settings.DeleteManifestAfterParse {
		w.removeWorkingDir(req.OperationID)
	}

	if task.Result.HasFatalError {
		w.FatalErrorChannel <- task
	} else if task.Result.HasErrors() {
		w.ErrorChannel <- task
	} else {
		w.SuccessChannel <- task
	}
}

// parseManifest fetches, parses and saves one manifest. Failures are
// recorded on task.Result.
func (w *ManifestWorker) parseManifest(task *Task) {
	req := task.Request
	dir := w.Context.Config.ManifestDir(req.OperationID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		task.Result.AddError("prepare working directory", err)
		return
	}
	localPath := filepath.Join(dir, "manifest.xml")
	if err := w.Fetch(context.Background(), req.Bucket, req.Key, localPath); err != nil {
		task.Result.AddError("fetch manifest", err)
		return
	}
	file, err := os.Open(localPath)
	if err != nil {
		task.Result.AddError("open manifest", err)
		return
	}
	defer file.Close()

	parser := ingest.NewManifestParser(w.Context.Collaborators(), w.Context.Logger,
		req.OperationID, req.OperationKind, req.ContentRoot)
	parseResult, err := parser.Parse(file)
	if err != nil {
		task.Result.AddError("parse manifest", err)
		return
	}
	if err := w.Context.RedisClient.ParseResultSave(parseResult); err != nil {
		task.Result.AddError("save parse result", err)
		return
	}
	task.ParseResult = parseResult
	task.Result.UnitCount = len(parseResult.Units)
	task.Result.GroupCount = len(parseResult.Groups)
}

func (w *ManifestWorker) fetchFromS3(ctx context.Context, bucket, key, localPath string) error {
	client, err := w.Context.S3Client()
	if err != nil {
		return err
	}
	_, err = network.FetchObject(ctx, client, w.Context.Logger, bucket, key, localPath)
	return err
}

func (w *ManifestWorker) removeWorkingDir(operationID string) {
	dir := w.Context.Config.ManifestDir(operationID)
	if !util.LooksSafeToDelete(dir, 12, 3) {
		w.Context.Logger.Warningf("Not deleting working dir %s: it does not look safe to delete", dir)
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		w.Context.Logger.Warningf("Could not delete working dir %s: %v", dir, err)
	}
}

// ProcessSuccessChannel queues parsed operations for the storage
// stage.
func (w *ManifestWorker) ProcessSuccessChannel() {
	for task := range w.SuccessChannel {
		task.Result.Finish()
		if err := w.PushToQueue(task); err != nil {
			task.Result.AddError("queue operation", err)
			w.ErrorChannel <- task
			continue
		}
		w.Context.Logger.Infof("Operation %s parsed: %d units, %d groups in %s",
			task.Request.OperationID, task.Result.UnitCount, task.Result.GroupCount, task.Result.RunTime())
		w.FinishItem(task)
		ManifestsTotal.WithLabelValues(outcomeSucceeded).Inc()
		UnitsParsed.Add(float64(task.Result.UnitCount))
	}
}

// ProcessErrorChannel requeues operations that hit infrastructure
// errors, until they run out of attempts.
func (w *ManifestWorker) ProcessErrorChannel() {
	for task := range w.ErrorChannel {
		opID := task.Request.OperationID
		for _, err := range task.Result.Errors {
			w.Context.Logger.Warningf("Operation %s attempt %d: %s", opID, task.Result.Attempt, err.Detail())
		}
		if task.Result.Attempt >= w.Settings.MaxAttempts {
			w.Context.Logger.Errorf("Operation %s failed %d times. Giving up.", opID, task.Result.Attempt)
			task.Result.Finish()
			w.FinishItem(task)
			ManifestsTotal.WithLabelValues(outcomeFailed).Inc()
			continue
		}
		w.SaveOperationResult(task.Result)
		task.NSQRequeue(w.Settings.RequeueTimeout)
		w.RemoveFromInProcessList(opID)
		TasksInFlight.Dec()
		w.Context.Logger.Infof("Requeued operation %s for %s", opID, w.Settings.RequeueTimeout)
		ManifestsTotal.WithLabelValues(outcomeRequeued).Inc()
	}
}

// ProcessFatalErrorChannel finishes operations whose manifests were
// rejected.
func (w *ManifestWorker) ProcessFatalErrorChannel() {
	for task := range w.FatalErrorChannel {
		for _, err := range task.Result.FatalErrors() {
			w.Context.Logger.Errorf("Operation %s rejected: %s", task.Request.OperationID, err.Detail())
		}
		task.Result.Finish()
		w.FinishItem(task)
		ManifestsTotal.WithLabelValues(outcomeRejected).Inc()
	}
}

// GetOperationResult returns the OperationResult for operationID. If
// one already exists in Redis, it returns that. If not, it creates a
// new one.
func (w *ManifestWorker) GetOperationResult(operationID string) *service.OperationResult {
	result, err := w.Context.RedisClient.OperationResultGet(operationID)
	if err != nil {
		w.Context.Logger.Infof("No result in Redis for operation %s. Creating a new one.", operationID)
		result = service.NewOperationResult(operationID)
	}
	return result
}

// SaveOperationResult saves result to Redis. Will try three times,
// in case Redis is busy.
func (w *ManifestWorker) SaveOperationResult(result *service.OperationResult) error {
	var err error
	for i := 0; i < 3; i++ {
		if err = w.Context.RedisClient.OperationResultSave(result); err == nil {
			return nil
		}
		time.Sleep(time.Duration(250) * time.Millisecond)
	}
	w.Context.Logger.Errorf("Error saving result for operation %s: %v", result.OperationID, err)
	return err
}

// ImAlreadyProcessingThis returns true and logs a message if this
// operation is already being processed by this worker. NSQ redelivers
// messages it believes have timed out.
func (w *ManifestWorker) ImAlreadyProcessingThis(operationID string) bool {
	if w.ItemsInProcess.Contains(operationID) {
		hostname, _ := os.Hostname()
		w.Context.Logger.Infof("Skipping operation %s because this worker is already working on it (host %s, pid %d)",
			operationID, hostname, os.Getpid())
		return true
	}
	return false
}

func (w *ManifestWorker) AddToInProcessList(operationID string) {
	w.ItemsInProcess.Add(operationID)
}

func (w *ManifestWorker) RemoveFromInProcessList(operationID string) {
	w.ItemsInProcess.Del(operationID)
}

// MarkAsStarted tells Redis and NSQ that work on this item has
// started.
func (w *ManifestWorker) MarkAsStarted(task *Task) {
	w.Context.Logger.Infof("Starting operation %s", task.Request.OperationID)
	task.Result.Start()
	w.SaveOperationResult(task.Result)

	// This disables NSQ autoresponse, and pings NSQ every few
	// minutes to say we're still working on the item.
	task.NSQStart()
}

// FinishItem saves the final result, finishes the NSQ message and
// forgets the operation.
func (w *ManifestWorker) FinishItem(task *Task) {
	w.SaveOperationResult(task.Result)
	task.NSQFinish()
	w.RemoveFromInProcessList(task.Request.OperationID)
	TasksInFlight.Dec()
}

// PushToQueue pushes the task's operation id to its next topic.
func (w *ManifestWorker) PushToQueue(task *Task) error {
	if task.NextQueueTopic == "" {
		return nil
	}
	opID := task.Request.OperationID
	if err := w.Context.NSQClient.Enqueue(task.NextQueueTopic, opID); err != nil {
		w.Context.Logger.Errorf("Error adding operation %s to NSQ topic %s: %v", opID, task.NextQueueTopic, err)
		return err
	}
	w.Context.Logger.Infof("Pushed operation %s to NSQ topic %s", opID, task.NextQueueTopic)
	return nil
}

// doSigTermCleanup handles SIGTERM and SIGINT. Stopping the consumer
// makes nsqd requeue our in-flight messages for other workers. The
// results of the operations we were working on are marked as
// interrupted, so the next attempt shows why the last one stopped.
func (w *ManifestWorker) doSigTermCleanup(signal os.Signal) {
	if signal != syscall.SIGINT && signal != syscall.SIGTERM {
		return
	}
	w.sigTermMutex.Lock()
	defer w.sigTermMutex.Unlock()
	w.sigTermState.Received = true
	w.Context.Logger.Warning("Worker received SIGTERM. Starting graceful shutdown.")

	if w.NSQConsumer != nil {
		w.Context.Logger.Warning("SIGTERM step 1: Disconnect from NSQ")
		w.NSQConsumer.ChangeMaxInFlight(0)
		w.NSQConsumer.Stop()
	} else {
		w.Context.Logger.Warning("SIGTERM step 1: No need to stop NSQ consumer because there isn't one.")
	}

	w.Context.Logger.Warning("SIGTERM step 2: Mark operations as interrupted")
	hostname, _ := os.Hostname()
	itemsInProcess := w.ItemsInProcess.Items()
	w.sigTermState.ItemsInProcess = len(itemsInProcess)
	for _, operationID := range itemsInProcess {
		result := w.GetOperationResult(operationID)
		result.AddError("shutdown", fmt.Errorf("worker on %s stopped during attempt %d", hostname, result.Attempt))
		if err := w.Context.RedisClient.OperationResultSave(result); err != nil {
			w.sigTermState.FailedReleases += 1
			w.Context.Logger.Errorf("Could not update operation %s after SIGTERM: %v", operationID, err)
		} else {
			w.sigTermState.ItemsReleased += 1
			w.Context.Logger.Warningf("Released operation %s due to SIGTERM", operationID)
		}
	}
	w.sigTermState.Completed = true
	w.Context.Logger.Warning("SIGTERM: Graceful shutdown steps complete. Waiting for SIGKILL.")
}

// GetSigTermState returns this worker's SigTermState object, which
// contains info about whether this worker received SIGTERM or SIGINT
// and what action it took.
func (w *ManifestWorker) GetSigTermState() SigTermState {
	w.sigTermMutex.Lock()
	defer w.sigTermMutex.Unlock()
	return w.sigTermState
}
