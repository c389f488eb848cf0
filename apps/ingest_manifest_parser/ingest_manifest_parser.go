package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/APTrust/transfer-services/models/common"
	"github.com/APTrust/transfer-services/util"
	"github.com/APTrust/transfer-services/util/cli"
	"github.com/APTrust/transfer-services/workers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const workerName = "ingest_manifest_parser"

func main() {
	opts, err := cli.Parse(workerName, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		printHelp()
		os.Exit(2)
	}
	if opts.PrintHelp {
		printHelp()
		os.Exit(0)
	}

	// If anything goes wrong, this panics.
	context := common.NewContext()

	pidFile := util.NewPidFile(context.Config.WorkingDir, opts.Name)
	stalePid, staleAge, err := pidFile.Claim()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if stalePid != 0 {
		context.Logger.Warningf("Replaced stale pid file %s (pid %d, %s old)", pidFile.Path, stalePid, staleAge)
	}
	defer pidFile.Release()

	if opts.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			context.Logger.Error(http.ListenAndServe(opts.MetricsAddr, mux))
		}()
	}

	settings := workers.NewSettings(
		opts.BufferSize,
		opts.Workers,
		opts.MaxAttempts,
		opts.RequeueTimeout,
	)
	worker := workers.NewManifestWorker(context, settings)
	worker.Start()

	// Messages start arriving as soon as the consumer registers.
	if err := worker.RegisterAsNsqConsumer(); err != nil {
		context.Logger.Fatalf("Cannot register NSQ consumer: %v", err)
	}
	<-worker.NSQConsumer.StopChan
}

func printHelp() {
	message := `
ingest_manifest_parser reads archive transfer manifests named on the
manifest_parse_topic, parses them into archive units and data object
groups, and saves the result to Redis for the storage stage. Parsed
operations are queued on manifest_store_topic.

Usage: ingest_manifest_parser [options]
`
	fmt.Println(message)
	cli.PrintUsage(workerName, os.Stdout)
}
