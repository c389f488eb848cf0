package cli

import (
	"flag"
	"fmt"
	"io"
	"time"
)

// Options are the command line settings shared by queue workers. The
// config file, chosen through the environment, holds everything else.
type Options struct {
	BufferSize     int
	MaxAttempts    int
	MetricsAddr    string
	Name           string
	PrintHelp      bool
	RequeueTimeout time.Duration
	Workers        int
}

// EnvVars explains how a worker finds its config file.
const EnvVars = `Environment:

  APT_CONFIG_DIR       Directory holding the .env settings files.
  APT_SERVICES_CONFIG  Name of the settings to load, e.g. "test" loads
                       .env.test from APT_CONFIG_DIR.
`

// NewFlagSet binds opts to a flag set for the named worker. Name
// defaults to workerName; running two copies on one host needs a
// different -name for each, since the pid file is named after it.
func NewFlagSet(workerName string, opts *Options) *flag.FlagSet {
	flags := flag.NewFlagSet(workerName, flag.ContinueOnError)
	flags.IntVar(&opts.BufferSize, "bufsize", 20, "Capacity of the channels between worker stages")
	flags.IntVar(&opts.MaxAttempts, "max-attempts", 3, "Attempts allowed per manifest before its operation fails")
	flags.StringVar(&opts.MetricsAddr, "metrics-addr", ":9102", "Address for the Prometheus /metrics endpoint. Empty disables it.")
	flags.StringVar(&opts.Name, "name", workerName, "Worker name, used for the pid file")
	flags.BoolVar(&opts.PrintHelp, "help", false, "Print help and exit")
	flags.DurationVar(&opts.RequeueTimeout, "requeue-timeout", time.Minute, "Delay before a manifest that hit a transient error is retried, e.g. 500ms, 3m30s")
	flags.IntVar(&opts.Workers, "workers", 3, "Manifests parsed at the same time")
	return flags
}

// Parse reads args, without the program name, for the named worker.
func Parse(workerName string, args []string) (*Options, error) {
	opts := &Options{}
	flags := NewFlagSet(workerName, opts)
	flags.SetOutput(io.Discard)
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if opts.PrintHelp {
		return opts, nil
	}
	return opts, opts.Validate()
}

// Validate rejects settings a worker cannot run with.
func (opts *Options) Validate() error {
	switch {
	case opts.Name == "":
		return fmt.Errorf("-name must not be empty")
	case opts.Workers < 1:
		return fmt.Errorf("-workers must be at least 1, got %d", opts.Workers)
	case opts.BufferSize < 1:
		return fmt.Errorf("-bufsize must be at least 1, got %d", opts.BufferSize)
	case opts.MaxAttempts < 1:
		return fmt.Errorf("-max-attempts must be at least 1, got %d", opts.MaxAttempts)
	case opts.RequeueTimeout <= 0:
		return fmt.Errorf("-requeue-timeout must be positive, got %s", opts.RequeueTimeout)
	}
	return nil
}

// PrintUsage writes the worker's flags and environment to w.
func PrintUsage(workerName string, w io.Writer) {
	flags := NewFlagSet(workerName, &Options{})
	flags.SetOutput(w)
	fmt.Fprintln(w, "Options:")
	flags.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprint(w, EnvVars)
}
