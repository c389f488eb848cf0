package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/APTrust/transfer-services/constants"
	"github.com/APTrust/transfer-services/ingest"
	"github.com/APTrust/transfer-services/models/service"
	"github.com/APTrust/transfer-services/referential"
	"github.com/APTrust/transfer-services/util/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type checkOptions struct {
	contentRoot   string
	logLevel      string
	maxUnits      int
	operationID   string
	operationKind string
	referential   string
	signatures    string
	summary       bool
}

func newCheckCommand() *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "manifest_check <manifest.xml>",
		Short: "Parse a transfer manifest and print the result",
		Long: `Parses a local archive transfer manifest the same way the
ingest_manifest_parser worker does, without Redis, NSQ or the registry.

On success the parse result is printed as JSON. On failure the first
manifest error is printed and the command exits with status 1.

When --content-root is set, every binary data object Uri is resolved
against it and the declared sizes and digests are verified.

Examples:
  manifest_check manifest.xml
  manifest_check --referential referential.yml --content-root ./sip manifest.xml
  manifest_check --kind holding --summary holding.xml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.contentRoot, "content-root", "c", "", "Directory the data object Uris are relative to")
	flags.StringVar(&opts.logLevel, "log-level", "WARNING", "Log level: DEBUG, INFO, WARNING or ERROR")
	flags.IntVar(&opts.maxUnits, "max-units", constants.DefaultUnitMaximum, "Maximum number of archive units")
	flags.StringVar(&opts.operationID, "operation-id", "", "Operation id to report (default: a new UUID)")
	flags.StringVarP(&opts.operationKind, "kind", "k", constants.OperationArchive, "Operation kind: archive, filing or holding")
	flags.StringVarP(&opts.referential, "referential", "r", "", "YAML referential with agreements, agencies, rules and ontology")
	flags.StringVar(&opts.signatures, "signatures", "", "Siegfried signature file for format identification")
	flags.BoolVar(&opts.summary, "summary", false, "Print unit and group counts instead of the full result")
	return cmd
}

func runCheck(cmd *cobra.Command, opts *checkOptions, manifestPath string) error {
	switch opts.operationKind {
	case constants.OperationArchive, constants.OperationFiling, constants.OperationHolding:
	default:
		return fmt.Errorf("unknown operation kind '%s'", opts.operationKind)
	}
	if opts.operationID == "" {
		opts.operationID = uuid.NewString()
	}
	log := logger.InitStderrLogger(logger.ParseLevel(strings.ToUpper(opts.logLevel)))

	collab := &ingest.Collaborators{
		UnitCount: ingest.MaxUnitGuard{Max: opts.maxUnits},
	}
	if opts.referential != "" {
		ref, err := referential.Load(opts.referential)
		if err != nil {
			return err
		}
		ref.Wire(collab)
	}
	contentRoot := opts.contentRoot
	if contentRoot != "" {
		checker, err := ingest.NewFileObjectChecker(opts.signatures)
		if err != nil {
			return err
		}
		collab.Objects = checker
	} else {
		contentRoot = filepath.Dir(manifestPath)
	}

	file, err := os.Open(manifestPath)
	if err != nil {
		return err
	}
	defer file.Close()

	parser := ingest.NewManifestParser(collab, log, opts.operationID, opts.operationKind, contentRoot)
	result, err := parser.Parse(file)
	if err != nil {
		var manifestErr *service.ManifestError
		if errors.As(err, &manifestErr) && manifestErr.Identifier != "" {
			return fmt.Errorf("%s (at %s)", manifestErr.Error(), manifestErr.Identifier)
		}
		return err
	}
	return printResult(cmd, result, opts.summary)
}

func printResult(cmd *cobra.Command, result *service.ParseResult, summary bool) error {
	out := cmd.OutOrStdout()
	if summary {
		fmt.Fprintf(out, "operation: %s\n", result.Header.OperationID)
		fmt.Fprintf(out, "units:     %d\n", len(result.Units))
		fmt.Fprintf(out, "groups:    %d\n", len(result.Groups))
		return nil
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func main() {
	if err := newCheckCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
