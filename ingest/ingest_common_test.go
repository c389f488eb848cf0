package ingest_test

import (
	"errors"
	"testing"

	"github.com/APTrust/transfer-services/constants"
	"github.com/APTrust/transfer-services/ingest"
	"github.com/APTrust/transfer-services/models/service"
	"github.com/APTrust/transfer-services/util/testutil"
	"github.com/op/go-logging"
	"github.com/stretchr/testify/require"
)

const testOperationID = "00000000-0000-0000-0000-000000000001"

var testLogger = logging.MustGetLogger("ingest_test")

func newParser(collab *ingest.Collaborators, operationKind string) *ingest.ManifestParser {
	return ingest.NewManifestParser(collab, testLogger, testOperationID, operationKind, "")
}

func newBuilder() *testutil.ManifestBuilder {
	return testutil.NewManifestBuilder(testutil.NamespaceSeda21)
}

func parseArchive(t *testing.T, b *testutil.ManifestBuilder, collab *ingest.Collaborators) (*service.ParseResult, error) {
	t.Helper()
	return newParser(collab, constants.OperationArchive).Parse(b.Reader())
}

// requireManifestError asserts that err is a ManifestError of the
// given kind whose message contains fragment, and that there is no
// partial result.
func requireManifestError(t *testing.T, result *service.ParseResult, err error, kind, fragment string) *service.ManifestError {
	t.Helper()
	require.Nil(t, result)
	require.Error(t, err)
	var manifestErr *service.ManifestError
	require.True(t, errors.As(err, &manifestErr), "expected ManifestError, got %T", err)
	require.Equal(t, kind, manifestErr.Kind)
	require.Contains(t, err.Error(), fragment)
	return manifestErr
}

// fakeUnits is a UnitLookup over fixed maps.
type fakeUnits struct {
	byID    map[string]*service.ExistingUnit
	byField map[string]*service.ExistingUnit
}

func (f *fakeUnits) ByID(systemID string) (*service.ExistingUnit, error) {
	return f.byID[systemID], nil
}

func (f *fakeUnits) ByField(name, value string) (*service.ExistingUnit, error) {
	return f.byField[name+"="+value], nil
}

// fakeReferential accepts everything and links new roots to link.
type fakeReferential struct {
	link           string
	unknownAgency  string
	agreementError error
}

func (f *fakeReferential) CheckArchivalAgreement(identifier string) error {
	return f.agreementError
}

func (f *fakeReferential) CheckAgency(identifier string) error {
	if identifier == f.unknownAgency {
		return errors.New("agency " + identifier + " does not exist")
	}
	return nil
}

func (f *fakeReferential) LinkParent(string) (string, error) {
	return f.link, nil
}

// fakeOntology returns the same fields for every document type.
type fakeOntology map[string]*service.OntologyField

func (f fakeOntology) Fields(string) (map[string]*service.OntologyField, error) {
	return f, nil
}

// fixedDurations ends every rule on the same date.
type fixedDurations string

func (d fixedDurations) EndDate(ruleID, startDate string) (string, error) {
	return string(d), nil
}
