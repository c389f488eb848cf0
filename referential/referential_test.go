package referential_test

import (
	"path/filepath"
	"testing"

	"github.com/APTrust/transfer-services/constants"
	"github.com/APTrust/transfer-services/ingest"
	"github.com/APTrust/transfer-services/models/service"
	"github.com/APTrust/transfer-services/referential"
	"github.com/APTrust/transfer-services/util/testutil"
	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) *referential.Referential {
	ref, err := referential.Load(filepath.Join("testdata", "referential.yml"))
	require.Nil(t, err)
	require.NotNil(t, ref)
	return ref
}

func TestLoad(t *testing.T) {
	ref := loadFixture(t)
	assert.Len(t, ref.Agreements, 3)
	assert.Len(t, ref.Agencies, 2)
	assert.Len(t, ref.Rules, 5)

	_, err := referential.Load(filepath.Join("testdata", "missing.yml"))
	assert.Equal(t, referential.ErrReferentialNotFound, err)
}

func TestParseRejectsBadDefinitions(t *testing.T) {
	_, err := referential.Parse([]byte("rules:\n  - identifier: X\n    type: NoSuchRule\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Rule X has unknown type 'NoSuchRule'")

	_, err = referential.Parse([]byte("rules:\n  - identifier: X\n    type: AccessRule\n    duration: 10W\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must end in Y, M or D")

	_, err = referential.Parse([]byte("agreements: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cannot parse referential")
}

func TestAgreementsAndAgencies(t *testing.T) {
	ref := loadFixture(t)
	assert.Nil(t, ref.CheckArchivalAgreement("AG-001"))
	err := ref.CheckArchivalAgreement("AG-002")
	require.Error(t, err)
	assert.Equal(t, "Archival agreement 'AG-002' is inactive", err.Error())
	assert.Error(t, ref.CheckArchivalAgreement("AG-999"))

	assert.Nil(t, ref.CheckAgency("AGENCY-PRODUCER"))
	assert.Error(t, ref.CheckAgency("AGENCY-UNKNOWN"))

	link, err := ref.LinkParent("AG-001")
	require.Nil(t, err)
	assert.Equal(t, "100", link)
	link, err = ref.LinkParent("AG-003")
	require.Nil(t, err)
	assert.Empty(t, link)
	link, err = ref.LinkParent("")
	require.Nil(t, err)
	assert.Empty(t, link)
	_, err = ref.LinkParent("AG-999")
	assert.Error(t, err)
}

func TestEndDate(t *testing.T) {
	ref := loadFixture(t)
	testCases := []struct {
		rule     string
		start    string
		expected string
	}{
		{"APP-00001", "2020-02-29", "2030-03-01"},
		{"ACC-00001", "2020-01-31", "2020-07-31"},
		{"STO-00001", "2020-01-15T08:30:00", "2020-02-14"},
		{"ACC-00002", "2020-01-01", ""},
		{"HOL-00001", "2020-01-01", ""},
	}
	for _, tc := range testCases {
		endDate, err := ref.EndDate(tc.rule, tc.start)
		require.Nil(t, err, tc.rule)
		assert.Equal(t, tc.expected, endDate, tc.rule)
	}

	_, err := ref.EndDate("NOPE", "2020-01-01")
	assert.Error(t, err)
	_, err = ref.EndDate("APP-00001", "sometime")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a date")
}

func TestFields(t *testing.T) {
	ref := loadFixture(t)
	fields, err := ref.Fields("Person")
	require.Nil(t, err)
	require.Len(t, fields, 4)
	assert.Equal(t, service.FieldTypeDate, fields["Director.BirthDate"].Type)
	assert.Equal(t, "Director.Name", fields["Director.Name"].Identifier)
	assert.Equal(t, service.FieldTypeText, fields["Director.Name"].Type)
	assert.Equal(t, []string{"alive", "deceased"}, fields["Status"].Values)

	fields, err = ref.Fields("Unknown")
	require.Nil(t, err)
	assert.Empty(t, fields)
}

func TestValidate(t *testing.T) {
	ref := loadFixture(t)
	management := service.NewManagement()
	management.Category(constants.RuleAccess).AddRule("ACC-00001")
	management.Category(constants.RuleAppraisal).FinalAction = "Keep"
	assert.Nil(t, ref.Validate(management))

	management.Category(constants.RuleStorage).AddRule("ACC-00002")
	err := ref.Validate(management)
	require.Error(t, err)
	assert.Equal(t, "Rule 'ACC-00002' is a AccessRule and cannot be used in StorageRule", err.Error())

	management = service.NewManagement()
	management.Category(constants.RuleAccess).AddRule("ACC-99999")
	assert.Error(t, ref.Validate(management))

	management = service.NewManagement()
	management.Category(constants.RuleAccess).RefNonRuleIDs = []string{"ACC-99999"}
	assert.Error(t, ref.Validate(management))

	management = service.NewManagement()
	management.Category(constants.RuleAppraisal).FinalAction = "Copy"
	err = ref.Validate(management)
	require.Error(t, err)
	assert.Equal(t, "FinalAction 'Copy' is not allowed in AppraisalRule", err.Error())
}

func TestWiredIntoParser(t *testing.T) {
	ref := loadFixture(t)
	collab := &ingest.Collaborators{}
	ref.Wire(collab)

	b := testutil.NewManifestBuilder(testutil.NamespaceSeda21)
	b.Text(b.Root, "ArchivalAgreement", "AG-003")
	unit := b.AddUnit(nil, "U1", "Person file")
	access := b.Management(unit).CreateElement(constants.RuleAccess)
	b.Text(access, "Rule", "ACC-00001")
	b.Text(access, "StartDate", "2021-01-01")
	content := b.Content(unit)
	b.Text(content, "DocumentType", "Person")
	director := content.CreateElement("Director")
	b.Text(director, "BirthDate", "1950-06-01")
	b.Text(director, "Age", "74")

	parser := ingest.NewManifestParser(collab, logging.MustGetLogger("referential_test"), "", constants.OperationArchive, "")
	result, err := parser.Parse(b.Reader())
	require.Nil(t, err)
	parsed := result.Units[0]
	age, found := parsed.Content.Extended.Get("Director", "Age")
	require.True(t, found)
	assert.Equal(t, int64(74), age)
	rules := parsed.InheritedRules.Categories[constants.RuleAccess]
	require.Len(t, rules.Rules, 1)
	assert.Equal(t, "2021-07-01", rules.Rules[0].EndDate)

	// An unknown rule is rejected by the management check.
	b = testutil.NewManifestBuilder(testutil.NamespaceSeda21)
	unit = b.AddUnit(nil, "U1", "Person file")
	b.Text(b.Management(unit).CreateElement(constants.RuleAccess), "Rule", "ACC-12345")
	result, err = parser.Parse(b.Reader())
	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Rule 'ACC-12345' in AccessRule is unknown")
}
