package ingest_test

import (
	"testing"

	"github.com/APTrust/transfer-services/constants"
	"github.com/APTrust/transfer-services/ingest"
	"github.com/APTrust/transfer-services/models/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linkedCollaborators(unitType string) *ingest.Collaborators {
	link := &service.ExistingUnit{
		ID:               100,
		UnitType:         unitType,
		AncestorIDs:      []int64{1},
		ParentIDs:        []int64{1},
		ServiceProducer:  "HOLDER",
		ServiceProducers: []string{"HOLDER"},
		InheritedRules:   service.NewInheritedRules(),
	}
	link.InheritedRules.Categories[constants.RuleAccess].Rules = []*service.ComputedRule{
		{Name: "ACC-LINK", OriginID: 100},
	}
	return &ingest.Collaborators{
		Referential: &fakeReferential{link: "100"},
		Units:       &fakeUnits{byID: map[string]*service.ExistingUnit{"100": link}},
	}
}

func TestOrphansAttachToLinkParent(t *testing.T) {
	b := newBuilder()
	u1 := b.AddUnit(nil, "U1", "Root")
	b.AddUnit(u1, "U2", "Child")
	b.AddUnit(nil, "U3", "Other root")

	result, err := parseArchive(t, b, linkedCollaborators(constants.UnitTypeHolding))
	require.Nil(t, err)
	require.Len(t, result.Units, 3)

	root := result.UnitByXMLID("U1")
	assert.Equal(t, int64(100), root.ParentID)
	assert.Equal(t, []int64{100}, root.ParentIDs)
	assert.Equal(t, []int64{1, 100}, root.AncestorIDs)
	assert.Equal(t, "HOLDER", root.ServiceProducer)

	child := result.UnitByXMLID("U2")
	assert.Equal(t, []int64{1, 100, root.ID}, child.AncestorIDs)
	assert.Equal(t, []string{"HOLDER"}, child.ServiceProducers)

	inherited := child.InheritedRules.Categories[constants.RuleAccess].Rules
	require.Len(t, inherited, 1)
	assert.Equal(t, "ACC-LINK", inherited[0].Name)
	assert.True(t, inherited[0].Inherited)
	assert.Equal(t, int64(100), inherited[0].OriginID)

	assert.Equal(t, int64(100), result.UnitByXMLID("U3").ParentID)
}

func TestOrphanTypeMismatch(t *testing.T) {
	b := newBuilder()
	b.AddUnit(nil, "U1", "Root")
	result, err := newParser(linkedCollaborators(constants.UnitTypeIngest), constants.OperationFiling).Parse(b.Reader())
	requireManifestError(t, result, err, service.ErrKindValidation,
		"ArchiveUnit 'U1' of type FILING_UNIT cannot be attached to unit 100 of type INGEST")
}

func TestLinkParentMissing(t *testing.T) {
	b := newBuilder()
	b.AddUnit(nil, "U1", "Root")
	collab := &ingest.Collaborators{
		Referential: &fakeReferential{link: "100"},
		Units:       &fakeUnits{},
	}
	result, err := parseArchive(t, b, collab)
	requireManifestError(t, result, err, service.ErrKindValidation, "Link parent 100 of agreement '' does not exist")
}

func TestRulesPropagateTopDown(t *testing.T) {
	b := newBuilder()
	u1 := b.AddUnit(nil, "U1", "Root")
	access := b.Management(u1).CreateElement(constants.RuleAccess)
	b.Text(access, "Rule", "ACC-00001")
	b.Text(access, "StartDate", "2020-01-01")
	u2 := b.AddUnit(u1, "U2", "Child")
	storage := b.Management(u2).CreateElement(constants.RuleStorage)
	b.Text(storage, "Rule", "STO-00001")
	b.Text(storage, "FinalAction", "Copy")
	u3 := b.AddUnit(u2, "U3", "Grandchild")
	blocked := b.Management(u3).CreateElement(constants.RuleAccess)
	b.Text(blocked, "PreventInheritance", "true")

	collab := &ingest.Collaborators{Rules: &ingest.RuleInheritance{Durations: fixedDurations("2030-01-01")}}
	result, err := parseArchive(t, b, collab)
	require.Nil(t, err)

	root := result.UnitByXMLID("U1")
	rootAccess := root.InheritedRules.Categories[constants.RuleAccess]
	require.Len(t, rootAccess.Rules, 1)
	assert.False(t, rootAccess.Rules[0].Inherited)
	assert.Equal(t, "2030-01-01", rootAccess.Rules[0].EndDate)
	assert.Equal(t, "2030-01-01", rootAccess.MaxEndDate)
	assert.True(t, root.InheritedRules.Computed)

	child := result.UnitByXMLID("U2")
	childAccess := child.InheritedRules.Categories[constants.RuleAccess]
	require.Len(t, childAccess.Rules, 1)
	assert.True(t, childAccess.Rules[0].Inherited)
	assert.Equal(t, root.ID, childAccess.Rules[0].OriginID)
	assert.Equal(t, "Copy", child.InheritedRules.Categories[constants.RuleStorage].FinalAction)

	grandchild := result.UnitByXMLID("U3")
	assert.Empty(t, grandchild.InheritedRules.Categories[constants.RuleAccess].Rules)
	assert.Equal(t, "Copy", grandchild.InheritedRules.Categories[constants.RuleStorage].FinalAction)
	assert.Len(t, grandchild.InheritedRules.Categories[constants.RuleStorage].Rules, 1)
}

func TestHoldingPlanSkipsProducersAndRules(t *testing.T) {
	b := newBuilder()
	u1 := b.AddUnit(nil, "U1", "Plan")
	b.Text(b.Content(u1).CreateElement("OriginatingAgency"), "Identifier", "PRODUCER")
	b.AddUnit(u1, "U2", "Plan item")

	result, err := newParser(nil, constants.OperationHolding).Parse(b.Reader())
	require.Nil(t, err)
	child := result.UnitByXMLID("U2")
	assert.Equal(t, []int64{result.Units[0].ID}, child.AncestorIDs)
	assert.Empty(t, child.ServiceProducer)
	assert.Empty(t, child.ServiceProducers)
	assert.Nil(t, child.InheritedRules)
}

func TestProducersUnionDownTheTree(t *testing.T) {
	b := newBuilder()
	u1 := b.AddUnit(nil, "U1", "Root")
	b.Text(b.Content(u1).CreateElement("OriginatingAgency"), "Identifier", "FIRST")
	u2 := b.AddUnit(u1, "U2", "Child")
	b.Text(b.Content(u2).CreateElement("OriginatingAgency"), "Identifier", "SECOND")
	b.AddUnit(u2, "U3", "Grandchild")

	result, err := parseArchive(t, b, nil)
	require.Nil(t, err)
	grandchild := result.UnitByXMLID("U3")
	assert.Equal(t, "SECOND", grandchild.ServiceProducer)
	assert.Equal(t, []string{"FIRST", "SECOND"}, grandchild.ServiceProducers)
}

func TestLinkParentIDMatchesNewUnit(t *testing.T) {
	// U1 takes generated id 1, the same id as the link parent.
	link := &service.ExistingUnit{
		ID:          1,
		UnitType:    constants.UnitTypeHolding,
		ParentIDs:   []int64{},
		AncestorIDs: []int64{},
	}
	collab := &ingest.Collaborators{
		Referential: &fakeReferential{link: "1"},
		Units:       &fakeUnits{byID: map[string]*service.ExistingUnit{"1": link}},
	}
	b := newBuilder()
	u1 := b.AddUnit(nil, "U1", "Root")
	b.AddUnit(u1, "U2", "Child")

	result, err := parseArchive(t, b, collab)
	require.Nil(t, err)
	require.Len(t, result.Units, 2)
	root := result.Units[0]
	assert.Equal(t, "U1", root.XMLID)
	assert.Equal(t, []int64{1}, root.ParentIDs)
	child := result.Units[1]
	assert.Equal(t, "U2", child.XMLID)
	assert.Equal(t, root.ID, child.ParentID)
}

func TestSplicedTargetIsEmittedOnce(t *testing.T) {
	b := newBuilder()
	r := b.AddUnit(nil, "R", "Root")
	b.AddAlias(r, "B", "A")
	a := b.AddUnit(nil, "A", "Aliased")
	b.AddUnit(a, "A1", "Below aliased")

	result, err := parseArchive(t, b, linkedCollaborators(constants.UnitTypeHolding))
	require.Nil(t, err)
	xmlIDs := make([]string, len(result.Units))
	for i, unit := range result.Units {
		xmlIDs[i] = unit.XMLID
	}
	assert.Equal(t, []string{"R", "A", "A1"}, xmlIDs)
	root := result.UnitByXMLID("R")
	assert.Equal(t, int64(100), root.ParentID)
	assert.Equal(t, root.ID, result.UnitByXMLID("A").ParentID)
}

func TestProvidersUnionDownTheTree(t *testing.T) {
	b := newBuilder()
	u1 := b.AddUnit(nil, "U1", "Root")
	u2 := b.AddUnit(u1, "U2", "Child")
	b.Text(b.Content(u2).CreateElement("SubmissionAgency"), "Identifier", "SECOND")
	b.AddUnit(u2, "U3", "Grandchild")
	metadata := b.Package.CreateElement("ManagementMetadata")
	b.Text(metadata, "SubmissionAgencyIdentifier", "FIRST")

	result, err := parseArchive(t, b, nil)
	require.Nil(t, err)
	root := result.UnitByXMLID("U1")
	assert.Equal(t, "FIRST", root.ServiceProvider)
	assert.Equal(t, []string{"FIRST"}, root.ServiceProviders)
	grandchild := result.UnitByXMLID("U3")
	assert.Equal(t, "SECOND", grandchild.ServiceProvider)
	assert.Equal(t, []string{"FIRST", "SECOND"}, grandchild.ServiceProviders)
	assert.Empty(t, grandchild.ServiceProducers)
}
