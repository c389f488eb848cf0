package ingest_test

import (
	"testing"

	"github.com/APTrust/transfer-services/constants"
	"github.com/APTrust/transfer-services/ingest"
	"github.com/APTrust/transfer-services/models/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parentRules() *service.InheritedRules {
	rules := service.NewInheritedRules()
	rules.Categories[constants.RuleAppraisal] = &service.InheritedCategory{
		Rules: []*service.ComputedRule{
			{Name: "APP-1", EndDate: "2040-01-01", OriginID: 1},
			{Name: "APP-2", EndDate: "2050-01-01", OriginID: 1},
			{Name: "APP-3", EndDate: "2045-01-01", OriginID: 1},
		},
		MaxEndDate:  "2050-01-01",
		FinalAction: "Keep",
	}
	return rules
}

func TestRuleInheritanceWithoutParent(t *testing.T) {
	unit := service.NewArchiveUnit(2, "U1", constants.UnitTypeIngest, testOperationID)
	computer := &ingest.RuleInheritance{}
	rules, err := computer.Compute(unit, nil)
	require.Nil(t, err)
	assert.True(t, rules.Computed)
	for _, name := range constants.RuleCategories {
		require.NotNil(t, rules.Categories[name], name)
		assert.Empty(t, rules.Categories[name].Rules, name)
	}
}

func TestRuleInheritanceOverridesAndExclusions(t *testing.T) {
	unit := service.NewArchiveUnit(2, "U1", constants.UnitTypeIngest, testOperationID)
	unit.Management = service.NewManagement()
	appraisal := unit.Management.Category(constants.RuleAppraisal)
	rule := appraisal.AddRule("APP-1")
	rule.StartDate = "2000-01-01"
	appraisal.RefNonRuleIDs = []string{"APP-2"}
	appraisal.FinalAction = "Destroy"

	computer := &ingest.RuleInheritance{Durations: fixedDurations("2010-01-01")}
	rules, err := computer.Compute(unit, parentRules())
	require.Nil(t, err)

	category := rules.Categories[constants.RuleAppraisal]
	require.Len(t, category.Rules, 2)
	own := category.Rules[0]
	assert.Equal(t, "APP-1", own.Name)
	assert.False(t, own.Inherited)
	assert.Equal(t, int64(2), own.OriginID)
	assert.Equal(t, "2010-01-01", own.EndDate)

	inherited := category.Rules[1]
	assert.Equal(t, "APP-3", inherited.Name)
	assert.True(t, inherited.Inherited)
	assert.Equal(t, int64(1), inherited.OriginID)

	assert.Equal(t, "2045-01-01", category.MaxEndDate)
	assert.Equal(t, "Destroy", category.FinalAction)
}

func TestRuleInheritancePreventInheritance(t *testing.T) {
	unit := service.NewArchiveUnit(2, "U1", constants.UnitTypeIngest, testOperationID)
	unit.Management = service.NewManagement()
	unit.Management.Category(constants.RuleAppraisal).PreventInheritance = true

	rules, err := (&ingest.RuleInheritance{}).Compute(unit, parentRules())
	require.Nil(t, err)
	category := rules.Categories[constants.RuleAppraisal]
	assert.Empty(t, category.Rules)
	assert.Empty(t, category.FinalAction)
	assert.Empty(t, category.MaxEndDate)
}

func TestRuleInheritanceKeepsParentUntouched(t *testing.T) {
	parent := parentRules()
	unit := service.NewArchiveUnit(2, "U1", constants.UnitTypeIngest, testOperationID)
	rules, err := (&ingest.RuleInheritance{}).Compute(unit, parent)
	require.Nil(t, err)
	rules.Categories[constants.RuleAppraisal].Rules[0].EndDate = "changed"
	assert.Equal(t, "2040-01-01", parent.Categories[constants.RuleAppraisal].Rules[0].EndDate)
	assert.False(t, parent.Categories[constants.RuleAppraisal].Rules[0].Inherited)
}
