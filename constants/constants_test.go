package constants_test

import (
	"testing"

	"github.com/APTrust/transfer-services/constants"
	"github.com/stretchr/testify/assert"
)

func TestUnitTypeFor(t *testing.T) {
	assert.Equal(t, constants.UnitTypeIngest, constants.UnitTypeFor(constants.OperationArchive))
	assert.Equal(t, constants.UnitTypeHolding, constants.UnitTypeFor(constants.OperationHolding))
	assert.Equal(t, constants.UnitTypeFiling, constants.UnitTypeFor(constants.OperationFiling))
	assert.Equal(t, constants.UnitTypeIngest, constants.UnitTypeFor("anything else"))
}

func TestNamespaces(t *testing.T) {
	versions := map[string]int{}
	for _, version := range constants.Namespaces {
		versions[version]++
	}
	assert.Equal(t, 2, versions[constants.SedaVersion21])
	assert.Equal(t, 2, versions[constants.SedaVersion22])
}

func TestRuleCategories(t *testing.T) {
	assert.Equal(t, 7, len(constants.RuleCategories))
	assert.Equal(t, constants.RuleAppraisal, constants.RuleCategories[0])
	assert.Equal(t, constants.RuleHold, constants.RuleCategories[6])
}
