package ingest_test

import (
	"testing"

	"github.com/APTrust/transfer-services/constants"
	"github.com/APTrust/transfer-services/ingest"
	"github.com/APTrust/transfer-services/models/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateQualifiers(t *testing.T) {
	group := service.NewDataObjectGroup(1, "G1", testOperationID)
	group.BinaryObjects = []*service.BinaryObject{
		{ID: 2, XMLID: "BDO1", Version: "BinaryMaster_1", Digest: "aaa", Size: 10},
		{ID: 3, XMLID: "BDO2", Version: "Dissemination_1", FormatID: "fmt/43"},
	}
	group.PhysicalObjects = []*service.PhysicalObject{
		{ID: 4, XMLID: "PDO1", Version: "PhysicalMaster_1"},
	}
	unit := service.NewArchiveUnit(5, "U1", constants.UnitTypeIngest, testOperationID)

	ingest.AggregateQualifiers(group, unit)

	require.Len(t, unit.Qualifiers, 3)
	assert.Equal(t, constants.QualifierBinaryMaster, unit.Qualifiers[0].Name)
	assert.Equal(t, constants.QualifierDissemination, unit.Qualifiers[1].Name)
	assert.Equal(t, constants.QualifierPhysical, unit.Qualifiers[2].Name)
	for _, qualifier := range unit.Qualifiers {
		assert.Equal(t, 1, qualifier.Count, qualifier.Name)
		assert.Len(t, qualifier.Versions, 1, qualifier.Name)
	}
	master := unit.Qualifiers[0].Versions[0]
	assert.Equal(t, "BDO1", master.XMLID)
	assert.Equal(t, int64(2), master.ID)
	assert.Equal(t, "aaa", master.Digest)
	assert.EqualValues(t, 10, master.Size)
	assert.Equal(t, "fmt/43", unit.Qualifiers[1].Versions[0].FormatID)
	assert.Equal(t, "PDO1", unit.Qualifiers[2].Versions[0].XMLID)
}

func TestAggregateQualifiersCountsVersions(t *testing.T) {
	group := service.NewDataObjectGroup(1, "G1", testOperationID)
	group.BinaryObjects = []*service.BinaryObject{
		{XMLID: "BDO1", Version: "BinaryMaster_1"},
		{XMLID: "BDO2", Version: "Thumbnail_1"},
		{XMLID: "BDO3", Version: "BinaryMaster_2"},
	}
	unit := service.NewArchiveUnit(5, "U1", constants.UnitTypeIngest, testOperationID)

	ingest.AggregateQualifiers(group, unit)

	require.Len(t, unit.Qualifiers, 2)
	master := unit.Qualifiers[0]
	assert.Equal(t, 2, master.Count)
	assert.Equal(t, "BinaryMaster_1", master.Versions[0].Version)
	assert.Equal(t, "BinaryMaster_2", master.Versions[1].Version)
	assert.Equal(t, constants.QualifierThumbnail, unit.Qualifiers[1].Name)
}

func TestQualifiersFromManifest(t *testing.T) {
	b := newBuilder()
	group := b.AddGroup("G1")
	b.AddBinary(group, "BDO1", "BinaryMaster_1")
	b.AddBinary(group, "BDO2", "TextContent_1")
	b.AddPhysical(group, "PDO1", "")
	unit := b.AddUnit(nil, "U1", "Root")
	b.RefGroup(unit, "G1")

	result, err := parseArchive(t, b, nil)
	require.Nil(t, err)
	qualifiers := result.Units[0].Qualifiers
	require.Len(t, qualifiers, 3)
	assert.Equal(t, constants.QualifierBinaryMaster, qualifiers[0].Name)
	assert.Equal(t, constants.QualifierTextContent, qualifiers[1].Name)
	assert.Equal(t, constants.QualifierPhysical, qualifiers[2].Name)
	assert.Equal(t, "PhysicalMaster_1", qualifiers[2].Versions[0].Version)
}
