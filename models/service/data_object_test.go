package service_test

import (
	"testing"

	"github.com/APTrust/transfer-services/models/service"
	"github.com/stretchr/testify/assert"
)

func TestQualifierOf(t *testing.T) {
	assert.Equal(t, "BinaryMaster", service.QualifierOf("BinaryMaster_2"))
	assert.Equal(t, "BinaryMaster", service.QualifierOf("BinaryMaster"))
	assert.Equal(t, "Dissemination_v", service.QualifierOf("Dissemination_v"))
	assert.Equal(t, "Text_Content", service.QualifierOf("Text_Content_12"))
	assert.Equal(t, "_1", service.QualifierOf("_1"))
}

func TestDefaultVersion(t *testing.T) {
	assert.Equal(t, "BinaryMaster_1", service.DefaultVersion("BinaryMaster"))
	assert.Equal(t, "PhysicalMaster", service.QualifierOf(service.DefaultVersion("PhysicalMaster")))
}

func TestObjectProjection(t *testing.T) {
	binary := &service.BinaryObject{
		ID:              5,
		XMLID:           "BDO1",
		Version:         "BinaryMaster_1",
		DigestAlgorithm: "SHA-512",
		Digest:          "abc",
		Size:            12,
		FormatID:        "fmt/18",
		Filename:        "report.pdf",
		OperationID:     "op-1",
	}
	projection := binary.Project()
	assert.Equal(t, "BDO1", projection.XMLID)
	assert.EqualValues(t, 5, projection.ID)
	assert.EqualValues(t, 12, projection.Size)
	assert.Equal(t, "fmt/18", projection.FormatID)
	assert.Equal(t, "abc", projection.Digest)

	physical := &service.PhysicalObject{ID: 6, XMLID: "PDO1", Version: "PhysicalMaster_1", PhysicalID: "box-3"}
	projection = physical.Project()
	assert.Equal(t, "PDO1", projection.XMLID)
	assert.Equal(t, "PhysicalMaster_1", projection.Version)
	assert.Empty(t, projection.Digest)
}

func TestGroupObjectCount(t *testing.T) {
	group := service.NewDataObjectGroup(1, "G1", "op-1")
	assert.Equal(t, 0, group.ObjectCount())
	group.BinaryObjects = append(group.BinaryObjects, &service.BinaryObject{XMLID: "BDO1"})
	group.PhysicalObjects = append(group.PhysicalObjects, &service.PhysicalObject{XMLID: "PDO1"})
	assert.Equal(t, 2, group.ObjectCount())
}
