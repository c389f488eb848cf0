package service

import (
	"fmt"
	"strconv"
	"strings"
)

// DataObjectGroup collects the binary and physical renditions of one
// logical content object.
type DataObjectGroup struct {
	ID              int64             `json:"id"`
	XMLID           string            `json:"xml_id"`
	BinaryObjects   []*BinaryObject   `json:"binary_objects"`
	PhysicalObjects []*PhysicalObject `json:"physical_objects"`
	UnitIDs         []int64           `json:"unit_ids"`
	OperationID     string            `json:"operation_id"`

	// Explicit is true once a DataObjectGroup element with this id
	// has been seen. Only one such element may exist per group.
	Explicit bool `json:"-"`
}

func NewDataObjectGroup(id int64, xmlID, operationID string) *DataObjectGroup {
	return &DataObjectGroup{
		ID:              id,
		XMLID:           xmlID,
		BinaryObjects:   make([]*BinaryObject, 0),
		PhysicalObjects: make([]*PhysicalObject, 0),
		UnitIDs:         make([]int64, 0),
		OperationID:     operationID,
	}
}

// ObjectCount returns the number of binary and physical objects.
func (g *DataObjectGroup) ObjectCount() int {
	return len(g.BinaryObjects) + len(g.PhysicalObjects)
}

type BinaryObject struct {
	ID              int64  `json:"id"`
	XMLID           string `json:"xml_id"`
	Version         string `json:"version"`
	URI             string `json:"uri,omitempty"`
	DigestAlgorithm string `json:"digest_algorithm,omitempty"`
	Digest          string `json:"digest,omitempty"`
	Size            int64  `json:"size"`
	FormatID        string `json:"format_id,omitempty"`
	FormatLabel     string `json:"format_label,omitempty"`
	MimeType        string `json:"mime_type,omitempty"`
	Filename        string `json:"filename,omitempty"`
	OperationID     string `json:"operation_id"`
}

type PhysicalObject struct {
	ID          int64      `json:"id"`
	XMLID       string     `json:"xml_id"`
	Version     string     `json:"version"`
	PhysicalID  string     `json:"physical_id,omitempty"`
	Measures    []*Measure `json:"measures,omitempty"`
	OperationID string     `json:"operation_id"`
}

// Measure is one physical dimension, e.g. Height 21 centimetre.
type Measure struct {
	Name  string `json:"name"`
	Unit  string `json:"unit,omitempty"`
	Value string `json:"value"`
}

// Qualifier is the per-unit summary of one rendition class found in the
// unit's data object group.
type Qualifier struct {
	Name     string               `json:"qualifier"`
	Count    int                  `json:"count"`
	Versions []*VersionProjection `json:"versions"`
}

// VersionProjection is the lightweight view of one object that a unit
// carries in its qualifier list.
type VersionProjection struct {
	XMLID           string `json:"xml_id"`
	ID              int64  `json:"id"`
	Version         string `json:"version"`
	DigestAlgorithm string `json:"digest_algorithm,omitempty"`
	Digest          string `json:"digest,omitempty"`
	Size            int64  `json:"size"`
	FormatID        string `json:"format_id,omitempty"`
	OperationID     string `json:"operation_id"`
}

// DefaultVersion returns the version given to an object that declared
// none: the qualifier followed by "_1".
func DefaultVersion(qualifier string) string {
	return fmt.Sprintf("%s_1", qualifier)
}

// QualifierOf returns the rendition class of a version string.
// "BinaryMaster_2" is "BinaryMaster"; a version without a numeric
// suffix is its own qualifier.
func QualifierOf(version string) string {
	i := strings.LastIndex(version, "_")
	if i <= 0 {
		return version
	}
	if _, err := strconv.Atoi(version[i+1:]); err != nil {
		return version
	}
	return version[:i]
}

// Project returns the version projection of a binary object.
func (obj *BinaryObject) Project() *VersionProjection {
	return &VersionProjection{
		XMLID:           obj.XMLID,
		ID:              obj.ID,
		Version:         obj.Version,
		DigestAlgorithm: obj.DigestAlgorithm,
		Digest:          obj.Digest,
		Size:            obj.Size,
		FormatID:        obj.FormatID,
		OperationID:     obj.OperationID,
	}
}

// Project returns the version projection of a physical object.
func (obj *PhysicalObject) Project() *VersionProjection {
	return &VersionProjection{
		XMLID:       obj.XMLID,
		ID:          obj.ID,
		Version:     obj.Version,
		OperationID: obj.OperationID,
	}
}
