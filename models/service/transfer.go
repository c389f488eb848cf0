package service

import (
	"encoding/json"
	"time"
)

// Agency identifies an archival, transferring, submission or
// originating organization.
type Agency struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name,omitempty"`
}

// TransferHeader describes the transfer message itself.
type TransferHeader struct {
	MessageIdentifier  string    `json:"message_identifier"`
	ArchivalAgreement  string    `json:"archival_agreement,omitempty"`
	Comment            string    `json:"comment,omitempty"`
	Date               string    `json:"date,omitempty"`
	ArchivalAgency     *Agency   `json:"archival_agency,omitempty"`
	TransferringAgency *Agency   `json:"transferring_agency,omitempty"`
	OperationID        string    `json:"operation_id"`
	OperationKind      string    `json:"operation_kind"`
	SedaVersion        string    `json:"seda_version"`
	CreatedAt          time.Time `json:"created_at"`
}

func NewTransferHeader(operationID, operationKind string) *TransferHeader {
	return &TransferHeader{
		OperationID:   operationID,
		OperationKind: operationKind,
		CreatedAt:     time.Now().UTC(),
	}
}

// ManagementMetadata is the transfer-wide management block.
type ManagementMetadata struct {
	ArchivalProfile        string      `json:"archival_profile,omitempty"`
	ServiceLevel           string      `json:"service_level,omitempty"`
	AcquisitionInformation string      `json:"acquisition_information,omitempty"`
	LegalStatus            string      `json:"legal_status,omitempty"`
	OriginatingAgency      string      `json:"originating_agency,omitempty"`
	SubmissionAgency       string      `json:"submission_agency,omitempty"`
	Management             *Management `json:"management,omitempty"`
}

// ParseResult is the fully resolved output of one manifest. Units are
// listed in pre-order, parents before children.
type ParseResult struct {
	Header             *TransferHeader     `json:"header"`
	Groups             []*DataObjectGroup  `json:"groups"`
	Units              []*ArchiveUnit      `json:"units"`
	ManagementMetadata *ManagementMetadata `json:"management_metadata,omitempty"`
}

// UnitByXMLID returns the output unit with the given xml id, or nil.
func (r *ParseResult) UnitByXMLID(xmlID string) *ArchiveUnit {
	for _, unit := range r.Units {
		if unit.XMLID == xmlID {
			return unit
		}
	}
	return nil
}

// GroupByXMLID returns the output group with the given xml id, or nil.
func (r *ParseResult) GroupByXMLID(xmlID string) *DataObjectGroup {
	for _, group := range r.Groups {
		if group.XMLID == xmlID {
			return group
		}
	}
	return nil
}

func (r *ParseResult) ToJson() (string, error) {
	bytes, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
