package ingest

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/APTrust/transfer-services/constants"
	"github.com/APTrust/transfer-services/models/service"
	"github.com/google/uuid"
	"github.com/op/go-logging"
)

// ManifestParser turns one archive transfer manifest into a resolved
// ParseResult. A parser may be reused, but each call to Parse starts
// from empty state, so separate manifests can be parsed concurrently
// by separate parsers.
type ManifestParser struct {
	Collaborators *Collaborators
	ContentRoot   string
	Logger        *logging.Logger
	OperationID   string
	OperationKind string
}

// NewManifestParser returns a parser for the given operation. Payload
// URIs in the manifest are resolved under contentRoot. If operationID
// is empty, a new UUID is used.
func NewManifestParser(collaborators *Collaborators, logger *logging.Logger, operationID, operationKind, contentRoot string) *ManifestParser {
	if operationID == "" {
		operationID = uuid.NewString()
	}
	if operationKind == "" {
		operationKind = constants.OperationArchive
	}
	return &ManifestParser{
		Collaborators: collaborators.withDefaults(),
		ContentRoot:   contentRoot,
		Logger:        logger,
		OperationID:   operationID,
		OperationKind: operationKind,
	}
}

// parseState is everything one Parse call accumulates. It is never
// shared between calls.
type parseState struct {
	parser       *ManifestParser
	collab       *Collaborators
	decoder      *xml.Decoder
	header       *service.TransferHeader
	metadata     *service.ManagementMetadata
	units        map[string]*service.ArchiveUnit
	unitOrder    []string
	parentOf     map[string]string
	topLevel     []string
	aliases      []string
	spliced      map[string]bool
	existing     map[int64]string
	groups       *GroupRegistry
	ontologies   map[string]map[string]*service.OntologyField
	output       []*service.ArchiveUnit
	unitType     string
}

// Parse reads the manifest from reader in a single forward pass, then
// resolves aliases, orphans and inherited properties. Any error aborts
// the whole transformation and no partial result is returned.
func (p *ManifestParser) Parse(reader io.Reader) (*service.ParseResult, error) {
	st := &parseState{
		parser:       p,
		collab:       p.Collaborators,
		decoder:      xml.NewDecoder(reader),
		header:       service.NewTransferHeader(p.OperationID, p.OperationKind),
		units:        make(map[string]*service.ArchiveUnit),
		unitOrder:    make([]string, 0),
		parentOf:     make(map[string]string),
		topLevel:     make([]string, 0),
		aliases:      make([]string, 0),
		spliced:      make(map[string]bool),
		existing:     make(map[int64]string),
		groups:       NewGroupRegistry(p.Collaborators.IDs, p.OperationID),
		ontologies:   make(map[string]map[string]*service.OntologyField),
		output:       make([]*service.ArchiveUnit, 0),
		unitType:     constants.UnitTypeFor(p.OperationKind),
	}
	root, err := st.readRoot()
	if err != nil {
		return nil, err
	}
	if err := st.parseTransfer(root); err != nil {
		return nil, err
	}
	if err := st.resolve(); err != nil {
		return nil, err
	}
	p.Logger.Infof("Parsed manifest %s for operation %s: %d units, %d groups",
		st.header.MessageIdentifier, p.OperationID, len(st.output), st.groups.Len())
	return &service.ParseResult{
		Header:             st.header,
		Groups:             st.groups.Groups(),
		Units:              st.output,
		ManagementMetadata: st.metadata,
	}, nil
}

func (st *parseState) isHolding() bool {
	return st.parser.OperationKind == constants.OperationHolding
}

// readRoot finds the root element and selects the dialect from its
// namespace.
func (st *parseState) readRoot() (xml.StartElement, error) {
	for {
		tok, err := st.decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = errors.New("manifest has no root element")
			}
			return xml.StartElement{}, service.NewReadError("read root", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "ArchiveTransfer" {
			return start, service.NewReadError("read root",
				errors.New("root element must be ArchiveTransfer, found "+start.Name.Local))
		}
		version, known := constants.Namespaces[start.Name.Space]
		if !known {
			return start, service.NewReadError("read root",
				errors.New("unsupported manifest namespace '"+start.Name.Space+"'"))
		}
		st.header.SedaVersion = version
		return start, nil
	}
}

func (st *parseState) parseTransfer(root xml.StartElement) error {
	for {
		tok, err := st.token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := st.dispatchTransfer(t); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (st *parseState) dispatchTransfer(start xml.StartElement) error {
	var err error
	switch start.Name.Local {
	case "Comment":
		// Repeated comments overwrite each other.
		st.header.Comment, err = st.readText(start)
	case "Date":
		st.header.Date, err = st.readText(start)
	case "MessageIdentifier":
		st.header.MessageIdentifier, err = st.readText(start)
	case "ArchivalAgreement":
		if st.header.ArchivalAgreement, err = st.readText(start); err == nil {
			if checkErr := st.collab.Referential.CheckArchivalAgreement(st.header.ArchivalAgreement); checkErr != nil {
				err = service.WrapValidationError("check archival agreement", st.header.ArchivalAgreement, checkErr)
			}
		}
	case "ArchivalAgency":
		st.header.ArchivalAgency, err = st.parseAgency(start)
	case "TransferringAgency":
		st.header.TransferringAgency, err = st.parseAgency(start)
	case "DataObjectPackage":
		err = st.parseDataObjectPackage(start)
	default:
		err = st.skip()
	}
	return err
}

func (st *parseState) parseAgency(start xml.StartElement) (*service.Agency, error) {
	agency := &service.Agency{}
	err := st.eachChild(func(child xml.StartElement) error {
		var err error
		switch child.Name.Local {
		case "Identifier":
			agency.Identifier, err = st.readText(child)
		case "Name":
			agency.Name, err = st.readText(child)
		case "OrganizationDescriptiveMetadata":
			err = st.eachChild(func(inner xml.StartElement) error {
				if inner.Name.Local == "Name" {
					agency.Name, err = st.readText(inner)
					return err
				}
				return st.skip()
			})
		default:
			err = st.skip()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if agency.Identifier == "" {
		return nil, service.NewValidationError("parse agency", start.Name.Local,
			"%s has no Identifier", start.Name.Local)
	}
	if err := st.collab.Referential.CheckAgency(agency.Identifier); err != nil {
		return nil, service.WrapValidationError("check agency", agency.Identifier, err)
	}
	return agency, nil
}

func (st *parseState) parseDataObjectPackage(start xml.StartElement) error {
	return st.eachChild(func(child xml.StartElement) error {
		switch child.Name.Local {
		case "DataObjectGroup":
			return st.parseDataObjectGroup(child)
		case "BinaryDataObject", "PhysicalDataObject":
			if st.parser.OperationKind != constants.OperationArchive {
				return service.NewValidationError("parse data object", attr(child, "id"),
					"%s '%s' outside a DataObjectGroup is only allowed in %s operations",
					child.Name.Local, attr(child, "id"), constants.OperationArchive)
			}
			if child.Name.Local == "BinaryDataObject" {
				return st.parseBinaryObject(child, nil)
			}
			return st.parsePhysicalObject(child, nil)
		case "DescriptiveMetadata":
			return st.eachChild(func(unit xml.StartElement) error {
				if unit.Name.Local == "ArchiveUnit" {
					return st.parseArchiveUnit(unit, nil)
				}
				return st.skip()
			})
		case "ManagementMetadata":
			return st.parseManagementMetadata(child)
		default:
			return st.skip()
		}
	})
}

func (st *parseState) parseManagementMetadata(start xml.StartElement) error {
	md := &service.ManagementMetadata{}
	err := st.eachChild(func(child xml.StartElement) error {
		var err error
		switch child.Name.Local {
		case "ArchivalProfile":
			md.ArchivalProfile, err = st.readText(child)
		case "ServiceLevel":
			md.ServiceLevel, err = st.readText(child)
		case "AcquisitionInformation":
			md.AcquisitionInformation, err = st.readText(child)
		case "LegalStatus":
			md.LegalStatus, err = st.readText(child)
		case "OriginatingAgencyIdentifier":
			if md.OriginatingAgency, err = st.readText(child); err == nil {
				if checkErr := st.collab.Referential.CheckAgency(md.OriginatingAgency); checkErr != nil {
					err = service.WrapValidationError("check agency", md.OriginatingAgency, checkErr)
				}
			}
		case "SubmissionAgencyIdentifier":
			md.SubmissionAgency, err = st.readText(child)
		case "Management":
			md.Management, err = st.parseManagement(child, "ManagementMetadata")
		default:
			err = st.skip()
		}
		return err
	})
	if err != nil {
		return err
	}
	st.metadata = md
	return nil
}

// token returns the next token, turning EOF and decoder failures
// into read errors.
func (st *parseState) token() (xml.Token, error) {
	tok, err := st.decoder.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, service.NewReadError("read element", err)
	}
	return tok, nil
}

// eachChild calls fn for every child element of the element just
// opened, and returns after that element's end tag. fn must consume
// the child, including its end tag.
func (st *parseState) eachChild(fn func(xml.StartElement) error) error {
	for {
		tok, err := st.token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := fn(t); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

// readText returns the trimmed text of a leaf element. A leaf that
// contains elements is structurally invalid.
func (st *parseState) readText(start xml.StartElement) (string, error) {
	var text strings.Builder
	for {
		tok, err := st.token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			return "", service.NewReadError("read "+start.Name.Local,
				errors.New("element "+start.Name.Local+" must not contain element "+t.Name.Local))
		case xml.EndElement:
			return strings.TrimSpace(text.String()), nil
		}
	}
}

// skip consumes the element just opened.
func (st *parseState) skip() error {
	if err := st.decoder.Skip(); err != nil {
		return service.NewReadError("skip element", err)
	}
	return nil
}

func attr(start xml.StartElement, name string) string {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
