package ingest

import (
	"encoding/xml"
	"strings"

	"github.com/APTrust/transfer-services/models/service"
	"golang.org/x/text/unicode/norm"
)

// extendedFrame is one open element inside an extended content
// subtree.
type extendedFrame struct {
	name string
	path string
	doc  service.ExtendedDocument
	text strings.Builder
}

func (f *extendedFrame) node() service.ExtendedDocument {
	if f.doc == nil {
		f.doc = make(service.ExtendedDocument)
	}
	return f.doc
}

// accumulateExtended folds the element just opened, and everything
// below it, into the unit's extended document. Leaves are checked
// against the ontology of the unit's document type by dotted path.
func (st *parseState) accumulateExtended(start xml.StartElement, unit *service.ArchiveUnit) error {
	if unit.Content.Extended == nil {
		unit.Content.Extended = make(service.ExtendedDocument)
	}
	fields, err := st.ontologyFields(unit)
	if err != nil {
		return err
	}
	stack := []*extendedFrame{
		{doc: unit.Content.Extended},
		{name: start.Name.Local, path: start.Name.Local},
	}
	for len(stack) > 1 {
		tok, err := st.token()
		if err != nil {
			return err
		}
		top := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			top.node()
			stack = append(stack, &extendedFrame{
				name: t.Name.Local,
				path: top.path + "." + t.Name.Local,
			})
		case xml.CharData:
			top.text.Write(t)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
			var value interface{} = top.doc
			if top.doc == nil {
				if value, err = convertLeaf(fields, top.path, top.text.String()); err != nil {
					return service.NewValidationError("parse extended content", unit.XMLID,
						"Field '%s' of ArchiveUnit '%s': %s", top.path, unit.XMLID, err.Error())
				}
			}
			stack[len(stack)-1].node().Fold(top.name, value)
		}
	}
	return nil
}

func (st *parseState) ontologyFields(unit *service.ArchiveUnit) (map[string]*service.OntologyField, error) {
	documentType := unit.Content.DocumentType
	if fields, ok := st.ontologies[documentType]; ok {
		return fields, nil
	}
	fields, err := st.collab.Ontology.Fields(documentType)
	if err != nil {
		return nil, service.WrapValidationError("load ontology", unit.XMLID, err)
	}
	st.ontologies[documentType] = fields
	return fields, nil
}

// convertLeaf normalizes text and, when the path is declared, converts
// it to the declared type. Undeclared paths are kept as text.
func convertLeaf(fields map[string]*service.OntologyField, path, raw string) (interface{}, error) {
	text := norm.NFC.String(strings.TrimSpace(raw))
	field, declared := fields[path]
	if !declared {
		return text, nil
	}
	return field.Convert(text)
}
