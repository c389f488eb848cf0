package ingest

import (
	"encoding/xml"

	"github.com/APTrust/transfer-services/models/service"
	"golang.org/x/text/unicode/norm"
)

// parseArchiveUnit builds the unit whose start tag was just read, along
// with its whole subtree. parent is nil for a top-level unit.
func (st *parseState) parseArchiveUnit(start xml.StartElement, parent *service.ArchiveUnit) error {
	xmlID := attr(start, "id")
	if xmlID == "" {
		return service.NewValidationError("create unit", "",
			"ArchiveUnit without id below '%s'", parentXMLID(parent))
	}
	if err := st.collab.UnitCount.Check(len(st.units) + 1); err != nil {
		return service.WrapValidationError("create unit", xmlID, err)
	}
	id, err := st.nextID()
	if err != nil {
		return err
	}
	unit := service.NewArchiveUnit(id, xmlID, st.unitType, st.parser.OperationID)
	unit.SedaVersion = st.header.SedaVersion
	if err := st.registerUnit(unit); err != nil {
		return err
	}
	st.attach(unit, parent)
	st.parser.Logger.Debugf("Created unit %s (%d) below %s", xmlID, unit.ID, parentXMLID(parent))

	// current changes identity when an UpdateOperation swaps the
	// placeholder for an existing unit.
	current := unit
	sawContent := false
	err = st.eachChild(func(child xml.StartElement) error {
		var err error
		switch child.Name.Local {
		case "ArchiveUnitProfile":
			current.ArchiveUnitProfile, err = st.readText(child)
		case "Management":
			var management *service.Management
			if management, err = st.parseManagement(child, xmlID); err != nil {
				return err
			}
			if management.UpdateOperation != nil {
				if parent != nil || sawContent || current.Children.Len() > 0 || current.Existing || current.IsAlias() {
					return service.NewValidationError("update unit", xmlID,
						"UpdateOperation is only allowed on a top-level ArchiveUnit before its content ('%s')", xmlID)
				}
				if current, err = st.swapForExisting(current, management.UpdateOperation); err != nil {
					return err
				}
			}
			current.Management = management
		case "Content":
			sawContent = true
			err = st.parseContent(child, current)
		case "DataObjectReference":
			if current.DataObjectRef != nil {
				return service.NewValidationError("parse data object reference", xmlID,
					"ArchiveUnit '%s' has more than one data object reference", xmlID)
			}
			err = st.parseDataObjectReference(child, current)
		case "ArchiveUnit":
			err = st.parseArchiveUnit(child, current)
		case "ArchiveUnitRefId":
			var target string
			if target, err = st.readText(child); err == nil {
				if current.IsAlias() {
					return service.NewValidationError("register alias", xmlID,
						"ArchiveUnit '%s' has more than one ArchiveUnitRefId", xmlID)
				}
				current.AliasFor = target
				st.aliases = append(st.aliases, current.XMLID)
			}
		default:
			err = st.skip()
		}
		return err
	})
	if err != nil {
		return err
	}
	return st.closeUnit(current, sawContent)
}

func (st *parseState) closeUnit(unit *service.ArchiveUnit, sawContent bool) error {
	if unit.IsAlias() {
		if sawContent || unit.Children.Len() > 0 || unit.DataObjectRef != nil || unit.Management != nil {
			return service.NewValidationError("register alias", unit.XMLID,
				"ArchiveUnit '%s' refers to '%s' and must not declare anything else", unit.XMLID, unit.AliasFor)
		}
	} else if !unit.Existing && unit.Content.Title == "" {
		return service.NewValidationError("close unit", unit.XMLID,
			"ArchiveUnit '%s' has no Title", unit.XMLID)
	}
	unit.Close(!st.isHolding())
	return nil
}

// registerUnit adds unit to the arena. The arena is keyed by xml id,
// since generated ids and the ids of existing units share one space.
func (st *parseState) registerUnit(unit *service.ArchiveUnit) error {
	if _, exists := st.units[unit.XMLID]; exists {
		return service.NewValidationError("register unit", unit.XMLID,
			"ArchiveUnit '%s' is not unique", unit.XMLID)
	}
	st.units[unit.XMLID] = unit
	st.unitOrder = append(st.unitOrder, unit.XMLID)
	return nil
}

// attach links unit below parent, or records it as top-level.
func (st *parseState) attach(unit, parent *service.ArchiveUnit) {
	if parent == nil {
		st.topLevel = append(st.topLevel, unit.XMLID)
		return
	}
	unit.ParentID = parent.ID
	unit.Detached = false
	st.parentOf[unit.XMLID] = parent.XMLID
	parent.Children.Set(unit.XMLID, unit.ID)
}

// swapForExisting replaces a top-level placeholder with the persisted
// unit named by update. The existing unit takes the placeholder's xml
// id, so its arena slot and top-level position stay the same.
func (st *parseState) swapForExisting(placeholder *service.ArchiveUnit, update *service.UpdateOperation) (*service.ArchiveUnit, error) {
	if st.collab.Units == nil {
		return nil, service.NewValidationError("update unit", placeholder.XMLID,
			"No unit lookup is configured to resolve the UpdateOperation of '%s'", placeholder.XMLID)
	}
	var existing *service.ExistingUnit
	var err error
	if update.SystemID != "" {
		existing, err = st.collab.Units.ByID(update.SystemID)
	} else {
		existing, err = st.collab.Units.ByField(update.MetadataName, update.MetadataValue)
	}
	if err != nil {
		return nil, service.WrapValidationError("update unit", placeholder.XMLID, err)
	}
	if existing == nil {
		return nil, service.NewValidationError("update unit", placeholder.XMLID,
			"UpdateOperation of '%s' matches no existing unit", placeholder.XMLID)
	}
	if other, used := st.existing[existing.ID]; used {
		return nil, service.NewValidationError("update unit", placeholder.XMLID,
			"Unit %d is used twice in manifest (ArchiveUnit '%s' and '%s')", existing.ID, other, placeholder.XMLID)
	}
	replacement := existing.ToArchiveUnit(placeholder.XMLID, st.parser.OperationID)
	replacement.SedaVersion = placeholder.SedaVersion
	st.existing[existing.ID] = placeholder.XMLID
	st.units[placeholder.XMLID] = replacement
	st.parser.Logger.Debugf("Unit %s now stands for existing unit %d", placeholder.XMLID, replacement.ID)
	return replacement, nil
}

func (st *parseState) parseContent(start xml.StartElement, unit *service.ArchiveUnit) error {
	content := unit.Content
	return st.eachChild(func(child xml.StartElement) error {
		var err error
		var text string
		switch child.Name.Local {
		case "DescriptionLevel":
			content.DescriptionLevel, err = st.readText(child)
		case "Title":
			if text, err = st.readText(child); err != nil {
				return err
			}
			text = norm.NFC.String(text)
			if lang := attr(child, "lang"); lang != "" {
				if content.Titles == nil {
					content.Titles = make(map[string]string)
				}
				content.Titles[lang] = text
			}
			if content.Title == "" {
				content.Title = text
			}
		case "Description":
			if text, err = st.readText(child); err == nil {
				content.Description = norm.NFC.String(text)
			}
		case "DocumentType":
			content.DocumentType, err = st.readText(child)
		case "StartDate":
			content.StartDate, err = st.readText(child)
		case "EndDate":
			content.EndDate, err = st.readText(child)
		case "Keyword":
			err = st.parseKeyword(child, content)
		case "OriginatingAgency":
			if content.OriginatingAgency, err = st.readIdentifier(child); err == nil && content.OriginatingAgency != "" {
				if checkErr := st.collab.Referential.CheckAgency(content.OriginatingAgency); checkErr != nil {
					err = service.WrapValidationError("check agency", unit.XMLID, checkErr)
				}
			}
		case "SubmissionAgency":
			content.SubmissionAgency, err = st.readIdentifier(child)
		default:
			err = st.accumulateExtended(child, unit)
		}
		return err
	})
}

func (st *parseState) parseKeyword(start xml.StartElement, content *service.UnitContent) error {
	keyword := &service.Keyword{}
	err := st.eachChild(func(child xml.StartElement) error {
		var err error
		switch child.Name.Local {
		case "KeywordContent":
			var text string
			if text, err = st.readText(child); err == nil {
				keyword.Content = norm.NFC.String(text)
			}
		case "KeywordType":
			keyword.Type, err = st.readText(child)
		default:
			err = st.skip()
		}
		return err
	})
	if err != nil {
		return err
	}
	content.Keywords = append(content.Keywords, keyword)
	return nil
}

// readIdentifier returns the Identifier child of an agency element.
func (st *parseState) readIdentifier(start xml.StartElement) (string, error) {
	identifier := ""
	err := st.eachChild(func(child xml.StartElement) error {
		var err error
		if child.Name.Local == "Identifier" {
			identifier, err = st.readText(child)
			return err
		}
		return st.skip()
	})
	return identifier, err
}

// parseDataObjectReference records the reference only. It is resolved
// once the whole package has been read, since groups may come later.
func (st *parseState) parseDataObjectReference(start xml.StartElement, unit *service.ArchiveUnit) error {
	ref := &service.DataObjectReference{}
	err := st.eachChild(func(child xml.StartElement) error {
		var err error
		var text string
		switch child.Name.Local {
		case "DataObjectReferenceId":
			text, err = st.readText(child)
			if err == nil && (ref.ObjectID != "" || ref.GroupID != "") {
				return moreThanOneReference(unit)
			}
			ref.ObjectID = text
		case "DataObjectGroupReferenceId":
			text, err = st.readText(child)
			if err == nil && (ref.ObjectID != "" || ref.GroupID != "") {
				return moreThanOneReference(unit)
			}
			ref.GroupID = text
		default:
			err = st.skip()
		}
		return err
	})
	if err != nil {
		return err
	}
	if ref.Key() == "" {
		return service.NewValidationError("parse data object reference", unit.XMLID,
			"DataObjectReference of ArchiveUnit '%s' is empty", unit.XMLID)
	}
	unit.DataObjectRef = ref
	return nil
}

func moreThanOneReference(unit *service.ArchiveUnit) error {
	return service.NewValidationError("parse data object reference", unit.XMLID,
		"ArchiveUnit '%s' has more than one data object reference", unit.XMLID)
}

func parentXMLID(parent *service.ArchiveUnit) string {
	if parent == nil {
		return "DescriptiveMetadata"
	}
	return parent.XMLID
}

