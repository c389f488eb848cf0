package ingest

import (
	"encoding/xml"
	"strconv"

	"github.com/APTrust/transfer-services/constants"
	"github.com/APTrust/transfer-services/models/service"
)

// parseDataObjectGroup reads an explicit DataObjectGroup. The group may
// already exist if a legacy object named it first.
func (st *parseState) parseDataObjectGroup(start xml.StartElement) error {
	xmlID := attr(start, "id")
	if xmlID == "" {
		return service.NewValidationError("parse data object group", "",
			"DataObjectGroup without id")
	}
	if st.groups.IsImplicit(xmlID) {
		return service.NewValidationError("parse data object group", xmlID,
			"DataObjectGroup '%s' is not unique: DataObject '%s' already uses it as its own group", xmlID, xmlID)
	}
	group, _, err := st.groups.GetOrCreate(xmlID)
	if err != nil {
		return err
	}
	if group.Explicit {
		return service.NewValidationError("parse data object group", xmlID,
			"DataObjectGroup '%s' is not unique", xmlID)
	}
	group.Explicit = true
	return st.eachChild(func(child xml.StartElement) error {
		switch child.Name.Local {
		case "BinaryDataObject":
			return st.parseBinaryObject(child, group)
		case "PhysicalDataObject":
			return st.parsePhysicalObject(child, group)
		default:
			return st.skip()
		}
	})
}

// objectGroupRef reads the group id a legacy object may carry. Objects
// inside an explicit group must not carry one.
func (st *parseState) objectGroupRef(child xml.StartElement, objectXMLID string, group *service.DataObjectGroup) (string, error) {
	text, err := st.readText(child)
	if err != nil {
		return "", err
	}
	if group != nil && text != group.XMLID {
		return "", service.NewValidationError("parse data object", objectXMLID,
			"DataObject '%s' in DataObjectGroup '%s' refers to group '%s'", objectXMLID, group.XMLID, text)
	}
	return text, nil
}

// groupFor returns the explicit group, or the group a legacy object
// joins: the one it names, else an implicit one keyed by its own xml id.
func (st *parseState) groupFor(group *service.DataObjectGroup, groupRef, objectXMLID string) (*service.DataObjectGroup, error) {
	if group != nil {
		return group, nil
	}
	if groupRef == "" {
		st.parser.Logger.Debugf("Created implicit group for data object %s", objectXMLID)
		return st.groups.CreateImplicit(objectXMLID)
	}
	group, created, err := st.groups.GetOrCreate(groupRef)
	if created {
		st.parser.Logger.Debugf("Created group %s for data object %s", groupRef, objectXMLID)
	}
	return group, err
}

func (st *parseState) nextID() (int64, error) {
	id, err := st.collab.IDs.NextID()
	if err != nil {
		return 0, service.NewInfrastructureError("generate id", err)
	}
	return id, nil
}

func (st *parseState) parseBinaryObject(start xml.StartElement, group *service.DataObjectGroup) error {
	id, err := st.nextID()
	if err != nil {
		return err
	}
	obj := &service.BinaryObject{
		ID:          id,
		XMLID:       attr(start, "id"),
		OperationID: st.parser.OperationID,
	}
	if obj.XMLID == "" {
		return service.NewValidationError("parse data object", "", "BinaryDataObject without id")
	}
	groupRef := ""
	err = st.eachChild(func(child xml.StartElement) error {
		var err error
		switch child.Name.Local {
		case "DataObjectVersion":
			obj.Version, err = st.readText(child)
		case "Uri":
			obj.URI, err = st.readText(child)
		case "MessageDigest":
			obj.DigestAlgorithm = attr(child, "algorithm")
			obj.Digest, err = st.readText(child)
		case "Size":
			var text string
			if text, err = st.readText(child); err != nil {
				return err
			}
			if obj.Size, err = strconv.ParseInt(text, 10, 64); err != nil || obj.Size < 0 {
				return service.NewValidationError("parse data object", obj.XMLID,
					"Size '%s' of DataObject '%s' is not a valid size", text, obj.XMLID)
			}
		case "FormatIdentification":
			err = st.eachChild(func(format xml.StartElement) error {
				var err error
				switch format.Name.Local {
				case "FormatLitteral":
					obj.FormatLabel, err = st.readText(format)
				case "MimeType":
					obj.MimeType, err = st.readText(format)
				case "FormatId":
					obj.FormatID, err = st.readText(format)
				default:
					err = st.skip()
				}
				return err
			})
		case "FileInfo":
			err = st.eachChild(func(info xml.StartElement) error {
				var err error
				if info.Name.Local == "Filename" {
					obj.Filename, err = st.readText(info)
					return err
				}
				return st.skip()
			})
		case "DataObjectGroupId", "DataObjectGroupReferenceId":
			groupRef, err = st.objectGroupRef(child, obj.XMLID, group)
		default:
			err = st.skip()
		}
		return err
	})
	if err != nil {
		return err
	}
	if obj.Version == "" {
		obj.Version = service.DefaultVersion(constants.QualifierBinaryMaster)
	}
	if group, err = st.groupFor(group, groupRef, obj.XMLID); err != nil {
		return err
	}
	return st.groups.AttachBinary(group, obj)
}

func (st *parseState) parsePhysicalObject(start xml.StartElement, group *service.DataObjectGroup) error {
	id, err := st.nextID()
	if err != nil {
		return err
	}
	obj := &service.PhysicalObject{
		ID:          id,
		XMLID:       attr(start, "id"),
		OperationID: st.parser.OperationID,
	}
	if obj.XMLID == "" {
		return service.NewValidationError("parse data object", "", "PhysicalDataObject without id")
	}
	groupRef := ""
	err = st.eachChild(func(child xml.StartElement) error {
		var err error
		switch child.Name.Local {
		case "DataObjectVersion":
			obj.Version, err = st.readText(child)
		case "PhysicalId":
			obj.PhysicalID, err = st.readText(child)
		case "PhysicalDimensions":
			err = st.eachChild(func(dimension xml.StartElement) error {
				value, err := st.readText(dimension)
				if err != nil {
					return err
				}
				obj.Measures = append(obj.Measures, &service.Measure{
					Name:  dimension.Name.Local,
					Unit:  attr(dimension, "unit"),
					Value: value,
				})
				return nil
			})
		case "DataObjectGroupId", "DataObjectGroupReferenceId":
			groupRef, err = st.objectGroupRef(child, obj.XMLID, group)
		default:
			err = st.skip()
		}
		return err
	})
	if err != nil {
		return err
	}
	if obj.Version == "" {
		obj.Version = service.DefaultVersion(constants.QualifierPhysical)
	}
	if group, err = st.groupFor(group, groupRef, obj.XMLID); err != nil {
		return err
	}
	return st.groups.AttachPhysical(group, obj)
}
