package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	FieldTypeBoolean = "BOOLEAN"
	FieldTypeDate    = "DATE"
	FieldTypeDouble  = "DOUBLE"
	FieldTypeEnum    = "ENUM"
	FieldTypeKeyword = "KEYWORD"
	FieldTypeLong    = "LONG"
	FieldTypeText    = "TEXT"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006",
	"2006-01",
}

// OntologyField describes one extended content field: its dotted
// path, its value type and, for enums, its legal values.
type OntologyField struct {
	Identifier string   `json:"identifier" yaml:"identifier"`
	Type       string   `json:"type" yaml:"type"`
	Values     []string `json:"values,omitempty" yaml:"values,omitempty"`
}

// Convert checks raw against the field's type and returns the typed
// value. Dates stay strings but must parse.
func (f *OntologyField) Convert(raw string) (interface{}, error) {
	switch strings.ToUpper(f.Type) {
	case FieldTypeLong:
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("'%s' is not an integer", raw)
		}
		return value, nil
	case FieldTypeDouble:
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("'%s' is not a number", raw)
		}
		return value, nil
	case FieldTypeBoolean:
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("'%s' is not a boolean", raw)
		}
		return value, nil
	case FieldTypeDate:
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, raw); err == nil {
				return raw, nil
			}
		}
		return nil, fmt.Errorf("'%s' is not a date", raw)
	case FieldTypeEnum:
		for _, allowed := range f.Values {
			if raw == allowed {
				return raw, nil
			}
		}
		return nil, fmt.Errorf("'%s' is not one of %s", raw, strings.Join(f.Values, ", "))
	default:
		return raw, nil
	}
}

// ExistingUnit is the view of an already persisted unit returned by
// a unit lookup. It is used as an update target or as the parent that
// detached units are attached to.
type ExistingUnit struct {
	ID               int64           `json:"id"`
	XMLID            string          `json:"xml_id,omitempty"`
	UnitType         string          `json:"unit_type"`
	Title            string          `json:"title,omitempty"`
	ParentIDs        []int64         `json:"parent_ids"`
	AncestorIDs      []int64         `json:"ancestor_ids"`
	ServiceProducer  string          `json:"service_producer,omitempty"`
	ServiceProducers []string        `json:"service_producers"`
	ServiceProvider  string          `json:"service_provider,omitempty"`
	ServiceProviders []string        `json:"service_providers"`
	InheritedRules   *InheritedRules `json:"inherited_rules,omitempty"`
}

// ToArchiveUnit returns an ArchiveUnit that carries this unit's
// identity, registered under xmlID for the current manifest.
func (e *ExistingUnit) ToArchiveUnit(xmlID, operationID string) *ArchiveUnit {
	unit := NewArchiveUnit(e.ID, xmlID, e.UnitType, operationID)
	unit.Existing = true
	unit.Detached = false
	unit.Content.Title = e.Title
	unit.ParentIDs = append(unit.ParentIDs, e.ParentIDs...)
	unit.AncestorIDs = append(unit.AncestorIDs, e.AncestorIDs...)
	if len(e.ParentIDs) > 0 {
		unit.ParentID = e.ParentIDs[0]
	}
	unit.ServiceProducer = e.ServiceProducer
	unit.ServiceProducers = append(unit.ServiceProducers, e.ServiceProducers...)
	unit.ServiceProvider = e.ServiceProvider
	unit.ServiceProviders = append(unit.ServiceProviders, e.ServiceProviders...)
	unit.InheritedRules = e.InheritedRules
	return unit
}
