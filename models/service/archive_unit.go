package service

import (
	"encoding/json"
	"time"
)

// ArchiveUnit is one node of the archival description tree. Units live
// in an arena keyed by their generated ID. ParentID refers to another
// unit's ID rather than holding a pointer to it.
type ArchiveUnit struct {
	ID                 int64           `json:"id"`
	XMLID              string          `json:"xml_id"`
	UnitType           string          `json:"unit_type"`
	SedaVersion        string          `json:"seda_version,omitempty"`
	ParentID           int64           `json:"parent_id,omitempty"`
	ParentIDs          []int64         `json:"parent_ids"`
	AncestorIDs        []int64         `json:"ancestor_ids"`
	ArchiveUnitProfile string          `json:"archive_unit_profile,omitempty"`
	Content            *UnitContent    `json:"content"`
	Management         *Management     `json:"management,omitempty"`
	InheritedRules     *InheritedRules `json:"inherited_rules,omitempty"`
	Qualifiers         []*Qualifier    `json:"qualifiers"`
	DataObjectGroupID  string          `json:"data_object_group_id,omitempty"`
	ServiceProducer    string          `json:"service_producer,omitempty"`
	ServiceProducers   []string        `json:"service_producers"`
	ServiceProvider    string          `json:"service_provider,omitempty"`
	ServiceProviders   []string        `json:"service_providers"`
	Existing           bool            `json:"existing,omitempty"`
	OperationID        string          `json:"operation_id"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	// Children maps child xml ids to child unit IDs in document order.
	Children *ChildMap `json:"-"`

	// Detached is true until the unit has a parent, either from the
	// manifest's nesting or from resolution.
	Detached bool `json:"-"`

	// AliasFor holds the ArchiveUnitRefId of a unit that only points
	// at another unit. Alias units never reach the output.
	AliasFor string `json:"-"`

	// DataObjectRef is the single data object reference declared on
	// this unit, if any.
	DataObjectRef *DataObjectReference `json:"-"`
}

// DataObjectReference is a unit's pointer to either one object (which
// resolves to the object's group) or directly to a group.
type DataObjectReference struct {
	ObjectID string
	GroupID  string
}

// Key returns whichever id the reference carries.
func (ref *DataObjectReference) Key() string {
	if ref.GroupID != "" {
		return ref.GroupID
	}
	return ref.ObjectID
}

// UnitContent holds a unit's descriptive metadata. Fields that are not
// part of the fixed vocabulary land in Extended.
type UnitContent struct {
	DescriptionLevel  string            `json:"description_level,omitempty"`
	Title             string            `json:"title"`
	Titles            map[string]string `json:"titles,omitempty"`
	Description       string            `json:"description,omitempty"`
	DocumentType      string            `json:"document_type,omitempty"`
	StartDate         string            `json:"start_date,omitempty"`
	EndDate           string            `json:"end_date,omitempty"`
	Keywords          []*Keyword        `json:"keywords,omitempty"`
	OriginatingAgency string            `json:"originating_agency,omitempty"`
	SubmissionAgency  string            `json:"submission_agency,omitempty"`
	Extended          ExtendedDocument  `json:"extended,omitempty"`
}

type Keyword struct {
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}

// NewArchiveUnit returns a detached unit with empty collections.
func NewArchiveUnit(id int64, xmlID, unitType, operationID string) *ArchiveUnit {
	now := time.Now().UTC()
	return &ArchiveUnit{
		ID:               id,
		XMLID:            xmlID,
		UnitType:         unitType,
		ParentIDs:        make([]int64, 0),
		AncestorIDs:      make([]int64, 0),
		Content:          &UnitContent{},
		Qualifiers:       make([]*Qualifier, 0),
		ServiceProducers: make([]string, 0),
		ServiceProviders: make([]string, 0),
		OperationID:      operationID,
		CreatedAt:        now,
		UpdatedAt:        now,
		Children:         NewChildMap(),
		Detached:         true,
	}
}

// IsAlias returns true if this unit only refers to another unit.
func (u *ArchiveUnit) IsAlias() bool {
	return u.AliasFor != ""
}

// Close stamps the update time. When initRules is true, it also
// sets up the empty inherited-rule structure that resolution fills in.
func (u *ArchiveUnit) Close(initRules bool) {
	if initRules && u.InheritedRules == nil {
		u.InheritedRules = NewInheritedRules()
	}
	u.UpdatedAt = time.Now().UTC()
}

func (u *ArchiveUnit) ToJson() (string, error) {
	bytes, err := json.Marshal(u)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func ArchiveUnitFromJson(jsonData string) (*ArchiveUnit, error) {
	u := &ArchiveUnit{}
	err := json.Unmarshal([]byte(jsonData), u)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ChildMap is an insertion-ordered map of child xml id to unit ID.
type ChildMap struct {
	keys  []string
	index map[string]int64
}

func NewChildMap() *ChildMap {
	return &ChildMap{
		keys:  make([]string, 0),
		index: make(map[string]int64),
	}
}

// Set adds or updates a child. New keys go to the end.
func (m *ChildMap) Set(xmlID string, id int64) {
	if _, exists := m.index[xmlID]; !exists {
		m.keys = append(m.keys, xmlID)
	}
	m.index[xmlID] = id
}

// Replace swaps oldXMLID for newXMLID, keeping its position. If
// oldXMLID is not present, newXMLID is appended.
func (m *ChildMap) Replace(oldXMLID, newXMLID string, id int64) {
	for i, key := range m.keys {
		if key == oldXMLID {
			delete(m.index, oldXMLID)
			m.keys[i] = newXMLID
			m.index[newXMLID] = id
			return
		}
	}
	m.Set(newXMLID, id)
}

func (m *ChildMap) Get(xmlID string) (int64, bool) {
	id, ok := m.index[xmlID]
	return id, ok
}

func (m *ChildMap) Delete(xmlID string) {
	if _, exists := m.index[xmlID]; !exists {
		return
	}
	delete(m.index, xmlID)
	for i, key := range m.keys {
		if key == xmlID {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// IDs returns child unit IDs in insertion order.
func (m *ChildMap) IDs() []int64 {
	ids := make([]int64, len(m.keys))
	for i, key := range m.keys {
		ids[i] = m.index[key]
	}
	return ids
}

func (m *ChildMap) Keys() []string {
	return append([]string{}, m.keys...)
}

func (m *ChildMap) Len() int {
	return len(m.keys)
}
