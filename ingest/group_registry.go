package ingest

import (
	"github.com/APTrust/transfer-services/models/service"
)

// GroupRegistry maps data object group keys to groups. A group may be
// discovered through its own DataObjectGroup element or through a
// group id declared inside a legacy object. Both paths go through
// GetOrCreate, so a key never has more than one group. A legacy object
// that names no group gets an implicit group keyed by its own xml id;
// that key belongs to the object and cannot be shared.
type GroupRegistry struct {
	groups      map[string]*service.DataObjectGroup
	ids         IDGenerator
	implicit    map[string]bool
	objectGroup map[string]string
	operationID string
	order       []string
}

func NewGroupRegistry(ids IDGenerator, operationID string) *GroupRegistry {
	return &GroupRegistry{
		groups:      make(map[string]*service.DataObjectGroup),
		ids:         ids,
		implicit:    make(map[string]bool),
		objectGroup: make(map[string]string),
		operationID: operationID,
		order:       make([]string, 0),
	}
}

// GetOrCreate returns the group for key, creating and registering it if
// necessary. The bool is true when the group was created by this call.
// The error is an infrastructure error from the id generator.
func (r *GroupRegistry) GetOrCreate(key string) (*service.DataObjectGroup, bool, error) {
	if group, exists := r.groups[key]; exists {
		return group, false, nil
	}
	id, err := r.ids.NextID()
	if err != nil {
		return nil, false, service.NewInfrastructureError("generate group id", err)
	}
	group := service.NewDataObjectGroup(id, key, r.operationID)
	r.groups[key] = group
	r.order = append(r.order, key)
	return group, true, nil
}

// CreateImplicit creates the group of a legacy object that names no
// group. It fails if anything already uses objectXMLID as a group key.
func (r *GroupRegistry) CreateImplicit(objectXMLID string) (*service.DataObjectGroup, error) {
	if _, exists := r.objectGroup[objectXMLID]; exists {
		return nil, service.NewValidationError("register data object", objectXMLID,
			"DataObject '%s' is not unique", objectXMLID)
	}
	if _, exists := r.groups[objectXMLID]; exists {
		return nil, service.NewValidationError("register data object group", objectXMLID,
			"DataObjectGroup '%s' is not unique", objectXMLID)
	}
	group, _, err := r.GetOrCreate(objectXMLID)
	if err != nil {
		return nil, err
	}
	r.implicit[objectXMLID] = true
	return group, nil
}

// IsImplicit returns true if key was created by CreateImplicit.
func (r *GroupRegistry) IsImplicit(key string) bool {
	return r.implicit[key]
}

// Get returns the group registered under key, or nil.
func (r *GroupRegistry) Get(key string) *service.DataObjectGroup {
	return r.groups[key]
}

// GroupForObject returns the group that holds the object with the
// given xml id, or nil.
func (r *GroupRegistry) GroupForObject(objectXMLID string) *service.DataObjectGroup {
	key, ok := r.objectGroup[objectXMLID]
	if !ok {
		return nil
	}
	return r.groups[key]
}

// Resolve returns the group a unit's data object reference points to,
// or nil if nothing matches.
func (r *GroupRegistry) Resolve(ref *service.DataObjectReference) *service.DataObjectGroup {
	if ref.GroupID != "" {
		return r.Get(ref.GroupID)
	}
	return r.GroupForObject(ref.ObjectID)
}

// AttachBinary adds obj to group. It fails if another object already
// uses obj's xml id.
func (r *GroupRegistry) AttachBinary(group *service.DataObjectGroup, obj *service.BinaryObject) error {
	if err := r.registerObject(obj.XMLID, group.XMLID); err != nil {
		return err
	}
	group.BinaryObjects = append(group.BinaryObjects, obj)
	return nil
}

// AttachPhysical adds obj to group. It fails if another object already
// uses obj's xml id.
func (r *GroupRegistry) AttachPhysical(group *service.DataObjectGroup, obj *service.PhysicalObject) error {
	if err := r.registerObject(obj.XMLID, group.XMLID); err != nil {
		return err
	}
	group.PhysicalObjects = append(group.PhysicalObjects, obj)
	return nil
}

func (r *GroupRegistry) registerObject(objectXMLID, groupKey string) error {
	if _, exists := r.objectGroup[objectXMLID]; exists {
		return service.NewValidationError("register data object", objectXMLID,
			"DataObject '%s' is not unique", objectXMLID)
	}
	r.objectGroup[objectXMLID] = groupKey
	return nil
}

// Groups returns all groups in the order they were created.
func (r *GroupRegistry) Groups() []*service.DataObjectGroup {
	groups := make([]*service.DataObjectGroup, len(r.order))
	for i, key := range r.order {
		groups[i] = r.groups[key]
	}
	return groups
}

func (r *GroupRegistry) Len() int {
	return len(r.order)
}
