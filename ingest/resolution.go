package ingest

import (
	"github.com/APTrust/transfer-services/models/service"
	"github.com/samber/lo"
)

// resolve runs once the whole document has been read. It checks the
// groups and resolves data object references, splices aliases,
// attaches orphans and finally walks every tree in pre-order to
// propagate ancestry, producers and inherited rules.
func (st *parseState) resolve() error {
	if err := st.checkGroups(); err != nil {
		return err
	}
	if err := st.resolveReferences(); err != nil {
		return err
	}
	if err := st.spliceAliases(); err != nil {
		return err
	}
	link, err := st.linkParent()
	if err != nil {
		return err
	}
	if err := st.attachOrphans(link); err != nil {
		return err
	}
	return st.propagate(link)
}

// checkGroups runs the group-level validators. The object checker may
// adjust sizes and formats, so it runs before qualifiers are built.
func (st *parseState) checkGroups() error {
	for _, group := range st.groups.Groups() {
		if group.ObjectCount() == 0 {
			return service.NewValidationError("check data object group", group.XMLID,
				"DataObjectGroup '%s' has no data object", group.XMLID)
		}
		if err := st.collab.Versions.CheckVersions(group); err != nil {
			return service.WrapValidationError("check versions", group.XMLID, err)
		}
		if st.collab.Objects == nil {
			continue
		}
		for _, obj := range group.BinaryObjects {
			if err := st.collab.Objects.CheckBinaryObject(obj, st.parser.ContentRoot); err != nil {
				return service.WrapValidationError("check binary object", obj.XMLID, err)
			}
		}
	}
	return nil
}

func (st *parseState) resolveReferences() error {
	for _, xmlID := range st.unitOrder {
		unit := st.units[xmlID]
		if unit.DataObjectRef == nil {
			continue
		}
		group := st.groups.Resolve(unit.DataObjectRef)
		if group == nil {
			return service.NewValidationError("resolve data object reference", unit.XMLID,
				"DataObjectReference '%s' of ArchiveUnit '%s' matches no data object",
				unit.DataObjectRef.Key(), unit.XMLID)
		}
		unit.DataObjectGroupID = group.XMLID
		group.UnitIDs = append(group.UnitIDs, unit.ID)
		AggregateQualifiers(group, unit)
	}
	return nil
}

// spliceAliases moves each alias target into the alias's position and
// drops the alias. Every target moved below a parent is recorded in
// st.spliced so propagate reaches it only through that parent.
func (st *parseState) spliceAliases() error {
	for _, aliasXMLID := range st.aliases {
		alias, ok := st.units[aliasXMLID]
		if !ok || !alias.IsAlias() {
			return service.NewValidationError("splice alias", aliasXMLID,
				"ArchiveUnit '%s' is no longer a reference", aliasXMLID)
		}
		target, ok := st.units[alias.AliasFor]
		if !ok {
			return service.NewValidationError("splice alias", alias.XMLID,
				"ArchiveUnit '%s' refers to unknown ArchiveUnit '%s'", alias.XMLID, alias.AliasFor)
		}
		if target.IsAlias() {
			return service.NewValidationError("splice alias", alias.XMLID,
				"ArchiveUnit '%s' refers to '%s', which is itself a reference", alias.XMLID, target.XMLID)
		}
		if !target.Detached {
			return service.NewValidationError("splice alias", alias.XMLID,
				"Unit '%s' is already attached in manifest", target.XMLID)
		}
		parentXMLID, hasParent := st.parentOf[alias.XMLID]
		delete(st.units, alias.XMLID)
		delete(st.parentOf, alias.XMLID)
		st.unitOrder = lo.Without(st.unitOrder, alias.XMLID)
		st.topLevel = lo.Without(st.topLevel, alias.XMLID)
		if !hasParent {
			// A top-level alias leaves its target detached; it is
			// handled as an orphan.
			continue
		}
		parent := st.units[parentXMLID]
		for ancestor := parentXMLID; ancestor != ""; ancestor = st.parentOf[ancestor] {
			if ancestor == target.XMLID {
				return service.NewValidationError("splice alias", alias.XMLID,
					"Unit '%s' cannot be attached below its own descendant '%s'", target.XMLID, parent.XMLID)
			}
		}
		parent.Children.Replace(alias.XMLID, target.XMLID, target.ID)
		target.ParentID = parent.ID
		target.Detached = false
		st.parentOf[target.XMLID] = parentXMLID
		st.spliced[target.XMLID] = true
		st.parser.Logger.Debugf("Spliced unit %s below %s in place of %s", target.XMLID, parent.XMLID, alias.XMLID)
	}
	return nil
}

// linkParent returns the persisted unit new roots are attached to, or
// nil when the archival agreement names none.
func (st *parseState) linkParent() (*service.ExistingUnit, error) {
	systemID, err := st.collab.Referential.LinkParent(st.header.ArchivalAgreement)
	if err != nil {
		return nil, service.WrapValidationError("resolve link parent", st.header.ArchivalAgreement, err)
	}
	if systemID == "" {
		return nil, nil
	}
	if st.collab.Units == nil {
		return nil, service.NewValidationError("resolve link parent", st.header.ArchivalAgreement,
			"No unit lookup is configured to resolve link parent %s of agreement '%s'",
			systemID, st.header.ArchivalAgreement)
	}
	link, err := st.collab.Units.ByID(systemID)
	if err != nil {
		return nil, service.WrapValidationError("resolve link parent", st.header.ArchivalAgreement, err)
	}
	if link == nil {
		return nil, service.NewValidationError("resolve link parent", st.header.ArchivalAgreement,
			"Link parent %s of agreement '%s' does not exist", systemID, st.header.ArchivalAgreement)
	}
	return link, nil
}

// attachOrphans attaches every still detached unit to link. Without a
// link parent the orphans stay roots.
func (st *parseState) attachOrphans(link *service.ExistingUnit) error {
	for _, xmlID := range st.topLevel {
		unit := st.units[xmlID]
		if !unit.Detached {
			continue
		}
		unit.Detached = false
		if link == nil {
			continue
		}
		if !st.collab.UnitTypes.Compatible(link.UnitType, unit.UnitType) {
			return service.NewValidationError("attach unit", unit.XMLID,
				"ArchiveUnit '%s' of type %s cannot be attached to unit %d of type %s",
				unit.XMLID, unit.UnitType, link.ID, link.UnitType)
		}
		unit.ParentID = link.ID
	}
	return nil
}

// propagate walks every root in document order and emits units in
// pre-order.
func (st *parseState) propagate(link *service.ExistingUnit) error {
	for _, xmlID := range st.topLevel {
		if st.spliced[xmlID] {
			// Reached through its new parent.
			continue
		}
		root := st.units[xmlID]
		if root.Existing {
			if err := st.visitExisting(root); err != nil {
				return err
			}
			continue
		}
		seed := &service.ArchiveUnit{
			AncestorIDs:      make([]int64, 0),
			ServiceProducers: make([]string, 0),
			ServiceProviders: make([]string, 0),
		}
		if link != nil {
			seed = link.ToArchiveUnit("", st.parser.OperationID)
		}
		if err := st.visit(root, seed, link != nil); err != nil {
			return err
		}
	}
	return nil
}

// visitExisting emits an existing unit with its persisted ancestry and
// rules, then walks its new children.
func (st *parseState) visitExisting(unit *service.ArchiveUnit) error {
	st.output = append(st.output, unit)
	for _, childXMLID := range unit.Children.Keys() {
		if err := st.visit(st.units[childXMLID], unit, true); err != nil {
			return err
		}
	}
	return nil
}

// visit fills in unit from parent. hasParent is false for a root that
// has no parent at all; parent is then an empty seed.
func (st *parseState) visit(unit, parent *service.ArchiveUnit, hasParent bool) error {
	if hasParent {
		unit.ParentIDs = lo.Union(unit.ParentIDs, []int64{parent.ID})
		unit.AncestorIDs = lo.Union(unit.AncestorIDs, parent.AncestorIDs, []int64{parent.ID})
	}
	if !st.isHolding() {
		st.propagateProducers(unit, parent)
		var parentRules *service.InheritedRules
		if hasParent {
			parentRules = parent.InheritedRules
		}
		rules, err := st.collab.Rules.Compute(unit, parentRules)
		if err != nil {
			return service.WrapValidationError("compute rules", unit.XMLID, err)
		}
		unit.InheritedRules = rules
	}
	st.output = append(st.output, unit)
	for _, childXMLID := range unit.Children.Keys() {
		if err := st.visit(st.units[childXMLID], unit, true); err != nil {
			return err
		}
	}
	return nil
}

// propagateProducers sets the unit's service producer (its own
// originating agency, else its parent's, else the transfer default)
// and unions the parent's producer set. Service providers follow the
// same rule from the submission agencies.
func (st *parseState) propagateProducers(unit, parent *service.ArchiveUnit) {
	var defaultProducer, defaultProvider string
	if st.metadata != nil {
		defaultProducer = st.metadata.OriginatingAgency
		defaultProvider = st.metadata.SubmissionAgency
	}
	unit.ServiceProducer, unit.ServiceProducers = inheritAgency(
		unit.Content.OriginatingAgency, parent.ServiceProducer, defaultProducer,
		unit.ServiceProducers, parent.ServiceProducers)
	unit.ServiceProvider, unit.ServiceProviders = inheritAgency(
		unit.Content.SubmissionAgency, parent.ServiceProvider, defaultProvider,
		unit.ServiceProviders, parent.ServiceProviders)
}

// inheritAgency picks the first non-empty of own, inherited and
// fallback, and returns it with the union of both sets.
func inheritAgency(own, inherited, fallback string, set, parentSet []string) (string, []string) {
	agency := own
	if agency == "" {
		agency = inherited
	}
	if agency == "" {
		agency = fallback
	}
	union := lo.Union(set, parentSet)
	if agency != "" {
		union = lo.Union(union, []string{agency})
	}
	return agency, union
}
