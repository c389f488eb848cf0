package ingest

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/APTrust/transfer-services/constants"
	"github.com/APTrust/transfer-services/models/service"
)

// The interfaces below are the services a ManifestParser calls but
// does not implement. Defaults are provided for the ones that have
// a sensible standalone behavior.

// IDGenerator hands out unit, group and object ids. Ids must be
// positive and strictly increasing. In production they must also never
// repeat across parses, since the registry stores them.
type IDGenerator interface {
	NextID() (int64, error)
}

// OntologyLookup returns the extended field definitions for a document
// type, keyed by dotted path (e.g. "Director.BirthDate").
type OntologyLookup interface {
	Fields(documentType string) (map[string]*service.OntologyField, error)
}

// RuleComputer combines a unit's own rules with its parent's already
// computed rules. Parent is nil for a root.
type RuleComputer interface {
	Compute(unit *service.ArchiveUnit, parent *service.InheritedRules) (*service.InheritedRules, error)
}

// ReferentialChecker checks archival agreements and agencies, and
// returns the system id of the unit an agreement attaches new root
// units to ("" when there is none).
type ReferentialChecker interface {
	CheckArchivalAgreement(identifier string) error
	CheckAgency(identifier string) error
	LinkParent(archivalAgreement string) (string, error)
}

// VersionChecker validates the versions inside one data object group.
type VersionChecker interface {
	CheckVersions(group *service.DataObjectGroup) error
}

// ObjectChecker verifies a binary object against its payload under
// contentRoot. It may fill in the size and format.
type ObjectChecker interface {
	CheckBinaryObject(obj *service.BinaryObject, contentRoot string) error
}

// ManagementValidator checks a complete management block.
type ManagementValidator interface {
	Validate(management *service.Management) error
}

// UnitCountGuard rejects a manifest once it declares too many units.
type UnitCountGuard interface {
	Check(count int) error
}

// UnitTypeChecker says whether a unit of childType may sit below a
// unit of parentType.
type UnitTypeChecker interface {
	Compatible(parentType, childType string) bool
}

// UnitLookup finds persisted units. Both methods return nil, nil when
// nothing matches.
type UnitLookup interface {
	ByID(systemID string) (*service.ExistingUnit, error)
	ByField(name, value string) (*service.ExistingUnit, error)
}

// Collaborators bundles the external services a parse needs.
type Collaborators struct {
	IDs         IDGenerator
	Ontology    OntologyLookup
	Rules       RuleComputer
	Referential ReferentialChecker
	Versions    VersionChecker
	Objects     ObjectChecker
	Management  ManagementValidator
	UnitCount   UnitCountGuard
	UnitTypes   UnitTypeChecker
	Units       UnitLookup
}

// withDefaults returns a copy with every nil collaborator that has a
// default filled in. Objects and Units stay nil when unset.
func (c *Collaborators) withDefaults() *Collaborators {
	filled := Collaborators{}
	if c != nil {
		filled = *c
	}
	if filled.IDs == nil {
		filled.IDs = NewSequenceGenerator(0)
	}
	if filled.Ontology == nil {
		filled.Ontology = EmptyOntology{}
	}
	if filled.Rules == nil {
		filled.Rules = &RuleInheritance{}
	}
	if filled.Referential == nil {
		filled.Referential = OpenReferential{}
	}
	if filled.Versions == nil {
		filled.Versions = DefaultVersionChecker{}
	}
	if filled.Management == nil {
		filled.Management = NoopManagementValidator{}
	}
	if filled.UnitCount == nil {
		filled.UnitCount = MaxUnitGuard{Max: constants.DefaultUnitMaximum}
	}
	if filled.UnitTypes == nil {
		filled.UnitTypes = DefaultUnitTypeChecker{}
	}
	return &filled
}

// SequenceGenerator is a monotonic IDGenerator safe for concurrent use.
type SequenceGenerator struct {
	last int64
}

// NewSequenceGenerator returns a generator whose first id is start+1.
func NewSequenceGenerator(start int64) *SequenceGenerator {
	return &SequenceGenerator{last: start}
}

func (g *SequenceGenerator) NextID() (int64, error) {
	return atomic.AddInt64(&g.last, 1), nil
}

// IDReserver reserves count ids from a sequence shared by every parser
// process and returns the last id of the reserved block.
type IDReserver interface {
	ReserveIDs(count int64) (int64, error)
}

// BlockIDGenerator hands out ids from blocks reserved through an
// IDReserver, so parsers running anywhere never issue the same id.
type BlockIDGenerator struct {
	blockSize int64
	last      int64
	mutex     sync.Mutex
	next      int64
	reserver  IDReserver
}

// NewBlockIDGenerator returns a generator that reserves blockSize ids
// at a time. A blockSize below one is treated as one.
func NewBlockIDGenerator(reserver IDReserver, blockSize int64) *BlockIDGenerator {
	if blockSize < 1 {
		blockSize = 1
	}
	return &BlockIDGenerator{reserver: reserver, blockSize: blockSize}
}

func (g *BlockIDGenerator) NextID() (int64, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if g.next >= g.last {
		last, err := g.reserver.ReserveIDs(g.blockSize)
		if err != nil {
			return 0, fmt.Errorf("reserve %d ids: %v", g.blockSize, err)
		}
		if last < g.blockSize {
			return 0, fmt.Errorf("reserve %d ids: sequence returned %d", g.blockSize, last)
		}
		g.next = last - g.blockSize
		g.last = last
	}
	g.next++
	return g.next, nil
}

// EmptyOntology declares no fields, so every extended value is kept
// as text.
type EmptyOntology struct{}

func (EmptyOntology) Fields(string) (map[string]*service.OntologyField, error) {
	return map[string]*service.OntologyField{}, nil
}

// OpenReferential accepts every agreement and agency and has no link
// parent.
type OpenReferential struct{}

func (OpenReferential) CheckArchivalAgreement(string) error { return nil }
func (OpenReferential) CheckAgency(string) error            { return nil }
func (OpenReferential) LinkParent(string) (string, error)   { return "", nil }

type NoopManagementValidator struct{}

func (NoopManagementValidator) Validate(*service.Management) error { return nil }

// MaxUnitGuard fails once count exceeds Max.
type MaxUnitGuard struct {
	Max int
}

func (g MaxUnitGuard) Check(count int) error {
	if g.Max > 0 && count > g.Max {
		return fmt.Errorf("manifest declares more than %d archive units", g.Max)
	}
	return nil
}

// DefaultVersionChecker rejects two objects with the same version in
// one group.
type DefaultVersionChecker struct{}

func (DefaultVersionChecker) CheckVersions(group *service.DataObjectGroup) error {
	seen := make(map[string]string, group.ObjectCount())
	for _, obj := range group.BinaryObjects {
		if other, exists := seen[obj.Version]; exists {
			return fmt.Errorf("version %s is used by both '%s' and '%s'", obj.Version, other, obj.XMLID)
		}
		seen[obj.Version] = obj.XMLID
	}
	for _, obj := range group.PhysicalObjects {
		if other, exists := seen[obj.Version]; exists {
			return fmt.Errorf("version %s is used by both '%s' and '%s'", obj.Version, other, obj.XMLID)
		}
		seen[obj.Version] = obj.XMLID
	}
	return nil
}

var unitTypeRank = map[string]int{
	constants.UnitTypeHolding: 0,
	constants.UnitTypeFiling:  1,
	constants.UnitTypeIngest:  2,
}

// DefaultUnitTypeChecker allows holding above filing above ingest, and
// never the other way around.
type DefaultUnitTypeChecker struct{}

func (DefaultUnitTypeChecker) Compatible(parentType, childType string) bool {
	parentRank, parentKnown := unitTypeRank[parentType]
	childRank, childKnown := unitTypeRank[childType]
	if !parentKnown || !childKnown {
		return false
	}
	return parentRank <= childRank
}
