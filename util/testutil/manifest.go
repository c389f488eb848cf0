package testutil

import (
	"io"
	"strings"

	"github.com/beevik/etree"
)

// NamespaceSeda21 is the namespace test manifests use by default.
const NamespaceSeda21 = "fr:gouv:culture:archivesdefrance:seda:v2.1"

// ManifestBuilder assembles archive transfer manifests for tests.
// Elements are written in the order the builder methods are called,
// so tests can place groups before or after the units that use them.
type ManifestBuilder struct {
	Doc         *etree.Document
	Root        *etree.Element
	Package     *etree.Element
	descriptive *etree.Element
}

// NewManifestBuilder returns a builder for a transfer whose root
// element declares namespace.
func NewManifestBuilder(namespace string) *ManifestBuilder {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("ArchiveTransfer")
	root.CreateAttr("xmlns", namespace)
	root.CreateElement("Date").SetText("2024-03-01T10:00:00")
	root.CreateElement("MessageIdentifier").SetText("test-message")
	return &ManifestBuilder{
		Doc:     doc,
		Root:    root,
		Package: root.CreateElement("DataObjectPackage"),
	}
}

// Text adds a leaf element with the given text below parent.
func (b *ManifestBuilder) Text(parent *etree.Element, tag, text string) *etree.Element {
	el := parent.CreateElement(tag)
	el.SetText(text)
	return el
}

// AddGroup adds an explicit DataObjectGroup to the package.
func (b *ManifestBuilder) AddGroup(id string) *etree.Element {
	group := b.Package.CreateElement("DataObjectGroup")
	group.CreateAttr("id", id)
	return group
}

// AddBinary adds a BinaryDataObject below parent, which is either a
// group or, for legacy manifests, the package itself. An empty
// version is left out.
func (b *ManifestBuilder) AddBinary(parent *etree.Element, id, version string) *etree.Element {
	obj := parent.CreateElement("BinaryDataObject")
	obj.CreateAttr("id", id)
	if version != "" {
		b.Text(obj, "DataObjectVersion", version)
	}
	return obj
}

// AddPhysical adds a PhysicalDataObject below parent.
func (b *ManifestBuilder) AddPhysical(parent *etree.Element, id, version string) *etree.Element {
	obj := parent.CreateElement("PhysicalDataObject")
	obj.CreateAttr("id", id)
	if version != "" {
		b.Text(obj, "DataObjectVersion", version)
	}
	return obj
}

// AddUnit adds an ArchiveUnit below parent, or at the top of
// DescriptiveMetadata when parent is nil. A non-empty title creates
// the unit's Content block.
func (b *ManifestBuilder) AddUnit(parent *etree.Element, id, title string) *etree.Element {
	if parent == nil {
		parent = b.Descriptive()
	}
	unit := parent.CreateElement("ArchiveUnit")
	unit.CreateAttr("id", id)
	if title != "" {
		b.Text(b.Content(unit), "Title", title)
	}
	return unit
}

// AddAlias adds a unit that only refers to target.
func (b *ManifestBuilder) AddAlias(parent *etree.Element, id, target string) *etree.Element {
	if parent == nil {
		parent = b.Descriptive()
	}
	unit := parent.CreateElement("ArchiveUnit")
	unit.CreateAttr("id", id)
	b.Text(unit, "ArchiveUnitRefId", target)
	return unit
}

// Descriptive returns the DescriptiveMetadata element, creating it on
// first use.
func (b *ManifestBuilder) Descriptive() *etree.Element {
	if b.descriptive == nil {
		b.descriptive = b.Package.CreateElement("DescriptiveMetadata")
	}
	return b.descriptive
}

// Content returns the unit's Content element, creating it if needed.
func (b *ManifestBuilder) Content(unit *etree.Element) *etree.Element {
	if content := unit.SelectElement("Content"); content != nil {
		return content
	}
	return unit.CreateElement("Content")
}

// Management returns the unit's Management element, creating it as the
// unit's first child if needed.
func (b *ManifestBuilder) Management(unit *etree.Element) *etree.Element {
	if management := unit.SelectElement("Management"); management != nil {
		return management
	}
	management := etree.NewElement("Management")
	unit.InsertChildAt(0, management)
	return management
}

// RefGroup makes unit point at a group.
func (b *ManifestBuilder) RefGroup(unit *etree.Element, groupID string) {
	ref := unit.CreateElement("DataObjectReference")
	b.Text(ref, "DataObjectGroupReferenceId", groupID)
}

// RefObject makes unit point at a single data object.
func (b *ManifestBuilder) RefObject(unit *etree.Element, objectID string) {
	ref := unit.CreateElement("DataObjectReference")
	b.Text(ref, "DataObjectReferenceId", objectID)
}

// String returns the serialized manifest.
func (b *ManifestBuilder) String() string {
	b.Doc.Indent(2)
	xml, err := b.Doc.WriteToString()
	if err != nil {
		panic(err)
	}
	return xml
}

// Reader returns the serialized manifest as a reader.
func (b *ManifestBuilder) Reader() io.Reader {
	return strings.NewReader(b.String())
}
