package ingest

import (
	"github.com/APTrust/transfer-services/constants"
	"github.com/APTrust/transfer-services/models/service"
	"github.com/samber/lo"
)

// AggregateQualifiers summarizes group's objects for unit. Binary
// objects are bucketed by the qualifier of their version, in order of
// first appearance. All physical objects share one PhysicalMaster
// bucket. Buckets are appended to the unit's list; existing buckets
// are left alone.
func AggregateQualifiers(group *service.DataObjectGroup, unit *service.ArchiveUnit) {
	labels := lo.Uniq(lo.Map(group.BinaryObjects, func(obj *service.BinaryObject, _ int) string {
		return service.QualifierOf(obj.Version)
	}))
	for _, label := range labels {
		members := lo.Filter(group.BinaryObjects, func(obj *service.BinaryObject, _ int) bool {
			return service.QualifierOf(obj.Version) == label
		})
		unit.Qualifiers = append(unit.Qualifiers, &service.Qualifier{
			Name:  label,
			Count: len(members),
			Versions: lo.Map(members, func(obj *service.BinaryObject, _ int) *service.VersionProjection {
				return obj.Project()
			}),
		})
	}
	if len(group.PhysicalObjects) > 0 {
		unit.Qualifiers = append(unit.Qualifiers, &service.Qualifier{
			Name:  constants.QualifierPhysical,
			Count: len(group.PhysicalObjects),
			Versions: lo.Map(group.PhysicalObjects, func(obj *service.PhysicalObject, _ int) *service.VersionProjection {
				return obj.Project()
			}),
		})
	}
}
