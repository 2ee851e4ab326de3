package datamodel

// Global attribute IDs. ClusterRevision and FeatureMap are stored on every
// cluster; the list-valued globals are computed by the cluster server.
const (
	GlobalAttrClusterRevision      AttributeID = 0xFFFD
	GlobalAttrFeatureMap           AttributeID = 0xFFFC
	GlobalAttrAttributeList        AttributeID = 0xFFFB
	GlobalAttrAcceptedCommandList  AttributeID = 0xFFF9
	GlobalAttrGeneratedCommandList AttributeID = 0xFFF8
)

// IsGlobalAttribute reports whether id is in the global attribute range.
func IsGlobalAttribute(id AttributeID) bool {
	return id >= GlobalAttrGeneratedCommandList && id <= GlobalAttrClusterRevision
}

// CreateGlobalAttributes adds the FeatureMap and ClusterRevision
// attributes. Both are read-only and volatile.
func (c *Cluster) CreateGlobalAttributes(revision uint16, features uint32) error {
	if _, err := c.CreateAttribute(GlobalAttrFeatureMap, AttributeFlagNone, Bitmap32(features)); err != nil {
		return err
	}
	_, err := c.CreateAttribute(GlobalAttrClusterRevision, AttributeFlagNone, Uint16(revision))
	return err
}

// FeatureMap returns the stored FeatureMap, or zero when the cluster has
// none.
func (c *Cluster) FeatureMap() uint32 {
	a := c.Attribute(GlobalAttrFeatureMap)
	if a == nil {
		return 0
	}
	v, err := a.Value().AsBitmap32()
	if err != nil {
		return 0
	}
	return v
}
