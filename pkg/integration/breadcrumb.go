package integration

import (
	"github.com/backkem/espmatter/pkg/clusters/generalcommissioning"
	nc "github.com/backkem/espmatter/pkg/clusters/networkcommissioning"
)

// BreadcrumbTracker forwards breadcrumbs to the General Commissioning
// cluster returned by its accessor. It holds no state of its own; when the
// accessor yields nil the breadcrumb is dropped.
type BreadcrumbTracker struct {
	cluster func() *generalcommissioning.Cluster
}

var _ nc.BreadcrumbTracker = (*BreadcrumbTracker)(nil)

// NewBreadcrumbTracker creates a tracker over accessor.
func NewBreadcrumbTracker(accessor func() *generalcommissioning.Cluster) *BreadcrumbTracker {
	return &BreadcrumbTracker{cluster: accessor}
}

// SetBreadcrumb implements networkcommissioning.BreadcrumbTracker.
func (b *BreadcrumbTracker) SetBreadcrumb(value uint64) {
	if b == nil || b.cluster == nil {
		return
	}
	if c := b.cluster(); c != nil {
		c.SetBreadcrumb(value)
	}
}
