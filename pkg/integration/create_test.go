package integration

import (
	"testing"

	"github.com/backkem/espmatter/pkg/clusters/generalcommissioning"
	nc "github.com/backkem/espmatter/pkg/clusters/networkcommissioning"
	"github.com/backkem/espmatter/pkg/datamodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGeneralCommissioningCluster(t *testing.T) {
	node := datamodel.NewNode()
	root, err := node.CreateEndpoint(datamodel.EndpointFlagNone)
	require.NoError(t, err)

	c, err := CreateGeneralCommissioningCluster(root)
	require.NoError(t, err)
	assert.True(t, c.HasServer())

	crumb := c.Attribute(generalcommissioning.AttrBreadcrumb)
	require.NotNil(t, crumb)
	assert.True(t, crumb.HasFlag(datamodel.AttributeFlagNonVolatile|datamodel.AttributeFlagWritable))
	assert.NotNil(t, c.Attribute(datamodel.GlobalAttrClusterRevision))

	_, err = CreateGeneralCommissioningCluster(root)
	assert.ErrorIs(t, err, datamodel.ErrAttributeExists)
}

func TestCreateNetworkCommissioningCluster_FeatureConditional(t *testing.T) {
	tests := []struct {
		name     string
		features uint32
		wireless bool
		thread   bool
	}{
		{"ethernet", nc.FeatureEthernetNetworkInterface, false, false},
		{"wifi", nc.FeatureWiFiNetworkInterface, true, false},
		{"thread", nc.FeatureThreadNetworkInterface, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := datamodel.NewNode()
			ep, err := node.CreateEndpoint(datamodel.EndpointFlagNone)
			require.NoError(t, err)

			c, err := CreateNetworkCommissioningCluster(ep, NetworkCommissioningAttributes{
				Features:    tt.features,
				MaxNetworks: 1,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.features, c.FeatureMap())
			assert.NotNil(t, c.Attribute(nc.AttrMaxNetworks))
			assert.NotNil(t, c.Attribute(nc.AttrLastNetworkingStatus))
			assert.Equal(t, tt.wireless, c.Attribute(nc.AttrScanMaxTimeSeconds) != nil)
			assert.Equal(t, tt.wireless, c.Attribute(nc.AttrConnectMaxTimeSeconds) != nil)
			assert.Equal(t, tt.thread, c.Attribute(nc.AttrThreadVersion) != nil)
			assert.Nil(t, c.Attribute(nc.AttrNetworks), "lists are served by the instance")
		})
	}
}
