package datamodel

import (
	"errors"
	"testing"
)

func TestIsGlobalAttribute(t *testing.T) {
	for _, id := range []AttributeID{GlobalAttrClusterRevision, GlobalAttrFeatureMap, GlobalAttrAttributeList, GlobalAttrGeneratedCommandList} {
		if !IsGlobalAttribute(id) {
			t.Errorf("IsGlobalAttribute(0x%04X) = false", uint32(id))
		}
	}
	for _, id := range []AttributeID{0, 0x0031, 0xFFF7, 0xFFFE} {
		if IsGlobalAttribute(id) {
			t.Errorf("IsGlobalAttribute(0x%04X) = true", uint32(id))
		}
	}
}

func TestCluster_CreateGlobalAttributes(t *testing.T) {
	n := NewNode()
	ep, err := n.CreateEndpoint(EndpointFlagNone)
	if err != nil {
		t.Fatal(err)
	}
	c, err := ep.CreateCluster(0x0038, ClusterFlagServer)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.FeatureMap(); got != 0 {
		t.Errorf("FeatureMap() before creation = %d, want 0", got)
	}

	if err := c.CreateGlobalAttributes(2, 0x0B); err != nil {
		t.Fatalf("CreateGlobalAttributes() error = %v", err)
	}
	if got := c.FeatureMap(); got != 0x0B {
		t.Errorf("FeatureMap() = 0x%X, want 0x0B", got)
	}
	rev, err := n.AttributeValue(ConcreteAttributePath{Endpoint: ep.ID(), Cluster: 0x0038, Attribute: GlobalAttrClusterRevision})
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := rev.AsUint16(); v != 2 {
		t.Errorf("ClusterRevision = %d, want 2", v)
	}

	if err := c.CreateGlobalAttributes(2, 0); !errors.Is(err, ErrAttributeExists) {
		t.Errorf("second CreateGlobalAttributes() error = %v, want ErrAttributeExists", err)
	}
}

func TestConcreteAttributePath_String(t *testing.T) {
	p := ConcreteAttributePath{Endpoint: 1, Cluster: 0x0031, Attribute: 0x0004}
	if got := p.String(); got != "1/0x0031/0x0004" {
		t.Errorf("String() = %q, want %q", got, "1/0x0031/0x0004")
	}
	if got := p.ClusterPath().String(); got != "1/0x0031" {
		t.Errorf("ClusterPath().String() = %q, want %q", got, "1/0x0031")
	}
}
