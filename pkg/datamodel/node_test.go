package datamodel

import (
	"errors"
	"sync"
	"testing"
)

func TestNode_CreateEndpoint(t *testing.T) {
	node := NewNode()

	for want := EndpointID(0); want < 3; want++ {
		ep, err := node.CreateEndpoint(EndpointFlagNone)
		if err != nil {
			t.Fatalf("CreateEndpoint() failed: %v", err)
		}
		if ep.ID() != want {
			t.Errorf("CreateEndpoint().ID() = %v, want %v", ep.ID(), want)
		}
	}

	if node.EndpointCount() != 3 {
		t.Errorf("EndpointCount() = %v, want 3", node.EndpointCount())
	}
	if node.MinUnusedEndpointID() != 3 {
		t.Errorf("MinUnusedEndpointID() = %v, want 3", node.MinUnusedEndpointID())
	}
}

func TestNode_CreateEndpoint_Limit(t *testing.T) {
	node := NewNodeWithConfig(NodeConfig{MaxEndpoints: 1})

	if _, err := node.CreateEndpoint(EndpointFlagNone); err != nil {
		t.Fatalf("CreateEndpoint() failed: %v", err)
	}
	if _, err := node.CreateEndpoint(EndpointFlagNone); !errors.Is(err, ErrEndpointLimit) {
		t.Errorf("CreateEndpoint() over limit = %v, want ErrEndpointLimit", err)
	}
}

func TestNode_IDsNeverReused(t *testing.T) {
	node := NewNode()
	node.CreateEndpoint(EndpointFlagNone)
	ep1, _ := node.CreateEndpoint(EndpointFlagDestroyable)

	if err := node.DestroyEndpoint(ep1.ID()); err != nil {
		t.Fatalf("DestroyEndpoint() failed: %v", err)
	}

	ep2, _ := node.CreateEndpoint(EndpointFlagNone)
	if ep2.ID() != 2 {
		t.Errorf("CreateEndpoint() after destroy = %v, want 2", ep2.ID())
	}
}

func TestNode_DestroyEndpoint(t *testing.T) {
	node := NewNode()
	root, _ := node.CreateEndpoint(EndpointFlagNone)

	if err := node.DestroyEndpoint(root.ID()); !errors.Is(err, ErrEndpointNotDestroyable) {
		t.Errorf("DestroyEndpoint(root) = %v, want ErrEndpointNotDestroyable", err)
	}
	if err := node.DestroyEndpoint(99); !errors.Is(err, ErrEndpointNotFound) {
		t.Errorf("DestroyEndpoint(99) = %v, want ErrEndpointNotFound", err)
	}
}

func TestNode_ResumeEndpoint(t *testing.T) {
	node := NewNodeWithConfig(NodeConfig{MinUnusedEndpointID: 5})

	ep, err := node.ResumeEndpoint(3, EndpointFlagNone)
	if err != nil {
		t.Fatalf("ResumeEndpoint(3) failed: %v", err)
	}
	if ep.ID() != 3 {
		t.Errorf("ResumeEndpoint(3).ID() = %v, want 3", ep.ID())
	}

	if _, err := node.ResumeEndpoint(3, EndpointFlagNone); !errors.Is(err, ErrEndpointExists) {
		t.Errorf("ResumeEndpoint(duplicate) = %v, want ErrEndpointExists", err)
	}
	if _, err := node.ResumeEndpoint(5, EndpointFlagNone); !errors.Is(err, ErrEndpointNotAllocated) {
		t.Errorf("ResumeEndpoint(5) = %v, want ErrEndpointNotAllocated", err)
	}
}

func TestNode_EndpointsCreationOrder(t *testing.T) {
	node := NewNodeWithConfig(NodeConfig{MinUnusedEndpointID: 10})

	node.ResumeEndpoint(7, EndpointFlagNone)
	node.CreateEndpoint(EndpointFlagNone)
	node.ResumeEndpoint(2, EndpointFlagNone)

	endpoints := node.Endpoints()
	expectedOrder := []EndpointID{7, 10, 2}
	if len(endpoints) != len(expectedOrder) {
		t.Fatalf("len(Endpoints()) = %v, want %v", len(endpoints), len(expectedOrder))
	}
	for i, ep := range endpoints {
		if ep.ID() != expectedOrder[i] {
			t.Errorf("endpoints[%d].ID() = %v, want %v", i, ep.ID(), expectedOrder[i])
		}
	}
}

func TestNode_AttributeValue(t *testing.T) {
	node := NewNode()
	ep, _ := node.CreateEndpoint(EndpointFlagNone)
	c, _ := ep.CreateCluster(0x0038, ClusterFlagServer)
	c.CreateAttribute(GlobalAttrFeatureMap, AttributeFlagNone, Bitmap32(0x2))

	path := ConcreteAttributePath{Endpoint: 0, Cluster: 0x0038, Attribute: GlobalAttrFeatureMap}
	v, err := node.AttributeValue(path)
	if err != nil {
		t.Fatalf("AttributeValue() failed: %v", err)
	}
	if got, _ := v.AsBitmap32(); got != 0x2 {
		t.Errorf("AsBitmap32() = %v, want 2", got)
	}

	tests := []struct {
		name string
		path ConcreteAttributePath
		want error
	}{
		{"missing endpoint", ConcreteAttributePath{Endpoint: 9, Cluster: 0x0038}, ErrEndpointNotFound},
		{"missing cluster", ConcreteAttributePath{Endpoint: 0, Cluster: 0x0031}, ErrClusterNotFound},
		{"missing attribute", ConcreteAttributePath{Endpoint: 0, Cluster: 0x0038, Attribute: 0x42}, ErrAttributeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := node.AttributeValue(tt.path); !errors.Is(err, tt.want) {
				t.Errorf("AttributeValue() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNode_AttributeChangeListener(t *testing.T) {
	node := NewNode()
	ep, _ := node.CreateEndpoint(EndpointFlagNone)
	c, _ := ep.CreateCluster(0x0030, ClusterFlagServer)
	c.CreateAttribute(0x0000, AttributeFlagWritable, Uint64(0))

	listener := &recordingListener{}
	node.SetAttributeChangeListener(listener)

	path := ConcreteAttributePath{Endpoint: 0, Cluster: 0x0030, Attribute: 0x0000}
	before := c.DataVersion()

	if err := node.SetAttributeValue(path, Uint64(7)); err != nil {
		t.Fatalf("SetAttributeValue() failed: %v", err)
	}
	// Same value again must not notify.
	if err := node.SetAttributeValue(path, Uint64(7)); err != nil {
		t.Fatalf("SetAttributeValue() failed: %v", err)
	}

	if len(listener.paths) != 1 || listener.paths[0] != path {
		t.Errorf("listener paths = %v, want [%v]", listener.paths, path)
	}
	if c.DataVersion() != before+1 {
		t.Errorf("DataVersion() = %v, want %v", c.DataVersion(), before+1)
	}

	if err := node.RestoreAttributeValue(path, Uint64(9)); err != nil {
		t.Fatalf("RestoreAttributeValue() failed: %v", err)
	}
	if len(listener.paths) != 1 {
		t.Errorf("RestoreAttributeValue() notified listener")
	}
}

func TestNode_EndpointAllocationListener(t *testing.T) {
	node := NewNode()
	listener := &recordingListener{}
	node.SetAttributeChangeListener(listener)

	node.CreateEndpoint(EndpointFlagNone)
	node.CreateEndpoint(EndpointFlagNone)

	if listener.next != 2 {
		t.Errorf("OnEndpointIDAllocated() last = %v, want 2", listener.next)
	}
}

func TestNode_ConcurrentAccess(t *testing.T) {
	node := NewNode()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ep, err := node.CreateEndpoint(EndpointFlagNone)
			if err != nil {
				t.Errorf("CreateEndpoint() failed: %v", err)
				return
			}
			ep.CreateCluster(0x0006, ClusterFlagServer)
			node.Endpoints()
		}()
	}

	wg.Wait()

	if node.EndpointCount() != 10 {
		t.Errorf("EndpointCount() = %v, want 10", node.EndpointCount())
	}
}

type recordingListener struct {
	mu    sync.Mutex
	paths []ConcreteAttributePath
	next  EndpointID
}

func (l *recordingListener) OnAttributeChanged(path ConcreteAttributePath) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, path)
}

func (l *recordingListener) OnEndpointIDAllocated(next EndpointID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next = next
}
