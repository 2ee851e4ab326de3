package drivers

import (
	"bytes"

	nc "github.com/backkem/espmatter/pkg/clusters/networkcommissioning"
)

// network is one commissioned network.
type network struct {
	id          []byte
	credentials []byte
}

// networkList is the ordered, bounded list of commissioned networks.
// Callers hold the driver lock.
type networkList struct {
	max     uint8
	entries []network
}

func (l *networkList) index(id []byte) int {
	for i, n := range l.entries {
		if bytes.Equal(n.id, id) {
			return i
		}
	}
	return -1
}

func (l *networkList) find(id []byte) (network, bool) {
	i := l.index(id)
	if i < 0 {
		return network{}, false
	}
	return l.entries[i], true
}

// addOrUpdate replaces the credentials of an existing network or appends a
// new one.
func (l *networkList) addOrUpdate(id, credentials []byte) (uint8, error) {
	creds := append([]byte(nil), credentials...)
	if i := l.index(id); i >= 0 {
		l.entries[i].credentials = creds
		return uint8(i), nil
	}
	if len(l.entries) >= int(l.max) {
		return 0, nc.NewStatusError(nc.StatusBoundsExceeded, "network list full")
	}
	l.entries = append(l.entries, network{id: append([]byte(nil), id...), credentials: creds})
	return uint8(len(l.entries) - 1), nil
}

func (l *networkList) remove(id []byte) (uint8, error) {
	i := l.index(id)
	if i < 0 {
		return 0, nc.NewStatusError(nc.StatusNetworkIDNotFound, "")
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return uint8(i), nil
}

func (l *networkList) reorder(id []byte, index uint8) error {
	i := l.index(id)
	if i < 0 {
		return nc.NewStatusError(nc.StatusNetworkIDNotFound, "")
	}
	if int(index) >= len(l.entries) {
		return nc.NewStatusError(nc.StatusOutOfRange, "index beyond list")
	}
	n := l.entries[i]
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	l.entries = append(l.entries[:index], append([]network{n}, l.entries[index:]...)...)
	return nil
}

func (l *networkList) info(connected []byte) []nc.NetworkInfo {
	out := make([]nc.NetworkInfo, 0, len(l.entries))
	for _, n := range l.entries {
		out = append(out, nc.NetworkInfo{
			NetworkID: append([]byte(nil), n.id...),
			Connected: connected != nil && bytes.Equal(n.id, connected),
		})
	}
	return out
}
