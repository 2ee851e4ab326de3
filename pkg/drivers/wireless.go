package drivers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	nc "github.com/backkem/espmatter/pkg/clusters/networkcommissioning"
	"github.com/pion/logging"
)

// LinkEvent is a link state change reported by a backend.
type LinkEvent struct {
	Up bool

	// Reason is the technology-specific disconnect reason, set when Up is false.
	Reason int32
}

// ConnectError is a connect failure carrying a technology-specific reason.
type ConnectError struct {
	Status nc.NetworkingStatus
	Reason int32
}

// Error implements error.
func (e *ConnectError) Error() string {
	return fmt.Sprintf("drivers: connect failed: %s (reason %d)", e.Status, e.Reason)
}

// connectResult maps a backend connect error to a ConnectResult.
func connectResult(err error) nc.ConnectResult {
	if err == nil {
		return nc.ConnectResult{Status: nc.StatusSuccess}
	}
	var ce *ConnectError
	if errors.As(err, &ce) {
		reason := ce.Reason
		return nc.ConnectResult{Status: ce.Status, DebugText: err.Error(), ErrorValue: &reason}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return nc.ConnectResult{Status: nc.StatusNetworkNotFound, DebugText: "connect timed out"}
	}
	status, text := nc.StatusFromError(err)
	if status == nc.StatusUnknownError {
		status = nc.StatusOtherConnectionFailure
	}
	return nc.ConnectResult{Status: status, DebugText: text}
}

// wirelessConfig configures the shared wireless driver core.
type wirelessConfig struct {
	maxNetworks    uint8
	scanMaxTime    time.Duration
	connectMaxTime time.Duration
	events         <-chan LinkEvent
	setEnabled     func(bool) error
	log            logging.LeveledLogger
}

// wireless holds the state shared by the Wi-Fi and Thread drivers: the
// network list, the connected network and the goroutines running
// asynchronous operations.
type wireless struct {
	cfg wirelessConfig
	log logging.LeveledLogger

	mu         sync.Mutex
	list       networkList
	connected  []byte
	enabled    bool
	onStatus   nc.StatusChangeCallback
	ctx        context.Context
	cancel     context.CancelFunc
	connecting bool
	scanning   bool
	wg         sync.WaitGroup
}

func newWireless(cfg wirelessConfig) *wireless {
	return &wireless{
		cfg:     cfg,
		log:     cfg.log,
		list:    networkList{max: cfg.maxNetworks},
		enabled: true,
	}
}

func (w *wireless) init(cb nc.StatusChangeCallback) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx != nil {
		return ErrAlreadyInitialized
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.onStatus = cb
	if w.cfg.events != nil {
		w.wg.Add(1)
		go w.watch(w.ctx, w.cfg.events)
	}
	return nil
}

func (w *wireless) shutdown() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.ctx = nil
	w.onStatus = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

// watch forwards link loss to the status callback.
func (w *wireless) watch(ctx context.Context, events <-chan LinkEvent) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.linkChanged(ev)
		}
	}
}

func (w *wireless) linkChanged(ev LinkEvent) {
	w.mu.Lock()
	if ev.Up {
		w.mu.Unlock()
		return
	}
	id := w.connected
	w.connected = nil
	cb := w.onStatus
	w.mu.Unlock()

	if id == nil {
		return
	}
	w.log.Infof("link lost on network %x, reason %d", id, ev.Reason)
	if cb != nil {
		reason := ev.Reason
		cb(nc.StatusOtherConnectionFailure, id, &reason)
	}
}

// start runs op on a driver goroutine. The context passed to op ends on
// Shutdown or after timeout. The function op returns is called once the
// operation is no longer marked in progress.
func (w *wireless) start(flag *bool, timeout time.Duration, op func(ctx context.Context) func()) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx == nil {
		return ErrNotInitialized
	}
	if *flag {
		return ErrBusy
	}
	*flag = true

	parent := w.ctx
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		notify := op(ctx)

		w.mu.Lock()
		*flag = false
		w.mu.Unlock()
		notify()
	}()
	return nil
}

func (w *wireless) initialized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ctx != nil
}

func (w *wireless) maxNetworks() uint8 { return w.cfg.maxNetworks }

func (w *wireless) networks() []nc.NetworkInfo {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.list.info(w.connected)
}

func (w *wireless) isEnabled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enabled
}

func (w *wireless) setEnabled(enabled bool) error {
	if w.cfg.setEnabled != nil {
		if err := w.cfg.setEnabled(enabled); err != nil {
			return err
		}
	}
	w.mu.Lock()
	w.enabled = enabled
	if !enabled {
		w.connected = nil
	}
	w.mu.Unlock()
	return nil
}

func (w *wireless) scanMaxTimeSeconds() uint8 {
	return seconds(w.cfg.scanMaxTime)
}

func (w *wireless) connectMaxTimeSeconds() uint8 {
	return seconds(w.cfg.connectMaxTime)
}

func seconds(d time.Duration) uint8 {
	s := d / time.Second
	if s > 255 {
		return 255
	}
	return uint8(s)
}

func (w *wireless) addOrUpdate(id, credentials []byte) (uint8, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.list.addOrUpdate(id, credentials)
}

func (w *wireless) remove(id []byte) (uint8, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	index, err := w.list.remove(id)
	if err == nil && bytes.Equal(w.connected, id) {
		w.connected = nil
	}
	return index, err
}

func (w *wireless) reorder(id []byte, index uint8) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.list.reorder(id, index)
}

// connect looks up id and runs dial on a driver goroutine, reporting the
// result to cb.
func (w *wireless) connect(id []byte, cb nc.ConnectCallback, dial func(ctx context.Context, n network) error) error {
	w.mu.Lock()
	n, ok := w.list.find(id)
	enabled := w.enabled
	w.mu.Unlock()
	if !ok {
		return nc.NewStatusError(nc.StatusNetworkIDNotFound, "")
	}
	if !enabled {
		return nc.NewStatusError(nc.StatusOtherConnectionFailure, "interface disabled")
	}

	return w.start(&w.connecting, w.cfg.connectMaxTime, func(ctx context.Context) func() {
		err := dial(ctx, n)
		res := connectResult(err)
		if res.Status == nc.StatusSuccess {
			w.mu.Lock()
			w.connected = n.id
			w.mu.Unlock()
			w.log.Infof("connected to network %x", n.id)
		} else {
			w.log.Warnf("connect to network %x failed: %v", n.id, err)
		}
		return func() { cb(res) }
	})
}
