package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/backkem/espmatter/pkg/clusters/generalcommissioning"
	nc "github.com/backkem/espmatter/pkg/clusters/networkcommissioning"
	"github.com/backkem/espmatter/pkg/clusters/timesync"
	"github.com/backkem/espmatter/pkg/datamodel"
	"github.com/backkem/espmatter/pkg/drivers"
	"github.com/backkem/espmatter/pkg/integration"
	"github.com/backkem/espmatter/pkg/registry"
	"github.com/backkem/espmatter/pkg/storage"
	"github.com/pion/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultBuildConfig = `
general_commissioning: true
network_commissioning:
  wifi:
    enabled: true
    endpoint: 0
time_sync:
  enabled: true
  features: [ntp_client, time_zone]
  supports_dns_resolve: true
`

// Simulated Thread network joined by --commission.
const (
	simThreadExtPanID uint64 = 0xDEAD00BEEF00CAFE
	simThreadName            = "espmatter-sim"
)

type options struct {
	buildConfig    string
	storagePath    string
	logLevel       string
	metricsAddr    string
	wifiSSID       string
	wifiPassphrase string
	commission     bool
	once           bool
}

func parseLogLevel(s string) (logging.LogLevel, error) {
	switch strings.ToLower(s) {
	case "disabled":
		return logging.LogLevelDisabled, nil
	case "error":
		return logging.LogLevelError, nil
	case "warn":
		return logging.LogLevelWarn, nil
	case "info":
		return logging.LogLevelInfo, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "trace":
		return logging.LogLevelTrace, nil
	default:
		return logging.LogLevelDisabled, fmt.Errorf("unknown log level %q", s)
	}
}

// simulated holds the backends behind the drivers so --commission can
// bring links up.
type simulated struct {
	wifi     *drivers.SimWiFi
	thread   *drivers.SimThread
	ethernet *drivers.SimEthernet
}

type app struct {
	opts options
	cfg  *integration.BuildConfig
	lf   logging.LoggerFactory
	log  logging.LeveledLogger

	node      *datamodel.Node
	persister *storage.Persister
	registry  *registry.Registry
	promReg   *prometheus.Registry
	callbacks *integration.Callbacks
	sim       simulated

	gencomm  *integration.GeneralCommissioning
	netcomm  *integration.NetworkCommissioning
	timeSync *integration.TimeSync
}

func loadBuildConfig(path string) (*integration.BuildConfig, error) {
	if path == "" {
		return integration.ParseBuildConfig([]byte(defaultBuildConfig))
	}
	return integration.LoadBuildConfig(path)
}

func newApp(opts options) (*app, error) {
	level, err := parseLogLevel(opts.logLevel)
	if err != nil {
		return nil, err
	}
	lf := logging.NewDefaultLoggerFactory()
	lf.DefaultLogLevel = level

	cfg, err := loadBuildConfig(opts.buildConfig)
	if err != nil {
		return nil, err
	}

	var store storage.Store = storage.NewMemoryStore()
	if opts.storagePath != "" {
		store = storage.NewFileStore(opts.storagePath)
	}
	persister, err := storage.NewPersister(storage.Config{Store: store, LoggerFactory: lf})
	if err != nil {
		return nil, err
	}

	nodeCfg := cfg.NodeConfig()
	nodeCfg.MinUnusedEndpointID = persister.NodeConfig().MinUnusedEndpointID

	a := &app{
		opts:      opts,
		cfg:       cfg,
		lf:        lf,
		log:       lf.NewLogger("node"),
		node:      datamodel.NewNodeWithConfig(nodeCfg),
		persister: persister,
		registry:  registry.New(registry.Config{LoggerFactory: lf}),
		promReg:   prometheus.NewRegistry(),
	}
	persister.Attach(a.node)

	netCfg, err := a.newDrivers()
	if err != nil {
		return nil, err
	}
	if err := a.buildDataModel(netCfg); err != nil {
		return nil, fmt.Errorf("build data model: %w", err)
	}
	a.log.Infof("restored %d persisted attributes", persister.Restore(a.node))

	if err := a.newFamilies(netCfg); err != nil {
		return nil, err
	}
	return a, nil
}

// newDrivers creates a simulated-backend driver per enabled technology.
func (a *app) newDrivers() (*integration.NetworkCommissioningConfig, error) {
	netCfg := &integration.NetworkCommissioningConfig{}
	for _, tech := range a.cfg.NetworkCommissioning.Enabled() {
		endpoint, _ := a.cfg.NetworkCommissioning.Endpoint(tech)

		var d nc.Driver
		var err error
		switch tech {
		case integration.TechnologyThread:
			a.sim.thread = drivers.NewSimThread(nc.ThreadScanResult{
				PanID:         0x1234,
				ExtendedPanID: simThreadExtPanID,
				NetworkName:   simThreadName,
				Channel:       15,
				Version:       drivers.DefaultThreadVersion,
			})
			d, err = drivers.NewThreadNode(drivers.ThreadConfig{Backend: a.sim.thread, LoggerFactory: a.lf})
		case integration.TechnologyWiFi:
			a.sim.wifi = drivers.NewSimWiFi(drivers.SimAccessPoint{
				SSID:       a.opts.wifiSSID,
				Passphrase: a.opts.wifiPassphrase,
				Channel:    6,
				Band:       nc.WiFiBand2G4,
				RSSI:       -48,
			})
			d, err = drivers.NewWiFiStation(drivers.WiFiConfig{Backend: a.sim.wifi, LoggerFactory: a.lf})
		case integration.TechnologyEthernet:
			a.sim.ethernet = drivers.NewSimEthernet()
			d, err = drivers.NewEthernet(drivers.EthernetConfig{Backend: a.sim.ethernet, LoggerFactory: a.lf})
		}
		if err != nil {
			return nil, fmt.Errorf("%s driver: %w", tech, err)
		}
		if err := netCfg.Enable(tech, endpoint, d); err != nil {
			return nil, err
		}
	}
	return netCfg, nil
}

// buildDataModel creates the endpoints the build configuration names.
// Endpoint IDs below the persisted watermark are resumed, the rest are
// allocated.
func (a *app) buildDataModel(netCfg *integration.NetworkCommissioningConfig) error {
	last := datamodel.RootEndpointID
	for _, iface := range netCfg.Interfaces() {
		if iface.Endpoint > last {
			last = iface.Endpoint
		}
	}

	watermark := a.node.MinUnusedEndpointID()
	for id := datamodel.RootEndpointID; id <= last; id++ {
		var err error
		if id < watermark {
			_, err = a.node.ResumeEndpoint(id, datamodel.EndpointFlagNone)
		} else {
			_, err = a.node.CreateEndpoint(datamodel.EndpointFlagNone)
		}
		if err != nil {
			return fmt.Errorf("endpoint %d: %w", id, err)
		}
	}

	root := a.node.Endpoint(datamodel.RootEndpointID)
	if a.cfg.GeneralCommissioning {
		if _, err := integration.CreateGeneralCommissioningCluster(root); err != nil {
			return err
		}
	}
	if a.cfg.TimeSync.Enabled {
		if _, err := integration.CreateTimeSyncCluster(root, a.cfg.TimeSync.Attributes()); err != nil {
			return err
		}
	}
	for _, iface := range netCfg.Interfaces() {
		attrs := integration.NetworkCommissioningAttributes{
			Features:    nc.FeaturesFor(iface.Driver),
			MaxNetworks: iface.Driver.MaxNetworks(),
		}
		if w, ok := iface.Driver.(nc.WirelessDriver); ok {
			attrs.ScanMaxTimeSeconds = w.ScanMaxTimeSeconds()
			attrs.ConnectMaxTimeSeconds = w.ConnectMaxTimeSeconds()
		}
		if t, ok := iface.Driver.(nc.ThreadDriver); ok {
			attrs.SupportedThreadFeatures = t.SupportedThreadFeatures()
			attrs.ThreadVersion = t.ThreadVersion()
		}
		if _, err := integration.CreateNetworkCommissioningCluster(a.node.Endpoint(iface.Endpoint), attrs); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) newFamilies(netCfg *integration.NetworkCommissioningConfig) error {
	metrics, err := integration.NewMetrics(a.promReg)
	if err != nil {
		return err
	}
	a.callbacks, err = integration.NewCallbacks(integration.CallbacksConfig{Topology: a.node, LoggerFactory: a.lf})
	if err != nil {
		return err
	}

	if a.cfg.GeneralCommissioning {
		a.gencomm, err = integration.NewGeneralCommissioning(integration.GeneralCommissioningConfig{
			Cluster: generalcommissioning.Config{
				BasicCommissioningInfo: generalcommissioning.BasicCommissioningInfo{
					FailSafeExpiryLengthSeconds:  60,
					MaxCumulativeFailsafeSeconds: 900,
				},
				LocationCapability: generalcommissioning.RegulatoryIndoorOutdoor,
			},
			Topology:      a.node,
			Registry:      a.registry,
			Metrics:       metrics,
			LoggerFactory: a.lf,
		})
		if err != nil {
			return err
		}
		a.callbacks.Add(a.gencomm)
		netCfg.Breadcrumb = a.gencomm.Breadcrumb()
	}

	if a.cfg.TimeSync.Enabled {
		a.timeSync, err = integration.NewTimeSync(integration.TimeSyncConfig{
			Accessor:      a.node,
			Topology:      a.node,
			Registry:      a.registry,
			Metrics:       metrics,
			LoggerFactory: a.lf,
		})
		if err != nil {
			return err
		}
		a.callbacks.Add(a.timeSync)
	}

	if len(netCfg.Interfaces()) > 0 {
		netCfg.Topology = a.node
		netCfg.Registry = a.registry
		netCfg.Metrics = metrics
		netCfg.LoggerFactory = a.lf
		a.netcomm, err = integration.NewNetworkCommissioning(*netCfg)
		if err != nil {
			return err
		}
		a.callbacks.Add(a.netcomm)
	}
	return nil
}

func (a *app) start(ctx context.Context) error {
	if err := a.registry.Start(ctx); err != nil {
		return err
	}
	// Failed endpoints are logged by the callbacks; the rest keep running.
	if err := a.callbacks.PluginInitAll(); err != nil {
		a.log.Warnf("%d cluster lifecycle step(s) failed during bring-up", failures(err))
	}
	return nil
}

// failures counts the errors joined into err.
func failures(err error) int {
	if err == nil {
		return 0
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		n := 0
		for _, e := range j.Unwrap() {
			n += failures(e)
		}
		return n
	}
	return 1
}

func (a *app) stop() error {
	err := a.callbacks.ShutdownAll(registry.ClusterShutdown)
	a.registry.Stop()
	return errors.Join(err, a.persister.Err())
}

// commission adds and connects the simulated network of every live
// network commissioning instance.
func (a *app) commission(ctx context.Context) error {
	if a.netcomm == nil {
		return nil
	}
	var breadcrumb uint64
	for _, ep := range a.node.Endpoints() {
		c := a.netcomm.Cluster(ep.ID())
		if c == nil {
			continue
		}
		breadcrumb++
		crumb := breadcrumb

		var networkID []byte
		var resp nc.NetworkConfigResponse
		var err error
		switch c.Driver().(type) {
		case nc.WiFiDriver:
			networkID = []byte(a.opts.wifiSSID)
			resp, err = c.AddOrUpdateWiFiNetwork(nc.AddOrUpdateWiFiNetworkRequest{
				SSID:        networkID,
				Credentials: []byte(a.opts.wifiPassphrase),
				Breadcrumb:  &crumb,
			})
		case nc.ThreadDriver:
			networkID = binary.BigEndian.AppendUint64(nil, simThreadExtPanID)
			resp, err = c.AddOrUpdateThreadNetwork(nc.AddOrUpdateThreadNetworkRequest{
				OperationalDataset: simThreadDataset(),
				Breadcrumb:         &crumb,
			})
		default:
			a.sim.ethernet.SetLink(true)
			continue
		}
		if err != nil {
			return err
		}
		if resp.NetworkingStatus != nc.StatusSuccess {
			return fmt.Errorf("endpoint %d: add network: %s %s", ep.ID(), resp.NetworkingStatus, resp.DebugText)
		}

		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		cr, err := c.ConnectNetwork(connectCtx, nc.ConnectNetworkRequest{NetworkID: networkID, Breadcrumb: &crumb})
		cancel()
		if err != nil {
			return err
		}
		a.log.Infof("endpoint %d: connect %s", ep.ID(), cr.NetworkingStatus)
	}

	if a.gencomm != nil {
		if gc := a.gencomm.Cluster(); gc != nil {
			path := datamodel.ConcreteAttributePath{
				Endpoint:  datamodel.RootEndpointID,
				Cluster:   generalcommissioning.ClusterID,
				Attribute: generalcommissioning.AttrBreadcrumb,
			}
			return a.node.SetAttributeValue(path, datamodel.Uint64(gc.Breadcrumb()))
		}
	}
	return nil
}

// simThreadDataset encodes the extended PAN ID and network name TLVs of
// the simulated Thread network.
func simThreadDataset() []byte {
	ds := []byte{0x02, 0x08}
	ds = binary.BigEndian.AppendUint64(ds, simThreadExtPanID)
	ds = append(ds, 0x03, byte(len(simThreadName)))
	return append(ds, simThreadName...)
}

func clusterName(id datamodel.ClusterID) string {
	switch id {
	case generalcommissioning.ClusterID:
		return "GeneralCommissioning"
	case nc.ClusterID:
		return "NetworkCommissioning"
	case timesync.ClusterID:
		return "TimeSynchronization"
	default:
		return fmt.Sprintf("0x%04X", uint32(id))
	}
}

func (a *app) printState(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENDPOINT\tCLUSTER\tFEATURES\tDATA VERSION")
	for _, c := range a.registry.Clusters() {
		for _, p := range c.Paths() {
			fmt.Fprintf(tw, "%d\t%s\t0x%X\t%d\n", p.Endpoint, clusterName(p.Cluster), c.FeatureMap(), c.DataVersion())
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if a.netcomm != nil {
		for _, ep := range a.node.Endpoints() {
			c := a.netcomm.Cluster(ep.ID())
			if c == nil {
				continue
			}
			status := "none"
			if s := c.LastNetworkingStatus(); s != nil {
				status = s.String()
			}
			fmt.Fprintf(w, "endpoint %d: %d network(s), last status %s\n", ep.ID(), len(c.Networks()), status)
		}
	}
	if a.gencomm != nil {
		if gc := a.gencomm.Cluster(); gc != nil {
			fmt.Fprintf(w, "breadcrumb: %d\n", gc.Breadcrumb())
		}
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log logging.LeveledLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server: %v", err)
		}
	}()
	return srv
}

func run(ctx context.Context, opts options, out io.Writer) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}

	if opts.metricsAddr != "" {
		srv := serveMetrics(opts.metricsAddr, a.promReg, a.log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := a.start(ctx); err != nil {
		return err
	}
	if opts.commission {
		if err := a.commission(ctx); err != nil {
			a.log.Errorf("commissioning failed: %v", err)
		}
	}
	if err := a.printState(out); err != nil {
		return err
	}

	if !opts.once {
		<-ctx.Done()
		a.log.Info("shutting down")
	}
	return a.stop()
}
