// cmd/bench.go
package cmd

import (
	"math/rand"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvme-qos/nvme-qos/driver"
	"github.com/nvme-qos/nvme-qos/gateway"
	"github.com/nvme-qos/nvme-qos/sched"
)

// TenantSpec describes one tenant to register before the bench run.
type TenantSpec struct {
	FlowID       int64 `yaml:"flow_id"`
	Core         int   `yaml:"core"`
	SLOLatencyUS int64 `yaml:"slo_latency_us"`
	SLOIOPS      int64 `yaml:"slo_iops"`
	RWRatioPct   int   `yaml:"rw_ratio_pct"`
	// RequestsPerSec drives the synthetic workload this tenant generates
	// against the fake driver for the bench's duration.
	RequestsPerSec float64 `yaml:"requests_per_sec"`
}

// BenchConfig is the YAML-loadable configuration for the bench command,
// grouping device-model, core, and tenant-mix knobs by concern.
type BenchConfig struct {
	NumCores    int                      `yaml:"num_cores"`
	DeviceKind  string                   `yaml:"device_kind"` // "default", "fake", "flash_dev_model"
	Calibration []sched.CalibrationPoint `yaml:"calibration"`
	Tenants     []TenantSpec             `yaml:"tenants"`
}

func defaultBenchConfig() BenchConfig {
	return BenchConfig{
		NumCores:   2,
		DeviceKind: "default",
		Tenants: []TenantSpec{
			{FlowID: 1, Core: 0, SLOLatencyUS: 200, SLOIOPS: 10_000, RWRatioPct: 100, RequestsPerSec: 8_000},
			{FlowID: 2, Core: 0, RequestsPerSec: 20_000},
			{FlowID: 3, Core: 1, RequestsPerSec: 20_000},
		},
	}
}

func (c BenchConfig) deviceModelConfig() sched.DeviceModelConfig {
	switch c.DeviceKind {
	case "fake":
		return sched.DeviceModelConfig{Kind: sched.FakeFlash}
	case "flash_dev_model":
		return sched.DeviceModelConfig{Kind: sched.FlashDevModel, Calibration: c.Calibration}
	default:
		return sched.DeviceModelConfig{Kind: sched.DefaultFlash}
	}
}

type silentCallbacks struct{}

func (silentCallbacks) Opened(handle int, nsSize uint64, sectorSize uint32) {}
func (silentCallbacks) Closed(handle int, status sched.Status)              {}
func (silentCallbacks) RegisteredFlow(h sched.TenantHandle, cookie uint64, status sched.Status) {
	if status != sched.StatusOK {
		logrus.Warnf("bench: registration for cookie=%d failed: %s", cookie, status)
	}
}
func (silentCallbacks) UnregisteredFlow(h sched.TenantHandle, status sched.Status) {}
func (silentCallbacks) Response(cookie uint64, buf []byte, status sched.Status)    {}
func (silentCallbacks) Written(cookie uint64, status sched.Status)                {}

var (
	benchConfigPath string
	benchHorizon    time.Duration
	benchTick       time.Duration
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run the scheduler against a synthetic tenant mix on the fake driver",
	Run:   runBench,
}

func init() {
	benchCmd.Flags().StringVar(&benchConfigPath, "config", "", "Path to a YAML bench config (see BenchConfig); defaults to a built-in mix")
	benchCmd.Flags().DurationVar(&benchHorizon, "horizon", 2*time.Second, "Wall-clock duration to run the bench")
	benchCmd.Flags().DurationVar(&benchTick, "tick", 100*time.Microsecond, "Per-core scheduling tick interval")
}

func loadBenchConfig(path string) (BenchConfig, error) {
	if path == "" {
		return defaultBenchConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return BenchConfig{}, err
	}
	var cfg BenchConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return BenchConfig{}, err
	}
	return cfg, nil
}

func runBench(cmd *cobra.Command, args []string) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)

	benchCfg, err := loadBenchConfig(benchConfigPath)
	if err != nil {
		logrus.Fatalf("bench: loading config: %v", err)
	}

	gwCfg := gateway.DefaultConfig()
	gwCfg.NumCores = benchCfg.NumCores
	gwCfg.TickInterval = benchTick

	drv := driver.NewFakeDriver(gwCfg.NamespaceSize, gwCfg.SectorSize, gwCfg.SubmitQueueDepth)
	dev, err := gateway.NewDevice(gwCfg, benchCfg.deviceModelConfig(), drv, silentCallbacks{})
	if err != nil {
		logrus.Fatalf("bench: %v", err)
	}

	logrus.Infof("bench: registering %d tenants across %d cores", len(benchCfg.Tenants), gwCfg.NumCores)

	handles := make(map[int64]sched.TenantHandle, len(benchCfg.Tenants))
	for _, spec := range benchCfg.Tenants {
		h, status := dev.RegisterFlow(sched.TenantConfig{
			FlowID:       spec.FlowID,
			SLOLatencyUS: spec.SLOLatencyUS,
			SLOIOPS:      spec.SLOIOPS,
			RWRatioPct:   spec.RWRatioPct,
		}, spec.Core, uint64(spec.FlowID))
		if status != sched.StatusOK {
			logrus.Fatalf("bench: registering tenant flow=%d: %s", spec.FlowID, status)
		}
		handles[spec.FlowID] = h
	}

	stop := make(chan struct{})
	for _, spec := range benchCfg.Tenants {
		go generateLoad(dev, handles[spec.FlowID], spec, stop)
	}

	logrus.Infof("bench: running for %s", benchHorizon)
	time.Sleep(benchHorizon)
	close(stop)

	dev.Metrics().Print()
}

// generateLoad issues synthetic reads and writes (RWRatioPct percent of
// them reads) against one tenant at roughly RequestsPerSec until stop
// closes, approximating a constant-rate arrival stream against the live
// device.
func generateLoad(dev *gateway.Device, h sched.TenantHandle, spec TenantSpec, stop <-chan struct{}) {
	if spec.RequestsPerSec <= 0 {
		return
	}
	interval := time.Duration(float64(time.Second) / spec.RequestsPerSec)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var cookie uint64
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			cookie++
			op := rand.Intn(100)
			lbaCount := uint32(8)
			if op < spec.RWRatioPct {
				dev.Read(h, 0, lbaCount, cookie)
			} else {
				buf := make([]byte, lbaCount*4096)
				dev.Write(h, buf, 0, lbaCount, cookie)
			}
		}
	}
}
