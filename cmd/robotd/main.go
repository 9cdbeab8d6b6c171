// Command robotd runs the feeder and launcher control loop and serves its
// status over MQTT and HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/robot-subsystems/internal/alert"
	"github.com/sweeney/robot-subsystems/internal/config"
	"github.com/sweeney/robot-subsystems/internal/feeder"
	"github.com/sweeney/robot-subsystems/internal/gpio"
	"github.com/sweeney/robot-subsystems/internal/launcher"
	"github.com/sweeney/robot-subsystems/internal/logger"
	"github.com/sweeney/robot-subsystems/internal/metrics"
	"github.com/sweeney/robot-subsystems/internal/motorctl"
	"github.com/sweeney/robot-subsystems/internal/mqtt"
	"github.com/sweeney/robot-subsystems/internal/robot"
	"github.com/sweeney/robot-subsystems/internal/scheduler"
	"github.com/sweeney/robot-subsystems/internal/status"
	"github.com/sweeney/robot-subsystems/internal/subsystem"
	"github.com/sweeney/robot-subsystems/internal/telemetry"
	"github.com/sweeney/robot-subsystems/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (built-in defaults if empty)")
	forceSim := flag.Bool("sim", false, "Use simulated motors regardless of config")
	printInputs := flag.Bool("print-inputs", false, "Run one control cycle, print subsystem inputs as JSON and exit")

	flag.Parse()

	cfg, err := loadConfig(*configPath, *forceSim)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	base := logger.New(cfg.Log.Level, cfg.Log.Format)
	os.Exit(exitCode(base, run(cfg, *printInputs, base)))
}

// exitCode logs err, flushes base and returns the process exit status.
func exitCode(base *zap.Logger, err error) int {
	code := 0
	if err != nil {
		base.Error("fatal", zap.Error(err))
		code = 1
	}
	_ = base.Sync()
	return code
}

func loadConfig(path string, forceSim bool) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if forceSim {
		cfg.Mode = config.ModeSim
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// hardware is what buildIO opened and run must start and close.
type hardware struct {
	drivers []*motorctl.Driver
	sensor  gpio.Reader
}

func (h *hardware) Close() {
	if h.sensor != nil {
		h.sensor.Close()
	}
}

func buildIO(cfg *config.Config, base *zap.Logger) (feeder.IO, launcher.IO, *hardware, error) {
	hw := &hardware{}
	if cfg.Mode == config.ModeSim {
		return feeder.NewSimIO(cfg.LoopPeriod()), launcher.NewSimIO(cfg.LoopPeriod()), hw, nil
	}

	newDriver := func(name string, m config.MotorConfig) *motorctl.Driver {
		mc := motorctl.Config{
			Name:         name,
			Endpoint:     m.Endpoint,
			UnitID:       m.UnitID,
			Timeout:      m.Timeout(),
			PollInterval: m.PollInterval(),
		}
		d := motorctl.New(mc, motorctl.TCPDialer(mc), logger.For(base, "motorctl").With("motor", name))
		hw.drivers = append(hw.drivers, d)
		return d
	}
	feederMotor := newDriver(feeder.Name, cfg.Feeder.Motor)
	launcherMotor := newDriver(launcher.Name, cfg.Launcher.Motor)

	if s := cfg.Feeder.Sensor; s.Line != nil {
		r, err := gpio.NewRealReader(s.Chip, *s.Line, s.ActiveLow)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("init piece sensor: %w", err)
		}
		hw.sensor = r
	}

	fio := feeder.NewHardwareIO(feederMotor, hw.sensor, logger.For(base, "feeder"))
	lio := launcher.NewHardwareIO(launcherMotor)
	return fio, lio, hw, nil
}

func run(cfg *config.Config, printInputs bool, base *zap.Logger) error {
	log := logger.For(base, "robotd")

	fio, lio, hw, err := buildIO(cfg, base)
	if err != nil {
		return err
	}
	defer hw.Close()

	alerts := alert.NewGroup()
	alerts.OnChange = func(a alert.Status, active bool) {
		metrics.SetAlert(a.Text, a.Level.String(), active)
		if active {
			log.Warnw("alert raised", "alert", a.Text, "level", a.Level.String())
		} else {
			log.Infow("alert cleared", "alert", a.Text)
		}
	}

	// Telemetry sinks: a recorder for -print-inputs, MQTT when a broker is
	// configured on a long-running daemon.
	sinks, recorder := baseSinks(printInputs)
	var publisher *mqtt.RealPublisher
	if cfg.MQTT.Broker != "" && !printInputs {
		publisher = mqtt.NewRealPublisher(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			BufferSize: cfg.MQTT.BufferSize,
		}, logger.For(base, "mqtt"))
		defer publisher.Close()
		sinks = append(sinks, telemetry.NewPublisherSink(publisher, logger.For(base, "telemetry")))
	}

	f := feeder.New(fio, cfg.FeederSetpoints(), subsystem.Deps{
		Telemetry: sinks, Alerts: alerts, Logger: logger.For(base, "feeder"),
	})
	l := launcher.New(lio, cfg.LauncherSetpoints(), subsystem.Deps{
		Telemetry: sinks, Alerts: alerts, Logger: logger.For(base, "launcher"),
	})
	r := robot.New(f, l, alerts, logger.For(base, "robot"))

	sched := scheduler.New(cfg.LoopPeriod(), time.Now, logger.For(base, "scheduler"))
	sched.Register(r.Subsystems()...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range hw.drivers {
		g.Go(func() error { return d.Run(gctx) })
	}

	if printInputs {
		err := printCycle(sched, recorder, hw, os.Stdout)
		cancel()
		return errors.Join(err, g.Wait())
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		Version:      cfg.Version,
		RunMode:      cfg.Mode,
		LoopPeriodMs: int64(cfg.LoopPeriodMs),
		HeartbeatMs:  int64(cfg.MQTT.HeartbeatMs),
		Broker:       cfg.MQTT.Broker,
		HTTPAddr:     cfg.HTTP.Addr,
	}, alerts)
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.Update(string(r.Mode()), r.Statuses(), sched.Stats())

	deps := loopDeps{
		sched:     sched,
		robot:     r,
		tracker:   tracker,
		heartbeat: cfg.Heartbeat(),
		now:       time.Now,
		logger:    log,
	}
	if publisher != nil {
		deps.publisher = publisher
		deps.mqttStatus = publisher
	}

	// Publish startup event with full status snapshot
	publishSystem(deps, "STARTUP", "")

	requests := make(chan robot.Request)
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, requests, logger.For(base, "web"))
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
		log.Infow("http status server listening", "addr", cfg.HTTP.Addr)
	}

	log.Infow("started",
		"mode", cfg.Mode, "period", cfg.LoopPeriod(), "broker", cfg.MQTT.Broker, "heartbeat", cfg.Heartbeat())

	ticker := time.NewTicker(cfg.LoopPeriod())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	loopErr := runLoop(deps, ticker.C, sigCh, requests, gctx.Done())
	cancel()
	return errors.Join(loopErr, g.Wait())
}

// printCycle lets the drivers settle, runs one cycle and prints each
// subsystem's inputs.
// baseSinks returns the telemetry sinks every run starts with. Only a
// -print-inputs run keeps snapshots in memory.
func baseSinks(printInputs bool) (telemetry.Multi, *telemetry.Recorder) {
	if !printInputs {
		return telemetry.Multi{}, nil
	}
	recorder := telemetry.NewRecorder(64)
	return telemetry.Multi{recorder}, recorder
}

func printCycle(sched *scheduler.Scheduler, recorder *telemetry.Recorder, hw *hardware, out io.Writer) error {
	if len(hw.drivers) > 0 {
		time.Sleep(500 * time.Millisecond)
	}
	sched.RunOnce()

	snapshot := make(map[string]any)
	for _, ns := range []string{feeder.Name, launcher.Name} {
		if inputs, ok := recorder.Latest(ns); ok {
			snapshot[ns] = inputs
		}
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode inputs: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

type loopDeps struct {
	sched      *scheduler.Scheduler
	robot      *robot.Robot
	publisher  mqtt.Publisher // nil: no broker
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	heartbeat  time.Duration
	now        func() time.Time
	logger     *zap.SugaredLogger
}

// runLoop owns the robot. Every cycle, command and mode change happens on
// this goroutine.
func runLoop(d loopDeps, tick <-chan time.Time, sig <-chan os.Signal, requests <-chan robot.Request, done <-chan struct{}) error {
	ctx := context.Background()

	for {
		select {
		case s := <-sig:
			d.logger.Infow("shutting down", "signal", s.String())
			shutdown(d, signalName(s))
			return nil

		case <-done:
			d.logger.Warnw("worker stopped, shutting down")
			shutdown(d, "ERROR")
			return nil

		case req := <-requests:
			d.robot.Handle(ctx, req)
			refresh(d)

		case <-tick:
			d.sched.RunOnce()
			refresh(d)

			if hb := d.sched.CheckHeartbeat(d.now(), d.heartbeat); hb != nil {
				d.logger.Infow("heartbeat",
					"uptime", hb.Uptime, "cycles", hb.Stats.Cycles, "overruns", hb.Stats.Overruns)
				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					d.tracker.SetNetwork(net)
				}
				publishSystem(d, "HEARTBEAT", "")
			}
		}
	}
}

// refresh copies robot and connection state into the tracker.
func refresh(d loopDeps) {
	if d.tracker == nil {
		return
	}
	d.tracker.Update(string(d.robot.Mode()), d.robot.Statuses(), d.sched.Stats())
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

// shutdown stops every subsystem before reporting SHUTDOWN, so the last
// published snapshot shows the robot stopped.
func shutdown(d loopDeps, reason string) {
	d.robot.Shutdown()
	refresh(d)
	publishSystem(d, "SHUTDOWN", reason)
}

func publishSystem(d loopDeps, event, reason string) {
	if d.publisher == nil {
		return
	}
	e := mqtt.SystemEvent{
		Timestamp: d.now(),
		Event:     event,
		Reason:    reason,
		Retained:  event != "HEARTBEAT",
	}
	if d.tracker != nil {
		e.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), event, reason)
	}
	if err := d.publisher.PublishSystem(e); err != nil {
		d.logger.Warnw("failed to publish system event", "event", event, "error", err)
		return
	}
	d.logger.Infow("published system event", "event", event)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
