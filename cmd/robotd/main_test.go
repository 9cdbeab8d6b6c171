package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sweeney/robot-subsystems/internal/alert"
	"github.com/sweeney/robot-subsystems/internal/config"
	"github.com/sweeney/robot-subsystems/internal/feeder"
	"github.com/sweeney/robot-subsystems/internal/launcher"
	"github.com/sweeney/robot-subsystems/internal/mqtt"
	"github.com/sweeney/robot-subsystems/internal/robot"
	"github.com/sweeney/robot-subsystems/internal/scheduler"
	"github.com/sweeney/robot-subsystems/internal/status"
	"github.com/sweeney/robot-subsystems/internal/subsystem"
	"github.com/sweeney/robot-subsystems/internal/telemetry"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "PitWifi")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}
	want := status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "PitWifi",
	}
	if *info != want {
		t.Errorf("got %+v, want %+v", *info, want)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	if info := readNetworkInfo(); info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

// --- config ---

func TestLoadConfigForceSim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robot.yaml")
	data := "version: \"1.0\"\nmode: hardware\nfeeder:\n  motor:\n    endpoint: a:502\nlauncher:\n  motor:\n    endpoint: b:502\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path, false)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Mode != config.ModeHardware {
		t.Errorf("Mode: got %q, want hardware", cfg.Mode)
	}

	cfg, err = loadConfig(path, true)
	if err != nil {
		t.Fatalf("loadConfig -sim: %v", err)
	}
	if cfg.Mode != config.ModeSim {
		t.Errorf("Mode with -sim: got %q, want sim", cfg.Mode)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Setenv("ROBOT_MODE", "warp")
	if _, err := loadConfig("", false); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestExitCode(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	if code := exitCode(base, nil); code != 0 {
		t.Errorf("clean run: got %d, want 0", code)
	}
	if logs.Len() != 0 {
		t.Errorf("clean run should log nothing, got %d entries", logs.Len())
	}

	if code := exitCode(base, errors.New("listen tcp :8080: address in use")); code != 1 {
		t.Errorf("failed run: got %d, want 1", code)
	}
	entries := logs.FilterMessage("fatal").All()
	if len(entries) != 1 {
		t.Fatalf("fatal entries: got %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["error"]; got != "listen tcp :8080: address in use" {
		t.Errorf("error field: got %v", got)
	}
}

func TestBaseSinks(t *testing.T) {
	sinks, rec := baseSinks(false)
	if len(sinks) != 0 || rec != nil {
		t.Errorf("daemon run should not record inputs: %d sinks, recorder %v", len(sinks), rec)
	}

	sinks, rec = baseSinks(true)
	if rec == nil || len(sinks) != 1 {
		t.Fatalf("print run: %d sinks, recorder %v", len(sinks), rec)
	}
	sinks.ProcessInputs("Feeder", feeder.Inputs{MotorConnected: true})
	if _, ok := rec.Latest("Feeder"); !ok {
		t.Error("recorder should see inputs sent to the sinks")
	}
}

func TestPrintCycleSim(t *testing.T) {
	cfg := config.Default()
	base := zap.NewNop()
	fio, lio, hw, err := buildIO(cfg, base)
	if err != nil {
		t.Fatal(err)
	}
	rec := telemetry.NewRecorder(0)
	deps := subsystem.Deps{Telemetry: rec}
	sched := scheduler.New(cfg.LoopPeriod(), nil, nil)
	sched.Register(feeder.New(fio, cfg.FeederSetpoints(), deps), launcher.New(lio, cfg.LauncherSetpoints(), deps))

	var out bytes.Buffer
	if err := printCycle(sched, rec, hw, &out); err != nil {
		t.Fatal(err)
	}

	var parsed map[string]map[string]any
	if err := json.Unmarshal(out.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	for _, ns := range []string{"Feeder", "Launcher"} {
		if parsed[ns]["motor_connected"] != true {
			t.Errorf("%s: motor_connected = %v", ns, parsed[ns]["motor_connected"])
		}
	}
}

// --- runLoop tests ---

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Not safe for concurrent use (only called from runLoop's goroutine).
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

type loopFixture struct {
	deps       loopDeps
	pub        *mqtt.FakePublisher
	feederIO   *feeder.FakeIO
	launcherIO *launcher.FakeIO
	alerts     *alert.Group
}

func newLoopFixture(heartbeat time.Duration, clock func() time.Time) *loopFixture {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pub := mqtt.NewFakePublisher()
	alerts := alert.NewGroup()
	deps := subsystem.Deps{
		Telemetry: telemetry.NewPublisherSink(pub, nil),
		Alerts:    alerts,
	}

	fio := feeder.NewFakeIO()
	lio := launcher.NewFakeIO()
	r := robot.New(
		feeder.New(fio, feeder.DefaultSetpoints(), deps),
		launcher.New(lio, launcher.DefaultSetpoints(), deps),
		alerts, nil)

	sched := scheduler.New(20*time.Millisecond, func() time.Time { return start }, nil)
	sched.Register(r.Subsystems()...)

	return &loopFixture{
		deps: loopDeps{
			sched:      sched,
			robot:      r,
			publisher:  pub,
			mqttStatus: pub,
			tracker:    status.NewTracker(start, status.Config{Broker: "tcp://test:1883"}, alerts),
			heartbeat:  heartbeat,
			now:        clock,
			logger:     zap.NewNop().Sugar(),
		},
		pub:        pub,
		feederIO:   fio,
		launcherIO: lio,
		alerts:     alerts,
	}
}

// runRunLoop drives runLoop for nTicks, hands each tick index to between
// (which may submit requests), then sends signal and waits for it to return.
func runRunLoop(t *testing.T, fx *loopFixture, nTicks int, between func(i int, requests chan<- robot.Request), signal os.Signal) error {
	t.Helper()
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	requests := make(chan robot.Request)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(fx.deps, tick, sig, requests, nil)
	}()

	for i := 0; i < nTicks; i++ {
		if between != nil {
			between(i, requests)
		}
		tick <- time.Time{}
	}
	sig <- signal

	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("runLoop did not return")
		return nil
	}
}

func submit(t *testing.T, requests chan<- robot.Request, req robot.Request) robot.Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := robot.Submit(ctx, requests, req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return resp
}

func TestRunLoopShutdownSIGTERM(t *testing.T) {
	fx := newLoopFixture(0, fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Second))

	if err := runRunLoop(t, fx, 3, nil, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(fx.pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %v", fx.pub.SystemEventNames())
	}
	ev := fx.pub.SystemEvents[0]
	if ev.Event != "SHUTDOWN" || ev.Reason != "SIGTERM" || !ev.Retained {
		t.Errorf("shutdown event: %+v", ev)
	}

	var parsed status.StatusJSON
	if err := json.Unmarshal(fx.pub.SystemPayloads[0], &parsed); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("payload event/reason: %q/%q", parsed.Status.Event, parsed.Status.Reason)
	}
	if parsed.Status.Loop.Cycles != 3 {
		t.Errorf("payload cycles: got %d, want 3", parsed.Status.Loop.Cycles)
	}
}

func TestRunLoopShutdownSIGINT(t *testing.T) {
	fx := newLoopFixture(0, time.Now)
	if err := runRunLoop(t, fx, 0, nil, syscall.SIGINT); err != nil {
		t.Fatal(err)
	}
	if got := fx.pub.SystemEvents[0].Reason; got != "SIGINT" {
		t.Errorf("reason: got %q, want SIGINT", got)
	}
}

func TestRunLoopPublishesInputsEveryCycle(t *testing.T) {
	fx := newLoopFixture(0, time.Now)

	if err := runRunLoop(t, fx, 3, nil, syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}

	if len(fx.pub.Inputs) != 6 {
		t.Fatalf("inputs published: got %d, want 6", len(fx.pub.Inputs))
	}
	for i, msg := range fx.pub.Inputs {
		want := "Feeder"
		if i%2 == 1 {
			want = "Launcher"
		}
		if msg.Namespace != want {
			t.Errorf("message %d: namespace %q, want %q", i, msg.Namespace, want)
		}
	}
	if fx.feederIO.Updates != 3 || fx.launcherIO.Updates != 3 {
		t.Errorf("updates: feeder=%d launcher=%d, want 3 each", fx.feederIO.Updates, fx.launcherIO.Updates)
	}
}

func TestRunLoopAppliesRequests(t *testing.T) {
	fx := newLoopFixture(0, time.Now)
	var responses []robot.Response

	err := runRunLoop(t, fx, 2, func(i int, requests chan<- robot.Request) {
		if i != 1 {
			return
		}
		responses = append(responses,
			submit(t, requests, robot.NewCommandRequest(robot.Command{Subsystem: "Launcher", State: "LAUNCH"})),
			submit(t, requests, robot.NewModeRequest(robot.ModeEnabled)),
			submit(t, requests, robot.NewCommandRequest(robot.Command{Subsystem: "Launcher", State: "LAUNCH"})),
			submit(t, requests, robot.NewCommandRequest(robot.Command{Subsystem: "Launcher", State: "LAUNCH"})),
		)
	}, syscall.SIGTERM)
	if err != nil {
		t.Fatal(err)
	}

	if !errors.Is(responses[0].Err, robot.ErrDisabled) {
		t.Errorf("LAUNCH while disabled: got %v, want ErrDisabled", responses[0].Err)
	}
	if !responses[1].Changed || !responses[2].Changed {
		t.Errorf("enable and LAUNCH should change state: %+v", responses)
	}
	if responses[3].Changed {
		t.Error("repeated LAUNCH should not change state")
	}

	// One write for LAUNCH, one for the stop on shutdown.
	if got := fx.launcherIO.Writes; len(got) != 2 || got[0] != 100 || got[1] != 0 {
		t.Errorf("launcher writes: got %v, want [100 0]", got)
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	// now() is called once per tick for the heartbeat check and once per
	// published event, one minute apart.
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fx := newLoopFixture(90*time.Second, fakeClock(start, time.Minute))

	if err := runRunLoop(t, fx, 4, nil, syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}

	names := fx.pub.SystemEventNames()
	want := []string{"HEARTBEAT", "HEARTBEAT", "SHUTDOWN"}
	if len(names) != len(want) {
		t.Fatalf("events: got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("events: got %v, want %v", names, want)
		}
	}
	if fx.pub.SystemEvents[0].Retained {
		t.Error("heartbeat should not be retained")
	}
}

func TestRunLoopHeartbeatIncludesNetworkInfo(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkIP, "10.0.0.9")
	fx := newLoopFixture(time.Minute, fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Minute))

	if err := runRunLoop(t, fx, 2, nil, syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}

	var parsed status.StatusJSON
	if err := json.Unmarshal(fx.pub.SystemPayloads[0], &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed.Status.Event != "HEARTBEAT" {
		t.Fatalf("first event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Network == nil || parsed.Status.Network.IP != "10.0.0.9" {
		t.Errorf("network: got %+v", parsed.Status.Network)
	}
}

func TestRunLoopPublishError(t *testing.T) {
	fx := newLoopFixture(0, time.Now)
	fx.pub.PublishSystemError = errors.New("broker down")

	if err := runRunLoop(t, fx, 1, nil, syscall.SIGTERM); err != nil {
		t.Fatalf("publish failure must not fail the loop: %v", err)
	}
}

func TestRunLoopDisconnectAlert(t *testing.T) {
	fx := newLoopFixture(0, time.Now)
	fx.feederIO.Next.MotorConnected = false

	if err := runRunLoop(t, fx, 1, nil, syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}

	active := fx.alerts.Active()
	if len(active) != 1 || active[0].Text != "Feeder motor is disconnected." {
		t.Fatalf("active alerts: %+v", active)
	}
	var parsed status.StatusJSON
	json.Unmarshal(fx.pub.SystemPayloads[0], &parsed)
	if len(parsed.Status.Alerts) != 1 || parsed.Status.Alerts[0].Level != "ERROR" {
		t.Errorf("shutdown payload alerts: %+v", parsed.Status.Alerts)
	}
}

func TestRunLoopWorkerStop(t *testing.T) {
	fx := newLoopFixture(0, time.Now)
	done := make(chan struct{})
	close(done)

	err := runLoop(fx.deps, make(chan time.Time), make(chan os.Signal), make(chan robot.Request), done)
	if err != nil {
		t.Fatal(err)
	}
	if len(fx.pub.SystemEvents) != 1 || fx.pub.SystemEvents[0].Reason != "ERROR" {
		t.Errorf("events: %+v", fx.pub.SystemEvents)
	}
}

func TestRunLoopWithoutBroker(t *testing.T) {
	fx := newLoopFixture(time.Nanosecond, time.Now)
	fx.deps.publisher = nil
	fx.deps.mqttStatus = nil

	if err := runRunLoop(t, fx, 2, nil, syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}
	if len(fx.pub.SystemEvents) != 0 {
		t.Errorf("system events without a publisher: %v", fx.pub.SystemEventNames())
	}
}
