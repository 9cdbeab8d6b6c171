// Package motorctl drives a motor controller over Modbus TCP.
//
// The control loop only touches a cached register model (Set, Status) and
// never waits on the network. Run synchronizes that model with the device
// on its own goroutine: it writes the pending command, polls the status
// block, and reconnects with exponential backoff when the link drops.
package motorctl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/goburrow/modbus"
	"go.uber.org/zap"
)

// Client abstracts the Modbus operations the driver needs.
type Client interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error)
}

// Conn is a connected Client that can be closed.
type Conn interface {
	Client
	Close() error
}

// Dialer opens a new connection to the controller.
type Dialer func() (Conn, error)

// Config is the transport and polling config of one controller.
type Config struct {
	Name         string
	Endpoint     string
	UnitID       uint8
	Timeout      time.Duration
	PollInterval time.Duration
}

// Status is the cached view of the controller.
type Status struct {
	Connected     bool
	Fault         bool
	Velocity      float64 // rps
	Output        float64 // applied duty, [-1, 1]
	SupplyCurrent float64 // amps
	Temperature   float64 // celsius
}

type command struct {
	mode  Mode
	value float64
}

// Driver owns one motor controller.
type Driver struct {
	cfg     Config
	dial    Dialer
	logger  *zap.SugaredLogger
	backoff *backoff.ExponentialBackOff

	mu     sync.Mutex
	status Status
	cmd    command
	dirty  bool

	// owned by the Run goroutine
	conn     Conn
	nextDial time.Time
}

// New creates a driver. Nothing is dialed until Run.
func New(cfg Config, dial Dialer, logger *zap.SugaredLogger) *Driver {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 20 * time.Millisecond
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0 // retry forever

	return &Driver{
		cfg:     cfg,
		dial:    dial,
		logger:  logger,
		backoff: b,
	}
}

// TCPDialer dials cfg.Endpoint with goburrow/modbus.
func TCPDialer(cfg Config) Dialer {
	return func() (Conn, error) {
		h := modbus.NewTCPClientHandler(cfg.Endpoint)
		h.Timeout = cfg.Timeout
		h.SlaveId = cfg.UnitID
		if err := h.Connect(); err != nil {
			return nil, fmt.Errorf("connect %s: %w", cfg.Endpoint, err)
		}
		return &tcpConn{Client: modbus.NewClient(h), handler: h}, nil
	}
}

type tcpConn struct {
	modbus.Client
	handler *modbus.TCPClientHandler
}

func (c *tcpConn) Close() error {
	return c.handler.Close()
}

// Set queues a command. It is written on the next poll, and replayed after
// every reconnect so the controller recovers the last commanded output.
func (d *Driver) Set(mode Mode, value float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	next := command{mode: mode, value: value}
	if next == d.cmd && !d.dirty {
		return
	}
	d.cmd = next
	d.dirty = true
}

// Status returns the cached controller status.
// Connected is false until the first successful poll and after any I/O error.
func (d *Driver) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Name returns the configured controller name.
func (d *Driver) Name() string {
	return d.cfg.Name
}

// Run polls the controller until ctx is cancelled. On exit it commands
// neutral (best effort) and closes the connection.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	defer d.shutdown()

	d.logger.Infof("%s: polling %s every %v", d.cfg.Name, d.cfg.Endpoint, d.cfg.PollInterval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			d.step(now)
		}
	}
}

// step performs one connect/write/poll cycle.
func (d *Driver) step(now time.Time) {
	if d.conn == nil {
		if now.Before(d.nextDial) {
			return
		}
		conn, err := d.dial()
		if err != nil {
			wait := d.backoff.NextBackOff()
			d.nextDial = now.Add(wait)
			d.logger.Warnf("%s: %v (retry in %v)", d.cfg.Name, err, wait.Round(time.Millisecond))
			return
		}
		d.backoff.Reset()
		d.conn = conn
		d.mu.Lock()
		d.dirty = true
		d.mu.Unlock()
		d.logger.Infof("%s: connected to %s", d.cfg.Name, d.cfg.Endpoint)
	}

	d.mu.Lock()
	cmd, dirty := d.cmd, d.dirty
	d.dirty = false
	d.mu.Unlock()

	if dirty {
		if _, err := d.conn.WriteMultipleRegisters(RegControlMode, 2, encodeCommand(cmd.mode, cmd.value)); err != nil {
			d.mu.Lock()
			d.dirty = true
			d.mu.Unlock()
			d.drop(now, fmt.Errorf("write command: %w", err))
			return
		}
	}

	b, err := d.conn.ReadHoldingRegisters(RegStatus, statusBlockLen)
	if err != nil {
		d.drop(now, fmt.Errorf("read status: %w", err))
		return
	}
	st, err := decodeStatus(b)
	if err != nil {
		d.drop(now, err)
		return
	}

	d.mu.Lock()
	d.status = st
	d.mu.Unlock()
}

// drop closes the connection and marks the controller disconnected.
func (d *Driver) drop(now time.Time, cause error) {
	d.logger.Warnf("%s: %v, reconnecting", d.cfg.Name, cause)
	d.conn.Close()
	d.conn = nil
	d.nextDial = now.Add(d.backoff.NextBackOff())

	d.mu.Lock()
	d.status = Status{}
	d.mu.Unlock()
}

func (d *Driver) shutdown() {
	if d.conn == nil {
		return
	}
	if _, err := d.conn.WriteMultipleRegisters(RegControlMode, 2, encodeCommand(ModeNeutral, 0)); err != nil {
		d.logger.Warnf("%s: neutral on shutdown: %v", d.cfg.Name, err)
	}
	if err := d.conn.Close(); err != nil {
		d.logger.Warnf("%s: close: %v", d.cfg.Name, err)
	}
	d.conn = nil
}
