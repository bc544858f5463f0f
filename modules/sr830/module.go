// Package sr830 drives a Stanford Research SR830 lock-in amplifier over a
// GPIB-LAN gateway speaking raw SCPI on a TCP socket. Sensitivity and time
// constant are written once at create time; reads snap the configured
// output channel.
package sr830

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vk/gofsrs/internal/ctxlog"
	"github.com/vk/gofsrs/internal/device"
	"github.com/vk/gofsrs/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config defines the rig-file arguments of the driver.
type Config struct {
	// Address is the host:port of the GPIB-LAN gateway.
	Address string `hcl:"address"`
	// Channel selects the snapped output: x, y, r or theta.
	Channel string `hcl:"channel,optional"`
	// Sensitivity is the SENS index (0 = 2 nV ... 26 = 1 V).
	Sensitivity *int `hcl:"sensitivity,optional"`
	// TimeConstant is the OFLT index (0 = 10 us ... 19 = 30 ks).
	TimeConstant *int `hcl:"time_constant,optional"`
	// WaitMillis delays each read so the output can settle after a stage
	// move; keep it at a few time constants.
	WaitMillis int `hcl:"wait_ms,optional"`
	// DialTimeoutMillis bounds the initial connection attempt.
	DialTimeoutMillis int `hcl:"dial_timeout_ms,optional"`
}

// channelIndex maps the config channel names onto OUTP? arguments.
var channelIndex = map[string]int{
	"x": 1, "y": 2, "r": 3, "theta": 4,
}

// LockIn is a connected SR830 instance.
type LockIn struct {
	name    string
	channel int
	wait    time.Duration

	mu   sync.Mutex
	conn net.Conn
	rd   *bufio.Reader
}

// Dial connects to the instrument and applies the configured settings.
func Dial(ctx context.Context, name string, cfg *Config) (*LockIn, error) {
	channel := strings.ToLower(cfg.Channel)
	if channel == "" {
		channel = "r"
	}
	chIdx, ok := channelIndex[channel]
	if !ok {
		return nil, fmt.Errorf("sr830 %q: unknown channel %q (want x, y, r or theta)", name, cfg.Channel)
	}

	dialTimeout := 5 * time.Second
	if cfg.DialTimeoutMillis > 0 {
		dialTimeout = time.Duration(cfg.DialTimeoutMillis) * time.Millisecond
	}

	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("sr830 %q: failed to connect to %s: %w", name, cfg.Address, err)
	}

	li := &LockIn{
		name:    name,
		channel: chIdx,
		wait:    time.Duration(cfg.WaitMillis) * time.Millisecond,
		conn:    conn,
		rd:      bufio.NewReader(conn),
	}

	if err := li.writeSettings(ctx, cfg); err != nil {
		conn.Close()
		return nil, err
	}
	return li, nil
}

// writeSettings pushes sensitivity and time constant to the instrument.
func (l *LockIn) writeSettings(ctx context.Context, cfg *Config) error {
	logger := ctxlog.FromContext(ctx)
	if cfg.Sensitivity != nil {
		if *cfg.Sensitivity < 0 || *cfg.Sensitivity > 26 {
			return fmt.Errorf("sr830 %q: sensitivity index %d out of range 0..26", l.name, *cfg.Sensitivity)
		}
		if err := l.send(fmt.Sprintf("SENS %d", *cfg.Sensitivity)); err != nil {
			return err
		}
		logger.Debug("Lock-in sensitivity set.", "device", l.name, "index", *cfg.Sensitivity)
	}
	if cfg.TimeConstant != nil {
		if *cfg.TimeConstant < 0 || *cfg.TimeConstant > 19 {
			return fmt.Errorf("sr830 %q: time constant index %d out of range 0..19", l.name, *cfg.TimeConstant)
		}
		if err := l.send(fmt.Sprintf("OFLT %d", *cfg.TimeConstant)); err != nil {
			return err
		}
		logger.Debug("Lock-in time constant set.", "device", l.name, "index", *cfg.TimeConstant)
	}
	return nil
}

// Name implements device.Device.
func (l *LockIn) Name() string { return l.name }

// Close implements device.Device.
func (l *LockIn) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.Close()
}

// Read implements device.Input: it waits the configured settling time and
// snaps the selected output channel.
func (l *LockIn) Read(ctx context.Context) (float64, error) {
	if l.wait > 0 {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(l.wait):
		}
	}

	line, err := l.query(ctx, fmt.Sprintf("OUTP? %d", l.channel))
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil {
		return 0, fmt.Errorf("sr830 %q: unparseable reply %q: %w", l.name, line, err)
	}
	return v, nil
}

// send writes a bare command terminated with a newline.
func (l *LockIn) send(cmd string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := fmt.Fprintf(l.conn, "%s\n", cmd); err != nil {
		return fmt.Errorf("sr830 %q: write failed: %w", l.name, err)
	}
	return nil
}

// query writes a command and reads one newline-terminated reply.
func (l *LockIn) query(ctx context.Context, cmd string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		l.conn.SetDeadline(deadline)
	} else {
		l.conn.SetDeadline(time.Now().Add(10 * time.Second))
	}
	defer l.conn.SetDeadline(time.Time{})

	if _, err := fmt.Fprintf(l.conn, "%s\n", cmd); err != nil {
		return "", fmt.Errorf("sr830 %q: write failed: %w", l.name, err)
	}
	line, err := l.rd.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("sr830 %q: read failed: %w", l.name, err)
	}
	return line, nil
}

// Register registers the driver with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterDevice("sr830", &registry.RegisteredDevice{
		NewConfig: func() any { return new(Config) },
		Create: func(ctx context.Context, name string, cfg any) (device.Device, error) {
			return Dial(ctx, name, cfg.(*Config))
		},
	})
}
