// Package sim runs a simulated firmware producing and consuming channel
// data, so the host tooling can be exercised without hardware.
package sim

import (
	"context"
	"fmt"
	"time"

	fx "github.com/robotalks/rtt.go/pkg/framework"
	"github.com/robotalks/rtt.go/pkg/panicrtt"
	"github.com/robotalks/rtt.go/pkg/rtt"
)

// Channel numbers of the simulated firmware.
const (
	TerminalChannel = 0
	LogChannel      = 1
)

// Config configures the simulated firmware.
type Config struct {
	// Mode of the terminal channel.
	Mode rtt.Mode
	// TerminalSize and LogSize are the up buffer sizes.
	TerminalSize int
	LogSize      int
	// InputSize is the down buffer size of the terminal.
	InputSize int
	// Tick is the main loop interval.
	Tick time.Duration
	// Heartbeat is the interval of heartbeat prints, 0 disables them.
	Heartbeat time.Duration
	// PanicAfter panics the main loop after running this long, 0 never.
	PanicAfter time.Duration
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		Mode:         rtt.DefaultMode,
		TerminalSize: 1024,
		LogSize:      512,
		InputSize:    16,
		Tick:         time.Millisecond,
		Heartbeat:    time.Second,
	}
}

// ChannelConfig returns the channel layout of the firmware.
func (c Config) ChannelConfig() rtt.Config {
	return rtt.Config{
		Up: []rtt.ChannelConfig{
			{Name: "Terminal", Size: c.TerminalSize, Mode: c.Mode},
			{Name: "Log", Size: c.LogSize, Mode: rtt.SkipOnFull},
		},
		Down: []rtt.ChannelConfig{
			{Name: "Terminal", Size: c.InputSize, Mode: rtt.DefaultMode},
		},
	}
}

// Firmware is the simulated target. Its main loop prints a heartbeat
// through the print functions, echoes terminal input back and logs
// statistics on the log channel.
type Firmware struct {
	Config   Config
	Channels *rtt.Channels

	start    time.Time
	lastBeat time.Time
	beats    uint64
	echoed   uint64
	input    []byte
}

// Boot initializes the control block in mem and installs the terminal
// as print channel.
func Boot(mem *rtt.Memory, cfg Config) (*Firmware, error) {
	chs, err := rtt.Init(mem, cfg.ChannelConfig())
	if err != nil {
		return nil, err
	}
	rtt.SetPrintChannel(chs.Up[TerminalChannel])
	return &Firmware{
		Config:   cfg,
		Channels: chs,
		input:    make([]byte, cfg.InputSize),
	}, nil
}

// Name implements framework.Named.
func (f *Firmware) Name() string {
	return "firmware"
}

// Run implements framework.Runnable. A panic in the main loop is reported
// on the terminal channel before the firmware halts.
func (f *Firmware) Run(ctx context.Context) error {
	defer panicrtt.Handler()
	return fx.NewLoop(f.Config.Tick, f).Run(ctx)
}

// Control implements framework.Controller, one pass of the main loop.
func (f *Firmware) Control(ctx fx.ControlContext) error {
	now := ctx.Time()
	if ctx.Iteration() == 0 {
		f.start, f.lastBeat = now, now
		rtt.Printf("boot: control block at 0x%08x\n", f.Channels.Block.Addr())
	}
	if n := f.Channels.Down[TerminalChannel].Read(f.input); n > 0 {
		rtt.PrintWriter().Write(f.input[:n])
		f.echoed += uint64(n)
		// more input may be pending.
		ctx.TriggerNext()
	}
	if hb := f.Config.Heartbeat; hb > 0 && now.Sub(f.lastBeat) >= hb {
		f.lastBeat = now
		f.beats++
		rtt.Printf("heartbeat %d\n", f.beats)
		f.Channels.Up[LogChannel].Printf("uptime=%s echoed=%d\n",
			now.Sub(f.start).Truncate(time.Millisecond), f.echoed)
	}
	if pa := f.Config.PanicAfter; pa > 0 && now.Sub(f.start) >= pa {
		panic(fmt.Sprintf("simulated fault after %d iterations", ctx.Iteration()))
	}
	return nil
}

// Beats returns the number of heartbeats printed.
func (f *Firmware) Beats() uint64 {
	return f.beats
}
