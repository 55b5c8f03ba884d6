package sim

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/rtt.go/pkg/panicrtt"
	"github.com/robotalks/rtt.go/pkg/rtt"
	"github.com/robotalks/rtt.go/pkg/rtt/probe"
)

type fakeIteration struct {
	now  time.Time
	num  uint64
	next bool
}

func (i *fakeIteration) Context() context.Context { return context.Background() }
func (i *fakeIteration) Time() time.Time          { return i.now }
func (i *fakeIteration) Iteration() uint64        { return i.num }
func (i *fakeIteration) TriggerNext()             { i.next = true }

func boot(t *testing.T, cfg Config) (*Firmware, *probe.Probe) {
	mem := rtt.NewMemory(0x20000000, 16*1024)
	fw, err := Boot(mem, cfg)
	require.NoError(t, err)
	p, err := probe.Attach(context.Background(), mem, mem.Base(), uint32(mem.Size()), 0)
	require.NoError(t, err)
	return fw, p
}

func drain(t *testing.T, p *probe.Probe, channel int) string {
	buf := make([]byte, 2048)
	n, err := p.ReadUp(channel, buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func TestFirmwareLayout(t *testing.T) {
	_, p := boot(t, DefaultConfig())
	up, down := p.Channels()
	require.Len(t, up, 2)
	require.Len(t, down, 1)
	assert.Equal(t, "Terminal", up[TerminalChannel].Name)
	assert.Equal(t, rtt.TrimOnFull, up[TerminalChannel].Mode)
	assert.Equal(t, "Log", up[LogChannel].Name)
	assert.Equal(t, rtt.SkipOnFull, up[LogChannel].Mode)
	assert.Equal(t, uint32(16), down[0].Size)
}

func TestFirmwareHeartbeatAndEcho(t *testing.T) {
	fw, p := boot(t, DefaultConfig())
	start := time.Unix(100, 0)
	iter := &fakeIteration{now: start}
	require.NoError(t, fw.Control(iter))
	assert.True(t, strings.HasPrefix(drain(t, p, TerminalChannel), "boot: control block at 0x2000"))

	_, err := p.WriteDown(0, []byte("hi\n"))
	require.NoError(t, err)
	iter.num, iter.now = 1, start.Add(500*time.Millisecond)
	require.NoError(t, fw.Control(iter))
	assert.True(t, iter.next)
	assert.Equal(t, "hi\n", drain(t, p, TerminalChannel))

	iter.num, iter.now = 2, start.Add(time.Second)
	require.NoError(t, fw.Control(iter))
	assert.Equal(t, "heartbeat 1\n", drain(t, p, TerminalChannel))
	assert.Equal(t, "uptime=1s echoed=3\n", drain(t, p, LogChannel))
	assert.Equal(t, uint64(1), fw.Beats())
}

func TestFirmwarePanicIsReported(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Heartbeat = 0
	cfg.PanicAfter = time.Millisecond
	cfg.TerminalSize = 8192
	fw, p := boot(t, cfg)

	halted := make(chan struct{})
	orig := panicrtt.Halt
	panicrtt.Halt = func() { close(halted) }
	defer func() { panicrtt.Halt = orig }()

	require.NoError(t, fw.Run(context.Background()))
	<-halted
	out := drain(t, p, TerminalChannel)
	assert.Contains(t, out, "panicked: simulated fault after ")
	assert.Equal(t, rtt.BlockOnFull, fw.Channels.Up[TerminalChannel].Mode())
}
