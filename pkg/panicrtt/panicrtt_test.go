package panicrtt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/rtt.go/pkg/rtt"
	"github.com/robotalks/rtt.go/pkg/rtt/probe"
)

func setup(t *testing.T, cfg rtt.Config) (*rtt.Channels, *probe.Probe) {
	mem := rtt.NewMemory(0x20000000, 128*1024)
	chs, err := rtt.Init(mem, cfg)
	require.NoError(t, err)
	p := probe.New(mem, chs.Block.Addr())
	return chs, p
}

func readAll(t *testing.T, p *probe.Probe) string {
	require.NoError(t, p.Refresh())
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := p.ReadUp(0, buf)
		require.NoError(t, err)
		if n == 0 {
			return string(out)
		}
		out = append(out, buf[:n]...)
	}
}

func TestHandlerReportsAndHalts(t *testing.T) {
	chs, p := setup(t, rtt.Config{
		Up: []rtt.ChannelConfig{{Name: "Terminal", Size: 64 * 1024, Mode: rtt.SkipOnFull}},
	})
	halted := 0
	orig := Halt
	Halt = func() { halted++ }
	defer func() { Halt = orig }()

	func() {
		defer Handler()
		panic("boom")
	}()

	assert.Equal(t, 1, halted)
	assert.Equal(t, rtt.BlockOnFull, chs.Up[0].Mode())
	out := readAll(t, p)
	assert.True(t, strings.HasPrefix(out, "panicked: boom\n"), out)
	assert.Contains(t, out, "goroutine ")
}

func TestHandlerHaltsInsidePrintCriticalSection(t *testing.T) {
	chs, p := setup(t, rtt.Config{
		Up: []rtt.ChannelConfig{{Name: "Terminal", Size: 64 * 1024, Mode: rtt.TrimOnFull}},
	})
	rtt.SetPrintChannel(chs.Up[0])
	defer rtt.SetPrintChannel(nil)

	printed := make(chan struct{})
	orig := Halt
	Halt = func() {
		go func() {
			rtt.Println("late")
			close(printed)
		}()
		select {
		case <-printed:
			t.Error("printed while halted")
		case <-time.After(20 * time.Millisecond):
		}
	}
	defer func() { Halt = orig }()

	func() {
		defer Handler()
		panic("boom")
	}()
	<-printed

	out := readAll(t, p)
	assert.True(t, strings.HasPrefix(out, "panicked: boom\n"), out)
	assert.True(t, strings.HasSuffix(out, "late\n"), out)
}

func TestHandlerWithoutPanic(t *testing.T) {
	_, p := setup(t, rtt.DefaultConfig())
	orig := Halt
	Halt = func() { t.Fatal("halted without panic") }
	defer func() { Halt = orig }()

	func() {
		defer Handler()
	}()
	assert.Empty(t, readAll(t, p))
}

func TestReportWithoutUpChannel(t *testing.T) {
	setup(t, rtt.Config{Down: []rtt.ChannelConfig{{Size: 16}}})
	assert.False(t, Report("nothing"))
}

func TestReportBlocksUntilDrained(t *testing.T) {
	_, p := setup(t, rtt.Config{
		Up: []rtt.ChannelConfig{{Size: 64, Mode: rtt.TrimOnFull}},
	})
	require.NoError(t, p.Refresh())
	done := make(chan bool)
	go func() {
		done <- Report(fmt19{})
	}()
	var out []byte
	buf := make([]byte, 64)
	for {
		select {
		case ok := <-done:
			n, err := p.ReadUp(0, buf)
			require.NoError(t, err)
			out = append(out, buf[:n]...)
			assert.True(t, ok)
			assert.True(t, strings.HasPrefix(string(out), "panicked: 0123456789abcdefghi\n"))
			assert.Contains(t, string(out), "runtime/debug.Stack")
			return
		default:
		}
		n, err := p.ReadUp(0, buf)
		require.NoError(t, err)
		out = append(out, buf[:n]...)
	}
}

type fmt19 struct{}

func (fmt19) String() string {
	return "0123456789abcdefghi"
}
