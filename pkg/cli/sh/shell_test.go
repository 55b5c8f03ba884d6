package sh

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugawarayuuta/sonnet"

	"github.com/robotalks/rtt.go/pkg/rtt"
	"github.com/robotalks/rtt.go/pkg/rtt/probe"
)

func newTestShell(t *testing.T) (*Shell, *rtt.Channels) {
	mem := rtt.NewMemory(0x20000000, 4096)
	chs, err := rtt.Init(mem, rtt.Config{
		Up: []rtt.ChannelConfig{
			{Name: "Terminal", Size: 64, Mode: rtt.TrimOnFull},
			{Name: "Trace", Size: 32, Mode: rtt.SkipOnFull},
		},
		Down: []rtt.ChannelConfig{{Name: "Terminal", Size: 8}},
	})
	require.NoError(t, err)
	p := probe.New(mem, chs.Block.Addr())
	require.NoError(t, p.Refresh())
	return &Shell{Probe: p, Tail: NewTail(16)}, chs
}

func TestShellChannels(t *testing.T) {
	s, _ := newTestShell(t)
	var out bytes.Buffer
	require.NoError(t, s.Channels(&out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"DIR", "INDEX", "NAME", "SIZE", "MODE", "ADDR"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"up", "1", "Trace", "32", "SkipOnFull"}, strings.Fields(lines[2])[:5])
	assert.Equal(t, []string{"down", "0", "Terminal", "8", "SkipOnFull"}, strings.Fields(lines[3])[:5])

	s.OutputJSON = true
	out.Reset()
	require.NoError(t, s.Channels(&out))
	var infos []struct {
		Direction string `json:"direction"`
		Name      string `json:"name"`
	}
	require.NoError(t, sonnet.Unmarshal(out.Bytes(), &infos))
	require.Len(t, infos, 3)
	assert.Equal(t, "down", infos[2].Direction)
	assert.Equal(t, "Trace", infos[1].Name)
}

func TestShellRead(t *testing.T) {
	s, chs := newTestShell(t)
	chs.Up[0].WriteString("hello world")
	require.NoError(t, s.Probe.PollOnce(context.Background(), s.Tail))

	var out bytes.Buffer
	require.NoError(t, s.Read(&out, 0, 5))
	assert.Equal(t, "hello", out.String())
	out.Reset()
	require.NoError(t, s.Read(&out, 0, 0))
	assert.Equal(t, " world", out.String())
	out.Reset()
	require.NoError(t, s.Read(&out, 0, 0))
	assert.Empty(t, out.String())

	err := s.Read(&out, 5, 0)
	assert.True(t, errors.Is(err, probe.ErrNoChannel))
}

func TestShellWrite(t *testing.T) {
	s, chs := newTestShell(t)
	var out bytes.Buffer
	require.NoError(t, s.Write(&out, 0, "ping\n"))
	assert.Equal(t, "5 bytes written\n", out.String())

	out.Reset()
	require.NoError(t, s.Write(&out, 0, "12345"))
	assert.Equal(t, "2 bytes written, 3 dropped\n", out.String())

	buf := make([]byte, 16)
	n := chs.Down[0].Read(buf)
	assert.Equal(t, "ping\n12", string(buf[:n]))

	assert.Error(t, s.Write(&out, 1, "x"))
}

func TestShellStats(t *testing.T) {
	s, chs := newTestShell(t)
	chs.Up[0].WriteString("0123456789abcdefXYZ")
	require.NoError(t, s.Probe.PollOnce(context.Background(), s.Tail))
	_, err := s.Probe.WriteDown(0, []byte("ab"))
	require.NoError(t, err)

	s.OutputJSON = true
	var out bytes.Buffer
	require.NoError(t, s.Stats(&out))
	var stats []ChannelStats
	require.NoError(t, sonnet.Unmarshal(out.Bytes(), &stats))
	require.Len(t, stats, 3)
	assert.Equal(t, uint64(19), stats[0].Bytes)
	assert.Equal(t, 16, stats[0].Buffered)
	assert.Equal(t, uint64(3), stats[0].Dropped)
	assert.Equal(t, uint64(2), stats[2].Bytes)
}

func TestTail(t *testing.T) {
	tail := NewTail(4)
	tail.HandleUp(context.Background(), 1, []byte("ab"))
	tail.HandleUp(context.Background(), 1, []byte("cdef"))
	assert.Equal(t, 4, tail.Buffered(1))
	assert.Equal(t, uint64(2), tail.Dropped(1))
	assert.Equal(t, "cdef", string(tail.Take(1, 0)))
	assert.Empty(t, tail.Take(1, 0))
	assert.Equal(t, DefaultTailSize, NewTail(0).Size)
}
