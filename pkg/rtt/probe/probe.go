package probe

import (
	"fmt"
	"sync"

	"github.com/robotalks/rtt.go/pkg/rtt"
)

// Direction of a channel.
type Direction int

const (
	// Up is target to host.
	Up Direction = iota
	// Down is host to target.
	Down
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "up":
		*d = Up
	case "down":
		*d = Down
	default:
		return fmt.Errorf("invalid direction %q", text)
	}
	return nil
}

// maxNameLen bounds names read from target memory.
const maxNameLen = 64

// ChannelInfo describes a channel as read from its descriptor.
type ChannelInfo struct {
	Direction Direction `json:"direction"`
	Index     int       `json:"index"`
	Name      string    `json:"name,omitempty"`
	Buffer    uint32    `json:"buffer"`
	Size      uint32    `json:"size"`
	Mode      rtt.Mode  `json:"mode"`
	// Bytes counts bytes moved through the channel by this probe.
	Bytes uint64 `json:"bytes"`

	desc uint32
}

// Probe moves data through the channels of one control block. It is the
// consumer of up channels and the producer of down channels; a Probe is
// safe for concurrent use but there must be only one per target.
type Probe struct {
	target Target
	addr   uint32

	lock sync.Mutex
	up   []ChannelInfo
	down []ChannelInfo
}

// New creates a Probe for the control block at addr. Refresh must succeed
// before channels can be used; Attach does both.
func New(target Target, addr uint32) *Probe {
	return &Probe{target: target, addr: addr}
}

// Addr returns the control block address.
func (p *Probe) Addr() uint32 {
	return p.addr
}

// Refresh reads the control block again, picking up name and mode changes.
func (p *Probe) Refresh() error {
	sig := rtt.SignatureWords()
	for n, w := range sig {
		v, err := p.target.LoadUint32(p.addr + rtt.HeaderSignature + uint32(n*4))
		if err != nil {
			return err
		}
		if v != w {
			return ErrNotFound
		}
	}
	nUp, err := p.target.LoadUint32(p.addr + rtt.HeaderUpCount)
	if err != nil {
		return err
	}
	nDown, err := p.target.LoadUint32(p.addr + rtt.HeaderDownCount)
	if err != nil {
		return err
	}
	if nUp > rtt.MaxUpChannels || nDown > rtt.MaxDownChannels {
		return fmt.Errorf("%d up, %d down channels: %w", nUp, nDown, ErrCorrupted)
	}
	up := make([]ChannelInfo, nUp)
	down := make([]ChannelInfo, nDown)
	desc := p.addr + rtt.HeaderSize
	for n := range up {
		if err = p.readDescriptor(&up[n], Up, n, desc); err != nil {
			return err
		}
		desc += rtt.DescriptorSize
	}
	for n := range down {
		if err = p.readDescriptor(&down[n], Down, n, desc); err != nil {
			return err
		}
		desc += rtt.DescriptorSize
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	for n := range up {
		if n < len(p.up) {
			up[n].Bytes = p.up[n].Bytes
		}
	}
	for n := range down {
		if n < len(p.down) {
			down[n].Bytes = p.down[n].Bytes
		}
	}
	p.up, p.down = up, down
	return nil
}

func (p *Probe) readDescriptor(info *ChannelInfo, dir Direction, index int, desc uint32) error {
	var fields [rtt.DescriptorSize / 4]uint32
	for n := range fields {
		v, err := p.target.LoadUint32(desc + uint32(n*4))
		if err != nil {
			return err
		}
		fields[n] = v
	}
	*info = ChannelInfo{
		Direction: dir,
		Index:     index,
		Buffer:    fields[rtt.DescBuffer/4],
		Size:      fields[rtt.DescSize/4],
		Mode:      rtt.Mode(fields[rtt.DescFlags/4] & 3),
		desc:      desc,
	}
	if info.Buffer == 0 || info.Size == 0 {
		return fmt.Errorf("%s channel %d: %w", dir, index, ErrCorrupted)
	}
	if nameAddr := fields[rtt.DescName/4]; nameAddr != 0 {
		info.Name = p.readName(nameAddr)
	}
	return nil
}

func (p *Probe) readName(addr uint32) string {
	name := make([]byte, 0, 16)
	var c [1]byte
	for len(name) < maxNameLen {
		if p.target.ReadAt(c[:], addr+uint32(len(name))) != nil || c[0] == 0 {
			break
		}
		name = append(name, c[0])
	}
	return string(name)
}

// Channels returns the up and down channels.
func (p *Probe) Channels() (up, down []ChannelInfo) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]ChannelInfo(nil), p.up...), append([]ChannelInfo(nil), p.down...)
}

// Channel returns one channel.
func (p *Probe) Channel(dir Direction, index int) (ChannelInfo, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	info, err := p.channelLocked(dir, index)
	if err != nil {
		return ChannelInfo{}, err
	}
	return *info, nil
}

func (p *Probe) channelLocked(dir Direction, index int) (*ChannelInfo, error) {
	chs := p.up
	if dir == Down {
		chs = p.down
	}
	if index < 0 || index >= len(chs) {
		return nil, fmt.Errorf("%s channel %d: %w", dir, index, ErrNoChannel)
	}
	return &chs[index], nil
}

// offsets loads both offsets of a channel, rejecting values out of range.
func (p *Probe) offsets(info *ChannelInfo) (write, read uint32, err error) {
	if write, err = p.target.LoadUint32(info.desc + rtt.DescWrite); err != nil {
		return
	}
	if read, err = p.target.LoadUint32(info.desc + rtt.DescRead); err != nil {
		return
	}
	if write >= info.Size || read >= info.Size {
		err = fmt.Errorf("%s channel %d offsets %d/%d: %w",
			info.Direction, info.Index, write, read, ErrCorrupted)
	}
	return
}

// ReadUp consumes up to len(buf) bytes from up channel index.
func (p *Probe) ReadUp(index int, buf []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	info, err := p.channelLocked(Up, index)
	if err != nil {
		return 0, err
	}
	write, read, err := p.offsets(info)
	if err != nil {
		return 0, err
	}
	avail := write - read
	if write < read {
		avail = info.Size - read + write
	}
	n := uint32(len(buf))
	if n > avail {
		n = avail
	}
	if n == 0 {
		return 0, nil
	}
	first := info.Size - read
	if first > n {
		first = n
	}
	if err = p.target.ReadAt(buf[:first], info.Buffer+read); err != nil {
		return 0, err
	}
	if first < n {
		if err = p.target.ReadAt(buf[first:n], info.Buffer); err != nil {
			return 0, err
		}
	}
	if read += n; read >= info.Size {
		read -= info.Size
	}
	if err = p.target.StoreUint32(info.desc+rtt.DescRead, read); err != nil {
		return 0, err
	}
	info.Bytes += uint64(n)
	return int(n), nil
}

// WriteDown produces as much of data as fits into down channel index.
func (p *Probe) WriteDown(index int, data []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	info, err := p.channelLocked(Down, index)
	if err != nil {
		return 0, err
	}
	write, read, err := p.offsets(info)
	if err != nil {
		return 0, err
	}
	free := read - write - 1
	if read <= write {
		free = info.Size - write + read - 1
	}
	n := uint32(len(data))
	if n > free {
		n = free
	}
	if n == 0 {
		return 0, nil
	}
	first := info.Size - write
	if first > n {
		first = n
	}
	if err = p.target.WriteAt(data[:first], info.Buffer+write); err != nil {
		return 0, err
	}
	if first < n {
		if err = p.target.WriteAt(data[first:n], info.Buffer); err != nil {
			return 0, err
		}
	}
	if write += n; write >= info.Size {
		write -= info.Size
	}
	if err = p.target.StoreUint32(info.desc+rtt.DescWrite, write); err != nil {
		return 0, err
	}
	info.Bytes += uint64(n)
	return int(n), nil
}
