package probe

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/rtt.go/pkg/rtt"
)

var (
	// ErrNotFound indicates no control block signature in the scanned range.
	ErrNotFound = errors.New("control block not found")
	// ErrCorrupted indicates a control block or offset that can't be valid.
	ErrCorrupted = errors.New("control block corrupted")
	// ErrNoChannel indicates a channel index beyond the channel count.
	ErrNoChannel = errors.New("no such channel")
)

// Target is background access to target memory, e.g. through a debug
// probe. *rtt.Memory implements it for a target in the same process.
type Target interface {
	LoadUint32(addr uint32) (uint32, error)
	StoreUint32(addr, v uint32) error
	ReadAt(p []byte, addr uint32) error
	WriteAt(p []byte, addr uint32) error
}

// Scan searches [start, start+size) word by word for the control block
// signature and returns its address.
func Scan(target Target, start, size uint32) (uint32, error) {
	sig := rtt.SignatureWords()
	end := uint64(start) + uint64(size)
	for addr := (start + 3) &^ 3; uint64(addr)+rtt.HeaderSize <= end; addr += 4 {
		w, err := target.LoadUint32(addr)
		if err != nil {
			return 0, err
		}
		if w != sig[0] {
			continue
		}
		matched := true
		for n := 1; n < len(sig) && matched; n++ {
			if w, err = target.LoadUint32(addr + uint32(n*4)); err != nil {
				return 0, err
			}
			matched = w == sig[n]
		}
		if matched {
			return addr, nil
		}
	}
	return 0, ErrNotFound
}

// Attach scans for the control block, retrying every interval until it
// shows up or ctx is done. With interval 0 it scans once.
func Attach(ctx context.Context, target Target, start, size uint32, interval time.Duration) (*Probe, error) {
	for {
		addr, err := Scan(target, start, size)
		if err == nil {
			p := New(target, addr)
			if err = p.Refresh(); err != nil {
				return nil, err
			}
			glog.Infof("control block at 0x%08x: %d up, %d down channels",
				addr, len(p.up), len(p.down))
			return p, nil
		}
		if err != ErrNotFound || interval <= 0 {
			return nil, err
		}
		glog.V(4).Infof("no control block in 0x%08x+%d, retry in %v", start, size, interval)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}
