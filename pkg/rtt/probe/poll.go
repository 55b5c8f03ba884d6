package probe

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
)

// UpHandler is called with data drained from an up channel. data is only
// valid during the call.
type UpHandler interface {
	HandleUp(ctx context.Context, channel int, data []byte)
}

// HandleUpFunc is func type of UpHandler.
type HandleUpFunc func(ctx context.Context, channel int, data []byte)

// HandleUp implements UpHandler.
func (f HandleUpFunc) HandleUp(ctx context.Context, channel int, data []byte) {
	f(ctx, channel, data)
}

// Fanout passes data to every handler in order.
type Fanout []UpHandler

// HandleUp implements UpHandler.
func (f Fanout) HandleUp(ctx context.Context, channel int, data []byte) {
	for _, h := range f {
		h.HandleUp(ctx, channel, data)
	}
}

// CopyTo writes data of the listed channels (all channels if none) to w.
// With more than one channel listed, every chunk is prefixed by "[n] ".
func CopyTo(w io.Writer, channels ...int) UpHandler {
	return HandleUpFunc(func(ctx context.Context, channel int, data []byte) {
		if len(channels) > 0 {
			found := false
			for _, n := range channels {
				found = found || n == channel
			}
			if !found {
				return
			}
		}
		if len(channels) != 1 {
			fmt.Fprintf(w, "[%d] ", channel)
		}
		w.Write(data)
	})
}

// DefaultPollInterval is used when Poll is given no interval.
const DefaultPollInterval = 10 * time.Millisecond

// PollOnce drains every up channel once, calling h for each non-empty read.
func (p *Probe) PollOnce(ctx context.Context, h UpHandler) error {
	up, _ := p.Channels()
	for _, info := range up {
		// a buffer of the channel size takes everything pending at once.
		buf := make([]byte, info.Size)
		n, err := p.ReadUp(info.Index, buf)
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		glog.V(4).Infof("up[%d]: %d bytes", info.Index, n)
		if h != nil {
			h.HandleUp(ctx, info.Index, buf[:n])
		}
	}
	return nil
}

// Poll drains the up channels every interval until ctx is done.
func (p *Probe) Poll(ctx context.Context, interval time.Duration, h UpHandler) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := p.PollOnce(ctx, h); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poller runs Poll as a framework Runnable.
type Poller struct {
	Probe    *Probe
	Interval time.Duration
	Handler  UpHandler
}

// Name implements framework.Named.
func (p *Poller) Name() string {
	return "probe"
}

// Run implements framework.Runnable.
func (p *Poller) Run(ctx context.Context) error {
	return p.Probe.Poll(ctx, p.Interval, p.Handler)
}
