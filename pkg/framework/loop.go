package framework

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// Loop calls its Controllers in order on every tick, the way firmware
// runs its main loop.
type Loop struct {
	Interval    time.Duration
	Controllers []Controller

	wakeUpCh chan struct{}
}

type loopIteration struct {
	loop *Loop
	ctx  context.Context
	time time.Time
	num  uint64
}

// NewLoop creates a Loop.
func NewLoop(interval time.Duration, ctls ...Controller) *Loop {
	return &Loop{Interval: interval, Controllers: ctls}
}

// Add appends controllers.
func (l *Loop) Add(ctls ...Controller) *Loop {
	l.Controllers = append(l.Controllers, ctls...)
	return l
}

// Name implements Named.
func (l *Loop) Name() string {
	return "loop"
}

// Run implements Runnable. A controller error stops the loop.
func (l *Loop) Run(ctx context.Context) error {
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}
	interval := l.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for num := uint64(0); ; num++ {
		iter := &loopIteration{loop: l, ctx: ctx, time: time.Now(), num: num}
		for _, ctl := range l.Controllers {
			if err := ctl.Control(iter); err != nil {
				glog.Errorf("loop iteration %d: %v", num, err)
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-l.wakeUpCh:
		}
	}
}

func (t *loopIteration) Context() context.Context {
	return t.ctx
}

func (t *loopIteration) Time() time.Time {
	return t.time
}

func (t *loopIteration) Iteration() uint64 {
	return t.num
}

func (t *loopIteration) TriggerNext() {
	select {
	case t.loop.wakeUpCh <- struct{}{}:
	default:
	}
}
