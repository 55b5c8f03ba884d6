// Package mqtt bridges the channels of a probe to an MQTT broker.
//
// Topics, relative to the queue prefix:
//
//	meta       retained JSON list of channels
//	channel/<dir>/<n>  retained protobuf ChannelInfo of every channel
//	up/<n>     protobuf Chunk for every read of up channel n
//	down/<n>   payload written into down channel n
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"
	"github.com/sugawarayuuta/sonnet"

	pb "github.com/robotalks/rtt.go/pkg/proto/rtt/v1"
	"github.com/robotalks/rtt.go/pkg/rtt/probe"
)

// Topics.
const (
	TopicMeta       = "meta"
	TopicChannelFmt = "channel/%s/%d"
	TopicUpFmt      = "up/%d"
	TopicDownSub    = "down/+"
	topicDownHead   = "down/"
)

// PubSub is the part of Queue the Bridge uses.
type PubSub interface {
	Publish(topic string, payload []byte, retain bool) error
	Subscribe(pattern string, handler Handler) (io.Closer, error)
}

// Meta is the payload of the meta topic.
type Meta struct {
	Addr uint32              `json:"addr"`
	Up   []probe.ChannelInfo `json:"up"`
	Down []probe.ChannelInfo `json:"down"`
}

// Bridge publishes up channel data and feeds down channels from the broker.
// Data for a full down channel is kept and retried on every tick.
type Bridge struct {
	PubSub   PubSub
	Probe    *probe.Probe
	Interval time.Duration

	lock    sync.Mutex
	seq     map[int]uint64
	pending map[int][]byte
	now     func() time.Time
}

// DefaultFlushInterval is used when Interval is not set.
const DefaultFlushInterval = 10 * time.Millisecond

// NewBridge creates a Bridge.
func NewBridge(ps PubSub, p *probe.Probe) *Bridge {
	return &Bridge{
		PubSub:  ps,
		Probe:   p,
		seq:     make(map[int]uint64),
		pending: make(map[int][]byte),
		now:     time.Now,
	}
}

// Name implements framework.Named.
func (b *Bridge) Name() string {
	return "mqtt"
}

// HandleUp implements probe.UpHandler.
func (b *Bridge) HandleUp(ctx context.Context, channel int, data []byte) {
	b.lock.Lock()
	seq := b.seq[channel]
	b.seq[channel] = seq + 1
	b.lock.Unlock()

	payload, err := proto.Marshal(&pb.Chunk{
		Channel:     uint32(channel),
		Seq:         seq,
		TimestampNs: b.now().UnixNano(),
		Data:        data,
	})
	if err != nil {
		glog.Errorf("marshal chunk: %v", err)
		return
	}
	if err = b.PubSub.Publish(fmt.Sprintf(TopicUpFmt, channel), payload, false); err != nil {
		glog.Warningf("publish up/%d: %v", channel, err)
	}
}

// PublishMeta publishes the channel list and every channel, retained.
func (b *Bridge) PublishMeta() error {
	up, down := b.Probe.Channels()
	payload, err := sonnet.Marshal(&Meta{Addr: b.Probe.Addr(), Up: up, Down: down})
	if err != nil {
		return err
	}
	if err = b.PubSub.Publish(TopicMeta, payload, true); err != nil {
		return err
	}
	for _, info := range append(up, down...) {
		if payload, err = proto.Marshal(ChannelProto(info)); err != nil {
			return err
		}
		topic := fmt.Sprintf(TopicChannelFmt, info.Direction, info.Index)
		if err = b.PubSub.Publish(topic, payload, true); err != nil {
			return err
		}
	}
	return nil
}

// ChannelProto converts info to its wire message.
func ChannelProto(info probe.ChannelInfo) *pb.ChannelInfo {
	msg := &pb.ChannelInfo{
		Direction: pb.Direction_UP,
		Index:     uint32(info.Index),
		Name:      info.Name,
		Size:      info.Size,
		Mode:      uint32(info.Mode),
		Bytes:     info.Bytes,
	}
	if info.Direction == probe.Down {
		msg.Direction = pb.Direction_DOWN
	}
	return msg
}

// HandleDown queues payload for the down channel named by topic.
func (b *Bridge) HandleDown(topic string, payload []byte) {
	if !strings.HasPrefix(topic, topicDownHead) {
		return
	}
	index, err := strconv.Atoi(topic[len(topicDownHead):])
	if err != nil || index < 0 {
		glog.Warningf("ignore message on %q", topic)
		return
	}
	if len(payload) == 0 {
		return
	}
	b.lock.Lock()
	b.pending[index] = append(b.pending[index], payload...)
	b.lock.Unlock()
	b.Flush()
}

// Pending returns the bytes waiting for down channel index.
func (b *Bridge) Pending(index int) int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.pending[index])
}

// Flush writes as much pending down data as the channels take.
func (b *Bridge) Flush() {
	b.lock.Lock()
	defer b.lock.Unlock()
	for index, data := range b.pending {
		n, err := b.Probe.WriteDown(index, data)
		if errors.Is(err, probe.ErrNoChannel) {
			glog.Warningf("drop %d bytes for down/%d: %v", len(data), index, err)
			delete(b.pending, index)
			continue
		}
		if err != nil {
			glog.Warningf("write down/%d: %v", index, err)
			continue
		}
		if n == len(data) {
			delete(b.pending, index)
		} else {
			b.pending[index] = data[n:]
		}
	}
}

// Run implements framework.Runnable. It publishes the meta, subscribes the
// down topics and flushes pending data until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.PublishMeta(); err != nil {
		return fmt.Errorf("publish meta: %w", err)
	}
	sub, err := b.PubSub.Subscribe(TopicDownSub, b.HandleDown)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicDownSub, err)
	}
	defer sub.Close()

	interval := b.Interval
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.Flush()
		}
	}
}
