// Package websocket serves the channels of a probe to websocket clients.
//
// A client connects to the handler with ?channel=N (default 0). It
// receives every chunk read from up channel N as a binary message, and
// messages it sends are written into down channel N.
package websocket

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/robotalks/rtt.go/pkg/rtt/probe"
)

// DefaultQueueLen is the number of chunks buffered per client.
const DefaultQueueLen = 64

// retryInterval paces writes into a full down channel.
const retryInterval = 5 * time.Millisecond

// Hub fans up channel data out to connected clients.
type Hub struct {
	Probe    *probe.Probe
	QueueLen int

	lock    sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn    *ReadWriter
	channel int
	sendCh  chan []byte
}

// NewHub creates a Hub.
func NewHub(p *probe.Probe) *Hub {
	return &Hub{Probe: p, QueueLen: DefaultQueueLen, clients: make(map[*client]struct{})}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.clients)
}

// HandleUp implements probe.UpHandler. A client that can't keep up misses
// the chunk.
func (h *Hub) HandleUp(ctx context.Context, channel int, data []byte) {
	var msg []byte
	h.lock.RLock()
	defer h.lock.RUnlock()
	for c := range h.clients {
		if c.channel != channel {
			continue
		}
		if msg == nil {
			msg = append([]byte(nil), data...)
		}
		select {
		case c.sendCh <- msg:
		default:
			glog.Warningf("websocket client %s: drop %d bytes of up/%d",
				c.conn.RemoteAddr(), len(data), channel)
		}
	}
}

// Handler returns the http.Handler accepting websocket clients.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serve)
}

func (h *Hub) serve(ws *websocket.Conn) {
	channel := 0
	if val := ws.Request().URL.Query().Get("channel"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			glog.Warningf("websocket client %s: bad channel %q", ws.RemoteAddr(), val)
			ws.Close()
			return
		}
		channel = n
	}
	queueLen := h.QueueLen
	if queueLen <= 0 {
		queueLen = DefaultQueueLen
	}
	c := &client{conn: New(ws), channel: channel, sendCh: make(chan []byte, queueLen)}
	h.lock.Lock()
	h.clients[c] = struct{}{}
	h.lock.Unlock()
	glog.V(2).Infof("websocket client %s attached to channel %d", ws.RemoteAddr(), channel)

	err := h.run(ws.Request().Context(), c)

	h.lock.Lock()
	delete(h.clients, c)
	h.lock.Unlock()
	glog.V(2).Infof("websocket client %s detached: %v", ws.RemoteAddr(), err)
}

func (h *Hub) run(ctx context.Context, c *client) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer c.conn.Close()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case msg := <-c.sendCh:
				if err := c.conn.WritePacket(msg); err != nil {
					return err
				}
			}
		}
	})
	g.Go(func() error {
		for {
			pkt, err := c.conn.ReadPacket()
			if err != nil {
				return err
			}
			if err = h.writeDown(ctx, c.channel, pkt); err != nil {
				return err
			}
		}
	})
	return g.Wait()
}

// writeDown writes all of data, waiting for the target to make room.
func (h *Hub) writeDown(ctx context.Context, channel int, data []byte) error {
	for len(data) > 0 {
		n, err := h.Probe.WriteDown(channel, data)
		if err != nil {
			return err
		}
		data = data[n:]
		if len(data) == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return nil
}
