package websocket

import "golang.org/x/net/websocket"

// ReadWriter exchanges whole binary messages over a websocket.Conn.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	conn.PayloadType = websocket.BinaryFrame
	return (*ReadWriter)(conn)
}

// ReadPacket receives one message.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket sends pkt as one binary message.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// RemoteAddr returns the peer address.
func (p *ReadWriter) RemoteAddr() string {
	return (*websocket.Conn)(p).RemoteAddr().String()
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}
