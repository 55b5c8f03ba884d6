// Package rttpb defines the wire messages published by the bridges.
package rttpb

import (
	"github.com/golang/protobuf/proto"
)

// Direction of a channel.
type Direction int32

// Directions.
const (
	Direction_UP   Direction = 0
	Direction_DOWN Direction = 1
)

// Chunk carries bytes read from one up channel.
type Chunk struct {
	Channel     uint32 `protobuf:"varint,1,opt,name=channel,proto3" json:"channel,omitempty"`
	Seq         uint64 `protobuf:"varint,2,opt,name=seq,proto3" json:"seq,omitempty"`
	TimestampNs int64  `protobuf:"varint,3,opt,name=timestamp_ns,json=timestampNs,proto3" json:"timestamp_ns,omitempty"`
	Data        []byte `protobuf:"bytes,4,opt,name=data,proto3" json:"data,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Chunk) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Chunk) Reset() { *m = Chunk{} }

// String implements proto.Message.
func (m *Chunk) String() string { return proto.CompactTextString(m) }

// ChannelInfo describes a channel as seen by the probe.
type ChannelInfo struct {
	Direction Direction `protobuf:"varint,1,opt,name=direction,proto3,enum=rtt.v1.Direction" json:"direction,omitempty"`
	Index     uint32    `protobuf:"varint,2,opt,name=index,proto3" json:"index,omitempty"`
	Name      string    `protobuf:"bytes,3,opt,name=name,proto3" json:"name,omitempty"`
	Size      uint32    `protobuf:"varint,4,opt,name=size,proto3" json:"size,omitempty"`
	Mode      uint32    `protobuf:"varint,5,opt,name=mode,proto3" json:"mode,omitempty"`
	Bytes     uint64    `protobuf:"varint,6,opt,name=bytes,proto3" json:"bytes,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *ChannelInfo) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ChannelInfo) Reset() { *m = ChannelInfo{} }

// String implements proto.Message.
func (m *ChannelInfo) String() string { return proto.CompactTextString(m) }
