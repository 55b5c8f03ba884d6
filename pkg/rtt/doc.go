// Package rtt implements real-time transfer between firmware and a debug
// probe through ring buffers in target RAM.
package rtt

// The target describes its channels in a control block: a 16 byte
// signature, the up and down channel counts and one descriptor per channel.
// A probe finds the block by scanning memory for the signature and then
// polls the offsets in the descriptors using background memory access.
//
// Each channel has exactly one producer and one consumer, and the two
// offsets are the only synchronization between them: the producer owns the
// write offset, the consumer owns the read offset. Data is always in place
// before the offset advertising it is stored.
//
// Producer: target (up channels), host (down channels)
// Consumer: host (up channels), target (down channels)
