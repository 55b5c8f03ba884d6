// Package probe is the host side of rtt: it locates the control block in
// target memory and moves data through the channels it describes.
package probe
