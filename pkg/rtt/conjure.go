package rtt

// ConjureUp returns a handle on up channel index of the Current control
// block, or nil if there is none or index is out of range.
//
// The handle aliases every other handle on the same channel. It is only
// sound once normal execution has stopped for good, typically in a panic
// or fault handler that never returns: nothing else may write the channel
// afterwards.
func ConjureUp(index int) *UpChannel {
	return Current().ConjureUp(index)
}

// ConjureDown is ConjureUp for down channels. The same precondition applies
// to readers.
func ConjureDown(index int) *DownChannel {
	return Current().ConjureDown(index)
}

// ConjureUp returns a handle on up channel index of cb. See ConjureUp.
func (cb *ControlBlock) ConjureUp(index int) *UpChannel {
	if cb == nil || !cb.Committed() || index < 0 || index >= cb.NumUp() {
		return nil
	}
	if ch, ok := openChannel(cb.mem, cb.upDesc(index), index); ok {
		return &UpChannel{channel: ch}
	}
	return nil
}

// ConjureDown returns a handle on down channel index of cb.
func (cb *ControlBlock) ConjureDown(index int) *DownChannel {
	if cb == nil || !cb.Committed() || index < 0 || index >= cb.NumDown() {
		return nil
	}
	if ch, ok := openChannel(cb.mem, cb.downDesc(index), index); ok {
		return &DownChannel{channel: ch}
	}
	return nil
}
