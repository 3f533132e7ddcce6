package buffer

// Op identifies a BoundedBuffer state change reported to hooks.
type Op int

const (
	// OpPut: an element was appended.
	OpPut Op = iota
	// OpTake: an element was removed.
	OpTake
	// OpPutWait: a writer found the buffer full and is about to wait.
	OpPutWait
	// OpTakeWait: a reader found the buffer empty and is about to wait.
	OpTakeWait
	// OpClose: the buffer was closed (CloseWrite or CloseWithError).
	OpClose
)

func (op Op) String() string {
	switch op {
	case OpPut:
		return "put"
	case OpTake:
		return "take"
	case OpPutWait:
		return "put_wait"
	case OpTakeWait:
		return "take_wait"
	case OpClose:
		return "close"
	default:
		return "unknown"
	}
}

// Event describes one state change. Len is the buffer length after the
// change and Cap its capacity.
type Event struct {
	Op  Op
	Len int
	Cap int
}

// Hook observes buffer events. Hooks run while the buffer lock is held: they
// see a consistent length, and they must not call back into the buffer.
type Hook func(Event)
