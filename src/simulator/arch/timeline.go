package arch

// Direction of a transfer relative to the processor.
type Direction int

const (
	DirRead Direction = iota
	DirWrite
)

func (d Direction) String() string {
	if d == DirWrite {
		return "write"
	}
	return "read"
}

// Transfer is one read or write movement of Bytes between a processor and the
// memory bound to Fifo. Interconnect and Channel are filled in when the
// transfer is committed on a hop; a scratchpad transfer keeps them at -1.
type Transfer struct {
	Direction    Direction
	Fifo         int
	Actor        int
	Processor    int
	Bytes        int64
	Iteration    int
	Start        float64
	Due          float64
	Interconnect int
	Channel      int
	SrcTile      int
	DstTile      int
}

// NewTransfer returns an uncommitted transfer.
func NewTransfer(dir Direction, fifo, actor int, bytes int64) Transfer {
	return Transfer{
		Direction:    dir,
		Fifo:         fifo,
		Actor:        actor,
		Processor:    -1,
		Bytes:        bytes,
		Interconnect: -1,
		Channel:      -1,
		SrcTile:      -1,
		DstTile:      -1,
	}
}

// Action is one firing of an actor on a processor.
type Action struct {
	Actor     int
	Processor int
	Runtime   float64
	Start     float64
	Due       float64
	Step      int
	Iteration int
}
