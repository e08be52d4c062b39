package arch

// IDAllocator hands out dense ids per object class. Each Builder owns one, so
// two architectures built side by side never share counters.
type IDAllocator struct {
	next map[ObjectClass]int
}

// ObjectClass groups the id spaces of the architecture arena.
type ObjectClass int

const (
	ClassTile ObjectClass = iota
	ClassProcessor
	ClassMemory
	ClassInterconnect
)

func NewIDAllocator() *IDAllocator {
	return &IDAllocator{next: make(map[ObjectClass]int)}
}

// Next returns the next free id of the class. Ids match arena indices.
func (a *IDAllocator) Next(class ObjectClass) int {
	id := a.next[class]
	a.next[class] = id + 1
	return id
}

// Count returns how many ids of the class were handed out.
func (a *IDAllocator) Count(class ObjectClass) int {
	return a.next[class]
}
