package arch

import "dsesim/src/simulator/fault"

// InterconnectKind separates per-tile crossbars from the network-on-chip.
type InterconnectKind int

const (
	KindCrossbar InterconnectKind = iota
	KindNoC
)

func (k InterconnectKind) String() string {
	if k == KindNoC {
		return "noc"
	}
	return "crossbar"
}

const (
	bytesPerGB      = 1024.0 * 1024.0 * 1024.0
	microsPerSecond = 1e6
)

// TransferLatencyQuery describes one hop for an external latency model.
type TransferLatencyQuery struct {
	Interconnect int
	Kind         InterconnectKind
	Bytes        int64
	Hops         int
}

// TransferLatencyEstimator may return a more precise hop duration in
// microseconds. A false second return value makes the caller fall back to the
// bandwidth model.
type TransferLatencyEstimator func(TransferLatencyQuery) (float64, bool)

// Channel is one parallel lane of an interconnect.
type Channel struct {
	LastEnd   float64
	Transfers []Transfer
}

// Interconnect is a crossbar or the NoC. Bandwidth is in GB/s (1024-based)
// and is split evenly across the channels. HopLatency (µs per mesh hop) only
// applies to the NoC.
type Interconnect struct {
	ID         int
	Name       string
	Kind       InterconnectKind
	Tile       int
	Bandwidth  float64
	HopLatency float64
	Estimator  TransferLatencyEstimator

	channels       []*Channel
	totalTransfers int64
	totalBytes     int64
}

// NewInterconnect creates an interconnect with the given number of channels
// (at least one).
func NewInterconnect(id int, name string, kind InterconnectKind, bandwidth float64, channels int) *Interconnect {
	if channels <= 0 {
		channels = 1
	}
	ic := &Interconnect{
		ID:        id,
		Name:      name,
		Kind:      kind,
		Tile:      -1,
		Bandwidth: bandwidth,
	}
	ic.channels = make([]*Channel, channels)
	for i := range ic.channels {
		ic.channels[i] = &Channel{}
	}
	return ic
}

// NumChannels returns the number of parallel channels.
func (ic *Interconnect) NumChannels() int {
	return len(ic.channels)
}

// ChannelBandwidth returns the per-channel bandwidth in GB/s.
func (ic *Interconnect) ChannelBandwidth() float64 {
	return ic.Bandwidth / float64(len(ic.channels))
}

// TransferDuration returns how long bytes occupy one channel, in microseconds.
// hops is the mesh distance covered, used for the NoC hop latency.
func (ic *Interconnect) TransferDuration(bytes int64, hops int) float64 {
	if bytes < 0 {
		bytes = 0
	}
	if ic.Estimator != nil {
		if d, ok := ic.Estimator(TransferLatencyQuery{
			Interconnect: ic.ID,
			Kind:         ic.Kind,
			Bytes:        bytes,
			Hops:         hops,
		}); ok && d >= 0 {
			return d
		}
	}
	bw := ic.ChannelBandwidth()
	if bw <= 0 {
		return 0
	}
	d := float64(bytes) / bytesPerGB / bw * microsPerSecond
	if ic.Kind == KindNoC && hops > 0 {
		d += float64(hops) * ic.HopLatency
	}
	return d
}

// leastLoaded picks the channel with the fewest committed transfers, lowest
// index first.
func (ic *Interconnect) leastLoaded() int {
	best := 0
	for i := 1; i < len(ic.channels); i++ {
		if len(ic.channels[i].Transfers) < len(ic.channels[best].Transfers) {
			best = i
		}
	}
	return best
}

// PutTransfer commits t on the least-loaded channel no earlier than
// requestStart and returns the committed copy.
func (ic *Interconnect) PutTransfer(t Transfer, requestStart float64, hops int) (Transfer, error) {
	if ic.Bandwidth <= 0 && ic.Estimator == nil {
		return t, fault.New(fault.InvalidInput, "%s has no bandwidth", ic.Name)
	}
	idx := ic.leastLoaded()
	ch := ic.channels[idx]

	start := requestStart
	if ch.LastEnd > start {
		start = ch.LastEnd
	}
	t.Start = start
	t.Due = start + ic.TransferDuration(t.Bytes, hops)
	t.Interconnect = ic.ID
	t.Channel = idx

	ch.LastEnd = t.Due
	ch.Transfers = append(ch.Transfers, t)
	ic.totalTransfers++
	ic.totalBytes += t.Bytes
	return t, nil
}

// ChannelLoads returns the committed transfer count per channel.
func (ic *Interconnect) ChannelLoads() []int {
	loads := make([]int, len(ic.channels))
	for i, ch := range ic.channels {
		loads[i] = len(ch.Transfers)
	}
	return loads
}

// ChannelTransfers returns the committed transfers of channel i in commit order.
func (ic *Interconnect) ChannelTransfers(i int) []Transfer {
	if i < 0 || i >= len(ic.channels) {
		return nil
	}
	return ic.channels[i].Transfers
}

// Transfers returns every committed transfer, channel by channel.
func (ic *Interconnect) Transfers() []Transfer {
	all := make([]Transfer, 0, ic.totalTransfers)
	for _, ch := range ic.channels {
		all = append(all, ch.Transfers...)
	}
	return all
}

// Totals exposes aggregate statistics.
func (ic *Interconnect) Totals() (transfers int64, bytes int64) {
	return ic.totalTransfers, ic.totalBytes
}

// Reset clears every channel timeline.
func (ic *Interconnect) Reset() {
	for i := range ic.channels {
		ic.channels[i] = &Channel{}
	}
	ic.totalTransfers = 0
	ic.totalBytes = 0
}

func (ic *Interconnect) clone() *Interconnect {
	c := *ic
	c.channels = make([]*Channel, len(ic.channels))
	for i, ch := range ic.channels {
		c.channels[i] = &Channel{
			LastEnd:   ch.LastEnd,
			Transfers: append([]Transfer(nil), ch.Transfers...),
		}
	}
	return &c
}
