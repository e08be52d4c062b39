package arch

import (
	"math"
	"testing"
)

func TestCrossbarSpreadsWritesOverChannels(t *testing.T) {
	t.Parallel()

	xbar := NewInterconnect(0, "xbar", KindCrossbar, 1, 4)
	want := 1024.0 / (1024 * 1024 * 1024) / 0.25 * 1e6

	for i := 0; i < 4; i++ {
		tr := NewTransfer(DirWrite, i, i, 1024)
		committed, err := xbar.PutTransfer(tr, 0, 0)
		if err != nil {
			t.Fatalf("put transfer %d: %v", i, err)
		}
		if committed.Channel != i {
			t.Fatalf("transfer %d landed on channel %d", i, committed.Channel)
		}
		if math.Abs((committed.Due-committed.Start)-want) > 1e-9 {
			t.Fatalf("expected duration %.9fus, got %.9fus", want, committed.Due-committed.Start)
		}
	}

	for ch, load := range xbar.ChannelLoads() {
		if load != 1 {
			t.Fatalf("channel %d holds %d transfers, want 1", ch, load)
		}
	}
}

func TestChannelLeastLoadInvariant(t *testing.T) {
	t.Parallel()

	for _, channels := range []int{1, 2, 3, 5} {
		ic := NewInterconnect(0, "noc", KindNoC, 8, channels)
		for n := 0; n < 23; n++ {
			// Requested starts deliberately out of order.
			req := float64((n * 7) % 5)
			if _, err := ic.PutTransfer(NewTransfer(DirRead, 0, 0, int64(512*(n%3+1))), req, 0); err != nil {
				t.Fatalf("put transfer: %v", err)
			}
			loads := ic.ChannelLoads()
			minLoad, maxLoad := loads[0], loads[0]
			for _, l := range loads {
				if l < minLoad {
					minLoad = l
				}
				if l > maxLoad {
					maxLoad = l
				}
			}
			if maxLoad-minLoad > 1 {
				t.Fatalf("channels=%d after %d transfers: loads %v", channels, n+1, loads)
			}
		}
	}
}

func TestTransferWaitsForChannel(t *testing.T) {
	t.Parallel()

	ic := NewInterconnect(0, "xbar", KindCrossbar, 1, 1)
	first, _ := ic.PutTransfer(NewTransfer(DirWrite, 0, 0, 1<<20), 10, 0)
	second, _ := ic.PutTransfer(NewTransfer(DirWrite, 0, 0, 1<<20), 0, 0)

	if first.Start != 10 {
		t.Fatalf("first transfer should start at its request, got %f", first.Start)
	}
	if second.Start != first.Due {
		t.Fatalf("second transfer should wait for the channel: start %f, first due %f", second.Start, first.Due)
	}
	if transfers, bytes := ic.Totals(); transfers != 2 || bytes != 2<<20 {
		t.Fatalf("unexpected totals: %d transfers, %d bytes", transfers, bytes)
	}

	ic.Reset()
	if transfers, _ := ic.Totals(); transfers != 0 || len(ic.Transfers()) != 0 {
		t.Fatalf("reset should clear the timeline")
	}
}

func TestNoCHopLatencyAndEstimator(t *testing.T) {
	t.Parallel()

	noc := NewInterconnect(0, "noc", KindNoC, 1, 1)
	noc.HopLatency = 0.5
	base := noc.TransferDuration(1024, 0)
	if got := noc.TransferDuration(1024, 3); math.Abs(got-(base+1.5)) > 1e-9 {
		t.Fatalf("expected hop latency added, got %f want %f", got, base+1.5)
	}

	noc.Estimator = func(q TransferLatencyQuery) (float64, bool) {
		if q.Bytes > 2048 {
			return 42, true
		}
		return 0, false
	}
	if got := noc.TransferDuration(4096, 0); got != 42 {
		t.Fatalf("estimator should override, got %f", got)
	}
	if got := noc.TransferDuration(1024, 0); math.Abs(got-base) > 1e-9 {
		t.Fatalf("declined estimate should fall back to bandwidth model, got %f", got)
	}
}
