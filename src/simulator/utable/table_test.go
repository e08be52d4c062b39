package utable

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestUtilizationTable(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Utilization Table Suite")
}

func noOverlaps(table *Table) {
	for pid := 0; pid < table.NumPools(); pid++ {
		for li := 0; li < table.Lanes(pid); li++ {
			slots := table.Slots(Lane{Pool: pid, Index: li})
			for i := 1; i < len(slots); i++ {
				Expect(slots[i-1].End).To(BeNumerically("<=", slots[i].Start),
					"lane %d/%d overlaps: %v", pid, li, slots)
			}
		}
	}
}

var _ = Describe("Aperiodic table", func() {
	var (
		table *Table
		core  int
		xbar  int
	)

	BeforeEach(func() {
		table = New(0)
		core = table.AddPool(Key{Kind: KindCore, Instance: 0}, 1)
		xbar = table.AddPool(Key{Kind: KindCrossbar, Instance: 0}, 2)
	})

	It("should return the existing pool for a known key", func() {
		Expect(table.AddPool(Key{Kind: KindCore, Instance: 0}, 4)).To(Equal(core))
		Expect(table.Lanes(core)).To(Equal(1))
	})

	It("should append, fill gaps and reject overlaps", func() {
		_, ok := table.Insert([]int{core}, 0, 2, 1)
		Expect(ok).To(BeTrue())
		_, ok = table.Insert([]int{core}, 5, 7, 2)
		Expect(ok).To(BeTrue())
		_, ok = table.Insert([]int{core}, 2, 5, 3)
		Expect(ok).To(BeTrue())
		_, ok = table.Insert([]int{core}, 4, 6, 4)
		Expect(ok).To(BeFalse())

		slots := table.Slots(Lane{Pool: core})
		Expect(slots).To(HaveLen(3))
		Expect(slots[1].Owner).To(Equal(3))
		noOverlaps(table)
	})

	It("should spread over lanes of the same pool", func() {
		l1, ok := table.Insert([]int{xbar}, 0, 4, 1)
		Expect(ok).To(BeTrue())
		l2, ok := table.Insert([]int{xbar}, 1, 3, 2)
		Expect(ok).To(BeTrue())
		Expect(l1[0].Index).To(Equal(0))
		Expect(l2[0].Index).To(Equal(1))
		Expect(table.CanInsert([]int{xbar}, 2, 3)).To(BeFalse())
		Expect(table.Demand(xbar)).To(Equal(6))
	})

	It("should give a repeated pool distinct lanes", func() {
		lanes, ok := table.Insert([]int{xbar, xbar}, 0, 1, 1)
		Expect(ok).To(BeTrue())
		Expect(lanes[0]).NotTo(Equal(lanes[1]))
		_, ok = table.Insert([]int{xbar, xbar, xbar}, 2, 3, 2)
		Expect(ok).To(BeFalse())
	})

	It("should insert on all pools or on none", func() {
		_, ok := table.Insert([]int{core}, 3, 4, 1)
		Expect(ok).To(BeTrue())

		_, ok = table.Insert([]int{xbar, core}, 3, 5, 2)
		Expect(ok).To(BeFalse())
		Expect(table.Slots(Lane{Pool: xbar, Index: 0})).To(BeEmpty())
		Expect(table.Slots(Lane{Pool: xbar, Index: 1})).To(BeEmpty())
	})

	It("should roll back a failed sequence", func() {
		_, ok := table.Insert([]int{core}, 6, 8, 9)
		Expect(ok).To(BeTrue())

		_, ok = table.InsertAll([]Placement{
			{Pools: []int{xbar, core}, Start: 0, End: 2, Owner: 1},
			{Pools: []int{core}, Start: 2, End: 5, Owner: 2},
			{Pools: []int{xbar, core}, Start: 5, End: 7, Owner: 3},
		})
		Expect(ok).To(BeFalse())
		Expect(table.Slots(Lane{Pool: core})).To(HaveLen(1))
		Expect(table.Demand(xbar)).To(Equal(0))

		lanes, ok := table.InsertAll([]Placement{
			{Pools: []int{xbar, core}, Start: 0, End: 2, Owner: 1},
			{Pools: []int{core}, Start: 2, End: 5, Owner: 2},
			{Pools: []int{xbar}, Start: 5, End: 7, Owner: 3},
		})
		Expect(ok).To(BeTrue())
		Expect(lanes).To(HaveLen(3))
		noOverlaps(table)
	})

	It("should propose starts in the gaps", func() {
		table.Insert([]int{core}, 0, 2, 1)
		table.Insert([]int{core}, 4, 6, 2)

		gaps := table.CandidateStarts([]int{core}, 0, 2)
		Expect(gaps).To(Equal([]Gap{{Start: 2, Length: 2}, {Start: 6, Length: Unbounded}}))

		gaps = table.CandidateStarts([]int{core}, 0, 3)
		Expect(gaps).To(Equal([]Gap{{Start: 6, Length: Unbounded}}))
	})
})

var _ = Describe("Periodic table", func() {
	var (
		table *Table
		core  int
	)

	BeforeEach(func() {
		table = New(4)
		core = table.AddPool(Key{Kind: KindCore, Instance: 0}, 1)
	})

	It("should fold reservations modulo the period", func() {
		_, ok := table.Insert([]int{core}, 1, 2, 1)
		Expect(ok).To(BeTrue())
		Expect(table.CanInsert([]int{core}, 5, 6)).To(BeFalse())
		Expect(table.CanInsert([]int{core}, 6, 7)).To(BeTrue())
	})

	It("should split an interval crossing the period boundary", func() {
		_, ok := table.Insert([]int{core}, 3, 5, 1)
		Expect(ok).To(BeTrue())
		slots := table.Slots(Lane{Pool: core})
		Expect(slots).To(HaveLen(2))
		Expect(slots[0].Start).To(Equal(0))
		Expect(slots[0].End).To(Equal(1))
		Expect(slots[1].Start).To(Equal(3))
		Expect(slots[1].End).To(Equal(4))
		Expect(table.CanInsert([]int{core}, 1, 3)).To(BeTrue())
		Expect(table.CanInsert([]int{core}, 0, 2)).To(BeFalse())
	})

	It("should never fit an interval longer than the period", func() {
		Expect(table.CanInsert([]int{core}, 0, 5)).To(BeFalse())
		Expect(table.CanInsert([]int{core}, 2, 6)).To(BeTrue())
	})

	It("should search candidates over one period", func() {
		table.Insert([]int{core}, 0, 1, 1)
		table.Insert([]int{core}, 2, 3, 2)

		gaps := table.CandidateStarts([]int{core}, 5, 1)
		Expect(gaps).To(Equal([]Gap{{Start: 5, Length: 1}, {Start: 7, Length: 1}}))
		Expect(table.CandidateStarts([]int{core}, 5, 2)).To(BeEmpty())
		Expect(table.Utilization(core)).To(BeNumerically("~", 0.5))
	})

	It("should clear reservations on reset", func() {
		table.Insert([]int{core}, 0, 4, 1)
		table.Reset(8)
		Expect(table.Period()).To(Equal(8))
		Expect(table.Slots(Lane{Pool: core})).To(BeEmpty())
	})
})
