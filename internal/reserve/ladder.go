package reserve

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// entry wraps a Tranche inside a ladder. Refill-generated tranches are tagged
// so that retirement can unwind them without touching seeded supply.
type entry struct {
	t      Tranche
	refill bool
}

// Ladder is an ordered sequence of tranches forming one side of the market.
// Prices are non-decreasing by position and volumes strictly positive; fully
// consumed tranches are removed, never left at zero volume.
//
// The issuance ladder is consumed from the front (lowest price first), the
// retirement ladder from the back (highest price first, LIFO). The named
// consume-direction methods keep the two usages explicit.
type Ladder struct {
	entries []entry
}

// NewLadder returns an empty ladder.
func NewLadder() *Ladder {
	return &Ladder{}
}

// Len returns the number of tranches on the ladder.
func (l *Ladder) Len() int { return len(l.entries) }

// Empty reports whether the ladder holds no tranches.
func (l *Ladder) Empty() bool { return len(l.entries) == 0 }

// Front returns the lowest-price tranche without consuming it.
func (l *Ladder) Front() (Tranche, bool) {
	if len(l.entries) == 0 {
		return Tranche{}, false
	}
	return l.entries[0].t, true
}

// Back returns the highest-price tranche without consuming it.
func (l *Ladder) Back() (Tranche, bool) {
	if len(l.entries) == 0 {
		return Tranche{}, false
	}
	return l.entries[len(l.entries)-1].t, true
}

// BackIsRefill reports whether the back tranche was generated by a refill.
func (l *Ladder) BackIsRefill() bool {
	return len(l.entries) > 0 && l.entries[len(l.entries)-1].refill
}

// PopFront removes the front tranche entirely.
func (l *Ladder) PopFront() {
	l.entries = l.entries[1:]
}

// PopBack removes the back tranche entirely.
func (l *Ladder) PopBack() {
	l.entries = l.entries[:len(l.entries)-1]
}

// ShrinkFront replaces the front tranche with one reduced by the given volume.
func (l *Ladder) ShrinkFront(by decimal.Decimal) {
	e := l.entries[0]
	l.entries[0] = entry{t: Tranche{Price: e.t.Price, Volume: e.t.Volume.Sub(by)}, refill: e.refill}
}

// ShrinkBack replaces the back tranche with one reduced by the given volume.
func (l *Ladder) ShrinkBack(by decimal.Decimal) {
	i := len(l.entries) - 1
	e := l.entries[i]
	l.entries[i] = entry{t: Tranche{Price: e.t.Price, Volume: e.t.Volume.Sub(by)}, refill: e.refill}
}

// Append adds a tranche at the back of the ladder.
func (l *Ladder) Append(t Tranche) {
	l.entries = append(l.entries, entry{t: t})
}

// AppendRefill adds a refill-generated tranche at the back of the ladder.
func (l *Ladder) AppendRefill(t Tranche) {
	l.entries = append(l.entries, entry{t: t, refill: true})
}

// AppendMerge adds a tranche at the back, coalescing with the current back
// tranche when prices are equal. Used when recording consumed issuance slices
// onto the retirement ladder.
func (l *Ladder) AppendMerge(t Tranche) {
	if n := len(l.entries); n > 0 && l.entries[n-1].t.Price.Equal(t.Price) && !l.entries[n-1].refill {
		l.entries[n-1].t = Tranche{Price: t.Price, Volume: l.entries[n-1].t.Volume.Add(t.Volume)}
		return
	}
	l.Append(t)
}

// PushFront adds a tranche at the front of the ladder, coalescing with the
// current front tranche when prices are equal. Used when retirement restores
// consumed volume to the issuance ladder.
func (l *Ladder) PushFront(t Tranche) {
	if len(l.entries) > 0 && l.entries[0].t.Price.Equal(t.Price) {
		l.entries[0].t = Tranche{Price: t.Price, Volume: l.entries[0].t.Volume.Add(t.Volume)}
		return
	}
	l.entries = append([]entry{{t: t}}, l.entries...)
}

// Clone returns an independent copy of the ladder. Issue and retire compute
// on a clone and commit only on success, so failures leave no partial state.
func (l *Ladder) Clone() *Ladder {
	c := &Ladder{entries: make([]entry, len(l.entries))}
	copy(c.entries, l.entries)
	return c
}

// Snapshot returns the tranches in ladder order for read-only consumers.
func (l *Ladder) Snapshot() []Tranche {
	out := make([]Tranche, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.t
	}
	return out
}

// TotalVolume returns the sum of all tranche volumes.
func (l *Ladder) TotalVolume() decimal.Decimal {
	total := decimal.Zero
	for _, e := range l.entries {
		total = total.Add(e.t.Volume)
	}
	return total
}

// Validate checks the ladder invariant: strictly positive volumes and
// non-decreasing prices by position.
func (l *Ladder) Validate() error {
	for i, e := range l.entries {
		if !e.t.Volume.IsPositive() {
			return fmt.Errorf("tranche %d has non-positive volume %s", i, e.t.Volume)
		}
		if i > 0 && e.t.Price.LessThan(l.entries[i-1].t.Price) {
			return fmt.Errorf("tranche %d price %s below predecessor %s", i, e.t.Price, l.entries[i-1].t.Price)
		}
	}
	return nil
}
