package counters

import "sort"

// Adjust applies delta to current and floors the result at zero.
func Adjust(current, delta int) int {
	return Floor(current + delta)
}

// Floor clamps negative counter values to zero.
func Floor(value int) int {
	if value < 0 {
		return 0
	}
	return value
}

// Ledger tracks commander damage a player has taken, keyed by opponent id.
// Entries are created lazily on the first increment.
type Ledger map[int]int

// Get returns the damage taken from the opponent, 0 when absent.
func (l Ledger) Get(opponentID int) int {
	return l[opponentID]
}

// Add records amount more damage from the opponent and returns the new value.
func (l Ledger) Add(opponentID, amount int) int {
	if amount <= 0 {
		return l[opponentID]
	}
	l[opponentID] += amount
	return l[opponentID]
}

// Remove subtracts amount from an existing entry without going below 0.
// Absent entries stay absent.
func (l Ledger) Remove(opponentID, amount int) int {
	current, ok := l[opponentID]
	if !ok || amount <= 0 {
		return current
	}
	l[opponentID] = Floor(current - amount)
	return l[opponentID]
}

// Delete drops the entry for the opponent.
func (l Ledger) Delete(opponentID int) {
	delete(l, opponentID)
}

// Lethal returns the first opponent (lowest id) whose damage reached the
// commander threshold.
func (l Ledger) Lethal() (int, bool) {
	for _, id := range l.sortedIDs() {
		if l[id] >= CommanderLethal {
			return id, true
		}
	}
	return 0, false
}

// Total returns the sum of all commander damage taken.
func (l Ledger) Total() int {
	total := 0
	for _, v := range l {
		total += v
	}
	return total
}

// Copy creates a deep copy of the ledger. A nil ledger copies to an empty one.
func (l Ledger) Copy() Ledger {
	out := make(Ledger, len(l))
	for id, v := range l {
		out[id] = v
	}
	return out
}

// ToView converts the ledger to a slice ordered by opponent id.
func (l Ledger) ToView() []LedgerView {
	views := make([]LedgerView, 0, len(l))
	for _, id := range l.sortedIDs() {
		views = append(views, LedgerView{OpponentID: id, Damage: l[id], Lethal: l[id] >= CommanderLethal})
	}
	return views
}

func (l Ledger) sortedIDs() []int {
	ids := make([]int, 0, len(l))
	for id := range l {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// LedgerView is one row of the commander-damage panel.
type LedgerView struct {
	OpponentID int  `json:"opponentId"`
	Damage     int  `json:"damage"`
	Lethal     bool `json:"lethal"`
}
