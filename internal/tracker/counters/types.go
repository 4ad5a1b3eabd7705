// Package counters implements the counter arithmetic shared by player records.
package counters

// CounterType names a player counter.
type CounterType string

const (
	CounterTypePoison     CounterType = "poison"
	CounterTypeEnergy     CounterType = "energy"
	CounterTypeExperience CounterType = "experience"
)

// Elimination thresholds.
const (
	PoisonLethal    = 10
	CommanderLethal = 21
)

// String returns the string representation of the counter type.
func (ct CounterType) String() string {
	return string(ct)
}

// Logged reports whether changes to this counter are written to the event log.
// Only poison is; energy and experience are informational.
func (ct CounterType) Logged() bool {
	return ct == CounterTypePoison
}
