// Package budget enforces the hard ceiling on paid research actions. All
// checks happen before dispatch; once an action is attempted its units are
// spent whether or not it succeeds.
package budget

import "fmt"

// ErrExceeded is returned when a charge would push usage past the ceiling.
type ErrExceeded struct {
	Requested int
	Used      int
	Max       int
}

func (e ErrExceeded) Error() string {
	return fmt.Sprintf("budget exceeded: requested %d with %d/%d used", e.Requested, e.Used, e.Max)
}

// Tracker is a pure accountant over an integer ceiling. It carries no usage
// of its own; the caller owns the used counter (it lives in the run state).
type Tracker struct {
	max          int
	imageReserve int
}

// NewTracker creates a tracker with the given ceiling and the number of units
// ring-fenced for the image probe on its first qualifying turn.
func NewTracker(max, imageReserve int) *Tracker {
	if imageReserve < 0 {
		imageReserve = 0
	}
	return &Tracker{max: max, imageReserve: imageReserve}
}

// Max returns the ceiling.
func (t *Tracker) Max() int { return t.max }

// Remaining returns how many units are left given current usage.
func (t *Tracker) Remaining(used int) int {
	r := t.max - used
	if r < 0 {
		return 0
	}
	return r
}

// CanAfford reports whether n more units fit under the ceiling.
func (t *Tracker) CanAfford(used, n int) bool {
	return n >= 0 && used+n <= t.max
}

// Charge returns the new usage after spending n units, or ErrExceeded without
// changing anything.
func (t *Tracker) Charge(used, n int) (int, error) {
	if !t.CanAfford(used, n) {
		return used, ErrExceeded{Requested: n, Used: used, Max: t.max}
	}
	return used + n, nil
}

// Split divides the remaining budget into an image pool and a general pool.
// When reserve is true (image hint present, probe not yet run) up to
// imageReserve units are set aside for image actions; the rest is general.
// Without the reserve everything is general. Advisory only: both pools still
// bound total spend through Charge.
func (t *Tracker) Split(used int, reserve bool) (imagePool, generalPool int) {
	rem := t.Remaining(used)
	if !reserve {
		return 0, rem
	}
	imagePool = t.imageReserve
	if imagePool > rem {
		imagePool = rem
	}
	return imagePool, rem - imagePool
}
