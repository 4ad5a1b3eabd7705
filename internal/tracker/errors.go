package tracker

import (
	"errors"

	"github.com/magefree/mage-tracker-go/internal/random"
)

// Validation rejections. A rejected intent leaves the match untouched: no
// state change, no log entry, no save.
var (
	ErrRosterFull              = errors.New("roster is at the format's maximum size")
	ErrRosterMinimum           = errors.New("roster is at the minimum size")
	ErrUnknownPlayer           = errors.New("player not found")
	ErrUnknownFormat           = errors.New("format not found")
	ErrUnknownTheme            = errors.New("theme not found")
	ErrInvalidColor            = errors.New("color identity not recognised")
	ErrSelfCommanderDamage     = errors.New("commander damage cannot come from the player itself")
	ErrCommanderDamageDisabled = errors.New("format does not track commander damage")
	ErrUnknownCommand          = errors.New("unknown player command")
	ErrNotStarted              = errors.New("controller not started")
	ErrInvalidDie              = random.ErrInvalidDie
)

// IsRejection reports whether err is a validation rejection rather than a fault.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrRosterFull, ErrRosterMinimum, ErrUnknownPlayer, ErrUnknownFormat,
		ErrUnknownTheme, ErrInvalidColor, ErrSelfCommanderDamage,
		ErrCommanderDamageDisabled, ErrUnknownCommand, ErrInvalidDie,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
