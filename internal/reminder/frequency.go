package reminder

import "errors"

// Frequency is how often a reminder may fire.
type Frequency string

const (
	Once   Frequency = "once"
	Daily  Frequency = "daily"
	Weekly Frequency = "weekly"
)

// ErrRecurrenceUnsupported is returned by Schedule for recurring frequencies
// that have no re-arming logic yet.
var ErrRecurrenceUnsupported = errors.New("recurring reminders are not supported yet")

// Schedule is the trigger policy a frequency resolves to.
type Schedule interface {
	// Rearms reports whether a fired reminder may fire again in the same process.
	Rearms() bool
}

type triggerOnce struct{}

func (triggerOnce) Rearms() bool { return false }

// TriggerOnce fires at most once per process lifetime.
var TriggerOnce Schedule = triggerOnce{}

// Schedule resolves the frequency. Daily and weekly return TriggerOnce
// together with ErrRecurrenceUnsupported.
func (f Frequency) Schedule() (Schedule, error) {
	switch f {
	case Once, "":
		return TriggerOnce, nil
	case Daily, Weekly:
		return TriggerOnce, ErrRecurrenceUnsupported
	default:
		return nil, errors.New("unknown frequency " + string(f))
	}
}

func (f Frequency) Known() bool {
	switch f {
	case Once, Daily, Weekly:
		return true
	}
	return false
}
