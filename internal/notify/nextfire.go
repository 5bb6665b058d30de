package notify

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
)

var rruleDays = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// RRule renders fire as an RFC 5545 recurrence rule
func RRule(fire model.FireSpec) string {
	if fire.Weekday != nil {
		return fmt.Sprintf("FREQ=WEEKLY;BYDAY=%s;BYHOUR=%d;BYMINUTE=%d;BYSECOND=0",
			rruleDays[*fire.Weekday], fire.Hour, fire.Minute)
	}
	return fmt.Sprintf("FREQ=DAILY;BYHOUR=%d;BYMINUTE=%d;BYSECOND=0", fire.Hour, fire.Minute)
}

// NextFire returns the first n instants strictly after after at which fire
// triggers, evaluated in after's location.
func NextFire(fire model.FireSpec, after time.Time, n int) ([]time.Time, error) {
	if err := validateFire(fire); err != nil {
		return nil, err
	}

	opt, err := rrule.StrToROption(RRule(fire))
	if err != nil {
		return nil, fmt.Errorf("failed to parse recurrence rule: %w", err)
	}
	y, m, d := after.Date()
	opt.Dtstart = time.Date(y, m, d, 0, 0, 0, 0, after.Location())

	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("failed to build recurrence rule: %w", err)
	}

	out := make([]time.Time, 0, n)
	cursor := after
	for len(out) < n {
		next := rule.After(cursor, false)
		if next.IsZero() {
			break
		}
		out = append(out, next)
		cursor = next
	}
	return out, nil
}
