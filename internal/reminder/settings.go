package reminder

import (
	"fmt"
	"time"

	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/timeutil"
)

// Settings controls which reminder categories are issued
type Settings struct {
	Enabled    bool               `json:"enabled"`
	Water      WaterSettings      `json:"water"`
	Medication MedicationSettings `json:"medication"`
	CheckIn    CheckInSettings    `json:"check_in"`
}

// WaterSettings issues a hydration reminder every IntervalHours from Start to End
type WaterSettings struct {
	Enabled       bool                 `json:"enabled"`
	IntervalHours int                  `json:"interval_hours"`
	Start         timeutil.MinuteOfDay `json:"start"`
	End           timeutil.MinuteOfDay `json:"end"`
}

// MedicationSettings issues one reminder per dose slot of the active regimen
type MedicationSettings struct {
	Enabled bool `json:"enabled"`
}

// CheckInSettings issues the daily (or weekly, when Weekday is set) check-in reminder
type CheckInSettings struct {
	Enabled bool                 `json:"enabled"`
	Time    timeutil.MinuteOfDay `json:"time"`
	Weekday *time.Weekday        `json:"weekday,omitempty"`
}

// DefaultSettings returns settings with medication reminders on and the
// other categories off.
func DefaultSettings() Settings {
	return Settings{
		Enabled: true,
		Water: WaterSettings{
			Enabled:       false,
			IntervalHours: 2,
			Start:         timeutil.MustParseClock("08:00"),
			End:           timeutil.MustParseClock("20:00"),
		},
		Medication: MedicationSettings{Enabled: true},
		CheckIn: CheckInSettings{
			Enabled: false,
			Time:    timeutil.MustParseClock("20:00"),
		},
	}
}

// Validate checks that the settings describe a schedulable configuration
func (s Settings) Validate() error {
	if s.Water.IntervalHours < 1 || s.Water.IntervalHours > 24 {
		return fmt.Errorf("water interval must be between 1 and 24 hours, got %d", s.Water.IntervalHours)
	}
	if !s.Water.Start.Valid() || !s.Water.End.Valid() {
		return fmt.Errorf("water reminder window is out of range")
	}
	if s.Water.End < s.Water.Start {
		return fmt.Errorf("water reminder end %s is before start %s", s.Water.End, s.Water.Start)
	}
	if !s.CheckIn.Time.Valid() {
		return fmt.Errorf("check-in time is out of range")
	}
	if s.CheckIn.Weekday != nil && (*s.CheckIn.Weekday < time.Sunday || *s.CheckIn.Weekday > time.Saturday) {
		return fmt.Errorf("check-in weekday %d is out of range", int(*s.CheckIn.Weekday))
	}
	return nil
}
