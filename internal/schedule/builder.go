// Package schedule derives a day's dose slots from the regimen and
// classifies each slot against the doses logged that day.
package schedule

import (
	"sort"
	"time"

	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/timeutil"
)

const (
	// DefaultMatchWindow is how far a logged dose may sit from its slot and still satisfy it
	DefaultMatchWindow = 120 * time.Minute
	// DefaultMissedAfter is how long past its slot an unmatched dose stays upcoming
	DefaultMissedAfter = 60 * time.Minute
)

// Policy holds the classification thresholds
type Policy struct {
	MatchWindow time.Duration
	MissedAfter time.Duration
}

// DefaultPolicy returns the standard thresholds
func DefaultPolicy() Policy {
	return Policy{MatchWindow: DefaultMatchWindow, MissedAfter: DefaultMissedAfter}
}

// Builder builds daily schedules under a fixed policy
type Builder struct {
	matchWindow int
	missedAfter int
}

// NewBuilder creates a Builder. Zero or negative durations fall back to the defaults.
func NewBuilder(policy Policy) *Builder {
	if policy.MatchWindow <= 0 {
		policy.MatchWindow = DefaultMatchWindow
	}
	if policy.MissedAfter <= 0 {
		policy.MissedAfter = DefaultMissedAfter
	}
	return &Builder{
		matchWindow: int(policy.MatchWindow / time.Minute),
		missedAfter: int(policy.MissedAfter / time.Minute),
	}
}

// BuildTodaySchedule builds today's schedule with the default policy
func BuildTodaySchedule(meds []model.Medication, todaysDoses []model.DoseEvent, now time.Time) []model.ScheduledDose {
	return NewBuilder(DefaultPolicy()).BuildTodaySchedule(meds, todaysDoses, now)
}

// BuildTodaySchedule emits one slot per reminder time of every active,
// scheduled medication. A slot is taken when a taken event of the same
// medication lies strictly within the match window of it, missed once the
// grace period has passed, and upcoming otherwise. Each logged event
// satisfies at most one slot; slots are visited in reminder-time order so
// the earliest eligible slot claims it.
//
// Minutes of day are read in now's location. A reminder time outside
// 0-1439 panics.
func (b *Builder) BuildTodaySchedule(meds []model.Medication, todaysDoses []model.DoseEvent, now time.Time) []model.ScheduledDose {
	loc := now.Location()
	nowMinute := int(timeutil.MinuteOf(now))

	byMedication := make(map[string][]int)
	for i, ev := range todaysDoses {
		if ev.Taken {
			byMedication[ev.MedicationID] = append(byMedication[ev.MedicationID], i)
		}
	}
	consumed := make([]bool, len(todaysDoses))

	var out []model.ScheduledDose
	for _, med := range meds {
		if !med.Active || !med.Frequency.Scheduled() {
			continue
		}

		times := append([]timeutil.MinuteOfDay(nil), med.ReminderTimes...)
		sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

		for _, slot := range times {
			slot.MustValid()

			dose := model.ScheduledDose{
				MedicationID:   med.ID,
				MedicationName: med.Name,
				ScheduledTime:  slot,
			}

			if idx, ok := b.match(slot, byMedication[med.ID], todaysDoses, consumed, loc); ok {
				consumed[idx] = true
				takenAt := todaysDoses[idx].Timestamp
				dose.Status = model.DoseStatusTaken
				dose.TakenAt = &takenAt
			} else if int(slot)+b.missedAfter < nowMinute {
				dose.Status = model.DoseStatusMissed
			} else {
				dose.Status = model.DoseStatusUpcoming
			}

			out = append(out, dose)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ScheduledTime != out[j].ScheduledTime {
			return out[i].ScheduledTime < out[j].ScheduledTime
		}
		return out[i].MedicationID < out[j].MedicationID
	})

	return out
}

func (b *Builder) match(slot timeutil.MinuteOfDay, candidates []int, doses []model.DoseEvent, consumed []bool, loc *time.Location) (int, bool) {
	for _, idx := range candidates {
		if consumed[idx] {
			continue
		}
		doseMinute := int(timeutil.MinuteOf(doses[idx].Timestamp.In(loc)))
		if abs(doseMinute-int(slot)) < b.matchWindow {
			return idx, true
		}
	}
	return 0, false
}

// Unscheduled returns the active as-needed medications, which have no slots
// and are taken on demand.
func Unscheduled(meds []model.Medication) []model.Medication {
	var out []model.Medication
	for _, med := range meds {
		if med.Active && med.Frequency == model.FrequencyAsNeeded {
			out = append(out, med)
		}
	}
	return out
}

// NextReminder returns the first reminder time of med strictly after now,
// or the earliest reminder time tomorrow when today's have all passed. It
// returns false when med has no reminder times.
func NextReminder(med model.Medication, now time.Time) (time.Time, bool) {
	if len(med.ReminderTimes) == 0 {
		return time.Time{}, false
	}

	times := append([]timeutil.MinuteOfDay(nil), med.ReminderTimes...)
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	today := timeutil.DateOf(now)
	nowMinute := timeutil.MinuteOf(now)
	for _, t := range times {
		if t.MustValid() > nowMinute {
			return t.On(today, now.Location()), true
		}
	}
	return times[0].On(today.AddDays(1), now.Location()), true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
