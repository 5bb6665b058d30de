// Package adherence computes per-day and overall dose compliance over a
// window of calendar days.
package adherence

import (
	"fmt"
	"math"

	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/timeutil"
)

// DoseLookup returns the doses logged on a date
type DoseLookup func(timeutil.Date) []model.DoseEvent

// ComputeWeeklyAdherence builds one row per active, scheduled medication
// over dates, which must be strictly ascending. A medication's expected
// doses per day is its reminder-time count; taken doses beyond that do
// not count. today decides whether an empty past day is missed or pending.
// lookup is called once per date.
func ComputeWeeklyAdherence(meds []model.Medication, dates []timeutil.Date, lookup DoseLookup, today timeutil.Date) model.WeeklyReport {
	for i := 1; i < len(dates); i++ {
		if !dates[i-1].Before(dates[i]) {
			panic(fmt.Sprintf("adherence: dates not ascending at %s", dates[i]))
		}
	}

	// date index -> medication ID -> taken count
	takenByDay := make([]map[string]int, len(dates))
	for i, d := range dates {
		counts := make(map[string]int)
		for _, ev := range lookup(d) {
			if ev.Taken {
				counts[ev.MedicationID]++
			}
		}
		takenByDay[i] = counts
	}

	report := model.WeeklyReport{
		Dates: append([]timeutil.Date(nil), dates...),
		Rows:  []model.MedicationAdherence{},
	}

	for _, med := range meds {
		if !med.Active || !med.Frequency.Scheduled() {
			continue
		}

		expected := len(med.ReminderTimes)
		row := model.MedicationAdherence{
			MedicationID:   med.ID,
			MedicationName: med.Name,
			ExpectedPerDay: expected,
			Days:           make([]model.DayCell, 0, len(dates)),
		}

		for i, d := range dates {
			taken := min(takenByDay[i][med.ID], expected)
			row.Days = append(row.Days, model.DayCell{
				Date:     d,
				Taken:    taken,
				Expected: expected,
				Status:   cellStatus(taken, expected, d, today),
			})
			report.TotalExpected += expected
			report.TotalTaken += taken
		}

		report.Rows = append(report.Rows, row)
	}

	report.CompliancePercent = CompliancePercent(report.TotalTaken, report.TotalExpected)
	return report
}

// CompliancePercent rounds taken/expected to a whole percentage. No
// expected doses counts as fully compliant.
func CompliancePercent(taken, expected int) int {
	if expected <= 0 {
		return 100
	}
	pct := int(math.Round(100 * float64(taken) / float64(expected)))
	return max(0, min(pct, 100))
}

func cellStatus(taken, expected int, date, today timeutil.Date) model.CellStatus {
	switch {
	case expected > 0 && taken >= expected:
		return model.CellStatusFull
	case taken > 0:
		return model.CellStatusPartial
	case date.Before(today):
		return model.CellStatusMissed
	default:
		return model.CellStatusPending
	}
}
