package adherence

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/timeutil"
)

var today = timeutil.Date{Year: 2025, Month: time.March, Day: 10}

func onceDaily(id string) model.Medication {
	return model.Medication{
		ID:            id,
		Name:          id,
		Frequency:     model.FrequencyOnceDaily,
		ReminderTimes: []timeutil.MinuteOfDay{480},
		Active:        true,
	}
}

func logOf(days map[timeutil.Date][]model.DoseEvent) DoseLookup {
	return func(d timeutil.Date) []model.DoseEvent { return days[d] }
}

func dose(medID string, d timeutil.Date) model.DoseEvent {
	return model.DoseEvent{MedicationID: medID, Timestamp: timeutil.MinuteOfDay(480).On(d, time.UTC), Taken: true}
}

func TestComputeWeeklyAdherence_FiveOfSevenDays(t *testing.T) {
	dates := timeutil.Window(today, 7)
	log := make(map[timeutil.Date][]model.DoseEvent)
	for _, d := range dates[:5] {
		log[d] = []model.DoseEvent{dose("allopurinol", d)}
	}

	report := ComputeWeeklyAdherence([]model.Medication{onceDaily("allopurinol")}, dates, logOf(log), today)

	assert.Equal(t, 7, report.TotalExpected)
	assert.Equal(t, 5, report.TotalTaken)
	assert.Equal(t, 71, report.CompliancePercent)

	require.Len(t, report.Rows, 1)
	days := report.Rows[0].Days
	require.Len(t, days, 7)
	assert.Equal(t, model.CellStatusFull, days[0].Status)
	assert.Equal(t, model.CellStatusMissed, days[5].Status)
	assert.Equal(t, model.CellStatusPending, days[6].Status)
}

func TestComputeWeeklyAdherence_CapsExtraDoses(t *testing.T) {
	dates := timeutil.Window(today, 2)
	log := map[timeutil.Date][]model.DoseEvent{
		dates[0]: {dose("a", dates[0]), dose("a", dates[0]), dose("a", dates[0])},
	}

	report := ComputeWeeklyAdherence([]model.Medication{onceDaily("a")}, dates, logOf(log), today)

	assert.Equal(t, 1, report.Rows[0].Days[0].Taken)
	assert.Equal(t, 1, report.TotalTaken)
	assert.Equal(t, 50, report.CompliancePercent)
}

func TestComputeWeeklyAdherence_PartialAndUntaken(t *testing.T) {
	med := onceDaily("a")
	med.ReminderTimes = []timeutil.MinuteOfDay{480, 1200}
	dates := []timeutil.Date{today}
	log := map[timeutil.Date][]model.DoseEvent{
		today: {dose("a", today), {MedicationID: "a", Timestamp: today.Midnight(time.UTC)}},
	}

	report := ComputeWeeklyAdherence([]model.Medication{med}, dates, logOf(log), today)

	cell := report.Rows[0].Days[0]
	assert.Equal(t, 1, cell.Taken)
	assert.Equal(t, 2, cell.Expected)
	assert.Equal(t, model.CellStatusPartial, cell.Status)
}

func TestComputeWeeklyAdherence_NoScheduledMedications(t *testing.T) {
	asNeeded := model.Medication{ID: "n", Frequency: model.FrequencyAsNeeded, Active: true}
	inactive := onceDaily("i")
	inactive.Active = false

	report := ComputeWeeklyAdherence([]model.Medication{asNeeded, inactive}, timeutil.Window(today, 7), logOf(nil), today)

	assert.Empty(t, report.Rows)
	assert.Equal(t, 0, report.TotalExpected)
	assert.Equal(t, 100, report.CompliancePercent)
}

func TestComputeWeeklyAdherence_CallsLookupOncePerDate(t *testing.T) {
	calls := make(map[timeutil.Date]int)
	lookup := func(d timeutil.Date) []model.DoseEvent {
		calls[d]++
		return nil
	}

	ComputeWeeklyAdherence([]model.Medication{onceDaily("a"), onceDaily("b")}, timeutil.Window(today, 7), lookup, today)

	assert.Len(t, calls, 7)
	for _, n := range calls {
		assert.Equal(t, 1, n)
	}
}

func TestComputeWeeklyAdherence_PanicsOnUnorderedDates(t *testing.T) {
	assert.Panics(t, func() {
		ComputeWeeklyAdherence(nil, []timeutil.Date{today, today.AddDays(-1)}, logOf(nil), today)
	})
}

func TestProperty_CompliancePercentBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("compliance is within 0-100 for any dose log", prop.ForAll(
		func(perDay []int, reminders int) bool {
			med := onceDaily("a")
			med.ReminderTimes = nil
			for i := 0; i < reminders; i++ {
				med.ReminderTimes = append(med.ReminderTimes, timeutil.MinuteOfDay(i*60))
			}

			dates := timeutil.Window(today, len(perDay))
			log := make(map[timeutil.Date][]model.DoseEvent)
			for i, n := range perDay {
				for j := 0; j < n; j++ {
					log[dates[i]] = append(log[dates[i]], dose("a", dates[i]))
				}
			}

			report := ComputeWeeklyAdherence([]model.Medication{med}, dates, logOf(log), today)
			if report.CompliancePercent < 0 || report.CompliancePercent > 100 {
				return false
			}
			if report.TotalExpected == 0 && report.CompliancePercent != 100 {
				return false
			}
			return report.TotalTaken <= report.TotalExpected
		},
		gen.SliceOfN(7, gen.IntRange(0, 5)),
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}
