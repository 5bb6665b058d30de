package model

import (
	"time"

	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/timeutil"
)

// Frequency describes how often a medication is taken
type Frequency string

const (
	FrequencyOnceDaily   Frequency = "once-daily"
	FrequencyTwiceDaily  Frequency = "twice-daily"
	FrequencyThriceDaily Frequency = "thrice-daily"
	FrequencyAsNeeded    Frequency = "as-needed"
	FrequencyCustom      Frequency = "custom"
)

// Valid reports whether f is one of the known frequencies
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOnceDaily, FrequencyTwiceDaily, FrequencyThriceDaily, FrequencyAsNeeded, FrequencyCustom:
		return true
	}
	return false
}

// Scheduled reports whether medications with this frequency have reminder times
func (f Frequency) Scheduled() bool {
	return f != FrequencyAsNeeded
}

// DefaultReminderTimes returns the reminder times a new medication of this
// frequency gets when none were supplied. Custom and as-needed have none.
func (f Frequency) DefaultReminderTimes() []timeutil.MinuteOfDay {
	switch f {
	case FrequencyOnceDaily:
		return []timeutil.MinuteOfDay{480}
	case FrequencyTwiceDaily:
		return []timeutil.MinuteOfDay{480, 1200}
	case FrequencyThriceDaily:
		return []timeutil.MinuteOfDay{480, 840, 1200}
	}
	return nil
}

// Medication is one entry of the patient's regimen
type Medication struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Dosage        string                 `json:"dosage"`
	Frequency     Frequency              `json:"frequency"`
	ReminderTimes []timeutil.MinuteOfDay `json:"reminder_times"`
	Active        bool                   `json:"active"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// Clone returns a deep copy of m
func (m Medication) Clone() Medication {
	out := m
	if m.ReminderTimes != nil {
		out.ReminderTimes = append([]timeutil.MinuteOfDay(nil), m.ReminderTimes...)
	}
	return out
}

// DoseEvent records one confirmed dose. Taken is true for every logged
// dose. The name is a snapshot so the event stays readable after the
// medication is deleted.
type DoseEvent struct {
	MedicationID   string    `json:"medication_id"`
	MedicationName string    `json:"medication_name"`
	Timestamp      time.Time `json:"timestamp"`
	Taken          bool      `json:"taken"`
}

// DoseStatus classifies a scheduled dose
type DoseStatus string

const (
	DoseStatusTaken    DoseStatus = "taken"
	DoseStatusMissed   DoseStatus = "missed"
	DoseStatusUpcoming DoseStatus = "upcoming"
)

// ScheduledDose is one reminder slot of today's schedule
type ScheduledDose struct {
	MedicationID   string               `json:"medication_id"`
	MedicationName string               `json:"medication_name"`
	ScheduledTime  timeutil.MinuteOfDay `json:"scheduled_time"`
	Status         DoseStatus           `json:"status"`
	TakenAt        *time.Time           `json:"taken_at,omitempty"`
}

// RuleMode controls how many trigger names must match for a rule to fire
type RuleMode string

const (
	RuleModeAny RuleMode = "any"
	RuleModeAll RuleMode = "all"
)

// InteractionRule is one row of the interaction rule table
type InteractionRule struct {
	ID           string   `json:"id" yaml:"id"`
	TriggerNames []string `json:"trigger_names" yaml:"trigger_names"`
	Mode         RuleMode `json:"mode" yaml:"mode"`
	Message      string   `json:"message" yaml:"message"`
}

// InteractionWarning is a rule that fired against the active regimen
type InteractionWarning struct {
	RuleID       string   `json:"rule_id"`
	Message      string   `json:"message"`
	TriggerNames []string `json:"trigger_names"`
}

// ReminderCategory groups reminder triggers that are rescheduled together
type ReminderCategory string

const (
	ReminderCategoryWater      ReminderCategory = "water"
	ReminderCategoryMedication ReminderCategory = "medication"
	ReminderCategoryCheckIn    ReminderCategory = "check-in"
)

// FireSpec is a recurring wall-clock fire time. It fires daily unless
// Weekday is set.
type FireSpec struct {
	Hour    int           `json:"hour"`
	Minute  int           `json:"minute"`
	Weekday *time.Weekday `json:"weekday,omitempty"`
}

// ReminderTrigger is a recurring notification handed to the notification service
type ReminderTrigger struct {
	ID       int              `json:"id"`
	Category ReminderCategory `json:"category"`
	Fire     FireSpec         `json:"fire"`
	Title    string           `json:"title"`
	Body     string           `json:"body"`
}

// CellStatus is the colour class of one day of one medication's adherence row
type CellStatus string

const (
	CellStatusFull    CellStatus = "full"
	CellStatusPartial CellStatus = "partial"
	CellStatusMissed  CellStatus = "missed"
	CellStatusPending CellStatus = "pending"
)

// DayCell is one medication's adherence on one day
type DayCell struct {
	Date     timeutil.Date `json:"date"`
	Taken    int           `json:"taken"`
	Expected int           `json:"expected"`
	Status   CellStatus    `json:"status"`
}

// MedicationAdherence is one row of the weekly report
type MedicationAdherence struct {
	MedicationID   string    `json:"medication_id"`
	MedicationName string    `json:"medication_name"`
	ExpectedPerDay int       `json:"expected_per_day"`
	Days           []DayCell `json:"days"`
}

// WeeklyReport summarises adherence over a date range
type WeeklyReport struct {
	Dates             []timeutil.Date       `json:"dates"`
	Rows              []MedicationAdherence `json:"rows"`
	TotalExpected     int                   `json:"total_expected"`
	TotalTaken        int                   `json:"total_taken"`
	CompliancePercent int                   `json:"compliance_percent"`
}
