package reminder

import (
	"fmt"
	"sort"

	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/timeutil"
)

// Block is the reserved trigger ID range of one category
type Block struct {
	Category model.ReminderCategory
	Base     int
	Size     int
}

// Contains reports whether id falls inside b
func (b Block) Contains(id int) bool {
	return id >= b.Base && id < b.Base+b.Size
}

// blocks lists every category in reschedule order
var blocks = []Block{
	{Category: model.ReminderCategoryWater, Base: 1000, Size: 100},
	{Category: model.ReminderCategoryMedication, Base: 2000, Size: 1000},
	{Category: model.ReminderCategoryCheckIn, Base: 4000, Size: 10},
}

// Blocks returns the trigger ID block of every category
func Blocks() []Block {
	return append([]Block(nil), blocks...)
}

// Categories returns every reminder category in reschedule order
func Categories() []model.ReminderCategory {
	out := make([]model.ReminderCategory, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.Category)
	}
	return out
}

// BlockFor returns the ID block of category
func BlockFor(category model.ReminderCategory) (Block, bool) {
	for _, b := range blocks {
		if b.Category == category {
			return b, true
		}
	}
	return Block{}, false
}

// CategoryOf returns the category whose ID block holds id
func CategoryOf(id int) (model.ReminderCategory, bool) {
	for _, b := range blocks {
		if b.Contains(id) {
			return b.Category, true
		}
	}
	return "", false
}

func validateBlocks(bs []Block) error {
	for i, a := range bs {
		if a.Size <= 0 {
			return fmt.Errorf("category %s has an empty id block", a.Category)
		}
		for _, b := range bs[i+1:] {
			if a.Category == b.Category {
				return fmt.Errorf("category %s has two id blocks", a.Category)
			}
			if a.Base < b.Base+b.Size && b.Base < a.Base+a.Size {
				return fmt.Errorf("id blocks of %s and %s overlap", a.Category, b.Category)
			}
		}
	}
	return nil
}

// BuildTriggers computes the triggers of one category. IDs are assigned as
// block base plus index over a stable ordering, so the same inputs always
// yield the same triggers. Slots beyond the block size are not returned;
// dropped reports how many.
func BuildTriggers(category model.ReminderCategory, settings Settings, meds []model.Medication) (triggers []model.ReminderTrigger, dropped int) {
	block, ok := BlockFor(category)
	if !ok {
		panic(fmt.Sprintf("reminder: unknown category %q", category))
	}
	if !settings.Enabled {
		return nil, 0
	}

	var specs []model.ReminderTrigger
	switch category {
	case model.ReminderCategoryWater:
		if settings.Water.Enabled {
			specs = waterTriggers(settings.Water)
		}
	case model.ReminderCategoryMedication:
		if settings.Medication.Enabled {
			specs = medicationTriggers(meds)
		}
	case model.ReminderCategoryCheckIn:
		if settings.CheckIn.Enabled {
			specs = checkInTriggers(settings.CheckIn)
		}
	}

	if len(specs) > block.Size {
		dropped = len(specs) - block.Size
		specs = specs[:block.Size]
	}
	for i := range specs {
		specs[i].ID = block.Base + i
		specs[i].Category = category
	}
	return specs, dropped
}

func waterTriggers(s WaterSettings) []model.ReminderTrigger {
	if s.IntervalHours <= 0 {
		return nil
	}
	var out []model.ReminderTrigger
	for h := s.Start.Hour(); h <= s.End.Hour(); h += s.IntervalHours {
		out = append(out, model.ReminderTrigger{
			Fire:  model.FireSpec{Hour: h, Minute: s.Start.Minute()},
			Title: "Time to Hydrate",
			Body:  "Drink some water! Staying hydrated helps keep uric acid levels down.",
		})
	}
	return out
}

func medicationTriggers(meds []model.Medication) []model.ReminderTrigger {
	scheduled := make([]model.Medication, 0, len(meds))
	for _, med := range meds {
		if med.Active && med.Frequency.Scheduled() {
			scheduled = append(scheduled, med)
		}
	}
	sort.SliceStable(scheduled, func(i, j int) bool { return scheduled[i].ID < scheduled[j].ID })

	var out []model.ReminderTrigger
	for _, med := range scheduled {
		times := append([]timeutil.MinuteOfDay(nil), med.ReminderTimes...)
		sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

		for _, t := range times {
			t.MustValid()
			out = append(out, model.ReminderTrigger{
				Fire:  model.FireSpec{Hour: t.Hour(), Minute: t.Minute()},
				Title: fmt.Sprintf("Time for %s", med.Name),
				Body:  fmt.Sprintf("Take %s of %s.", med.Dosage, med.Name),
			})
		}
	}
	return out
}

func checkInTriggers(s CheckInSettings) []model.ReminderTrigger {
	fire := model.FireSpec{Hour: s.Time.Hour(), Minute: s.Time.Minute()}
	title := "Daily Gout Check-In"
	if s.Weekday != nil {
		wd := *s.Weekday
		fire.Weekday = &wd
		title = "Weekly Gout Check-In"
	}
	return []model.ReminderTrigger{{
		Fire:  fire,
		Title: title,
		Body:  "How are your joints feeling today? Log any flare symptoms to track patterns.",
	}}
}
