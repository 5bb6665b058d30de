// Command reminder-preview computes the reminder triggers for a regimen
// without delivering anything, and prints when each one fires next.
//
// The regimen is read from a YAML file (-regimen) or, without one, from the
// configured database.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vcscsvcscs/goutguard/apps/backend/internal/audit"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/config"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/notify"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/reminder"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/repository"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/service"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/timeutil"
)

// regimenEntry is one medication of a regimen file
type regimenEntry struct {
	Name          string                 `yaml:"name"`
	Dosage        string                 `yaml:"dosage"`
	Frequency     model.Frequency        `yaml:"frequency"`
	ReminderTimes []timeutil.MinuteOfDay `yaml:"reminder_times"`
	Active        *bool                  `yaml:"active"`
}

func main() {
	regimenFile := pflag.StringP("regimen", "r", "", "YAML regimen file; the configured database is used when empty")
	count := pflag.IntP("count", "n", 1, "number of upcoming fire times to print per trigger")
	asJSON := pflag.Bool("json", false, "print the reminder status as JSON")
	denied := pflag.Bool("denied", false, "simulate refused notification permission")
	pflag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *regimenFile != "" {
		// the file stands in for the database
		_ = os.Setenv("STORAGE_DRIVER", "memory")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("Failed to load timezone", zap.Error(err))
	}
	settings, err := cfg.ReminderSettings()
	if err != nil {
		logger.Fatal("Invalid reminder settings", zap.Error(err))
	}

	ctx := context.Background()
	recorder := notify.NewRecorder()
	if *denied {
		recorder.SetPermission(false)
		recorder.RequestGrants = false
	}
	scheduler := reminder.NewScheduler(recorder, settings, logger)

	var regimen repository.RegimenStore
	if *regimenFile != "" {
		regimen, err = loadRegimenFile(ctx, *regimenFile, scheduler, logger)
	} else {
		regimen, err = openRegimen(ctx, cfg, logger)
	}
	if err != nil {
		logger.Fatal("Failed to load regimen", zap.Error(err))
	}

	reminders := service.NewReminderService(scheduler, regimen, nil, loc, logger)
	if err := reminders.RescheduleAll(ctx); err != nil {
		logger.Error("Some reminders could not be scheduled", zap.Error(err))
	}
	status := reminders.Status(ctx)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			logger.Fatal("Failed to encode status", zap.Error(err))
		}
		return
	}

	printStatus(status, *count, time.Now().In(loc))
}

// loadRegimenFile validates every entry the way the API does and keeps the
// result in memory
func loadRegimenFile(ctx context.Context, path string, scheduler *reminder.Scheduler, logger *zap.Logger) (repository.RegimenStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read regimen file: %w", err)
	}

	var entries []regimenEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse regimen file: %w", err)
	}

	repo := repository.NewMemoryMedicationRepository()
	meds := service.NewMedicationService(repo, audit.NewLogger(audit.NewMemoryStore(), logger), scheduler, logger)
	for i, e := range entries {
		_, err := meds.AddMedication(ctx, service.MedicationInput{
			Name:          e.Name,
			Dosage:        e.Dosage,
			Frequency:     e.Frequency,
			ReminderTimes: e.ReminderTimes,
			Active:        e.Active,
		})
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i+1, e.Name, err)
		}
	}
	return repo, nil
}

func openRegimen(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.RegimenStore, error) {
	if cfg.Storage.Driver == "memory" {
		return nil, fmt.Errorf("storage driver is memory; pass --regimen")
	}
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return repository.NewPostgresMedicationRepository(pool, logger), nil
}

func printStatus(status service.ReminderStatus, count int, now time.Time) {
	fmt.Printf("reminders enabled: %t, permission granted: %t\n\n", status.Enabled, status.PermissionGranted)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tTITLE\tNEXT")
	for _, category := range status.Categories {
		for _, t := range category.Triggers {
			next, err := notify.NextFire(t.Fire, now, count)
			if err != nil {
				fmt.Fprintf(w, "%d\t%s\t%s\t%v\n", t.ID, t.Category, t.Title, err)
				continue
			}
			for i, at := range next {
				if i == 0 {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, t.Category, t.Title, at.Format("Mon 2006-01-02 15:04"))
				} else {
					fmt.Fprintf(w, "\t\t\t%s\n", at.Format("Mon 2006-01-02 15:04"))
				}
			}
		}
		if category.Dropped > 0 {
			fmt.Fprintf(w, "\t%s\t%d slots dropped\t\n", category.Category, category.Dropped)
		}
		if category.LastError != "" {
			fmt.Fprintf(w, "\t%s\terror: %s\t\n", category.Category, category.LastError)
		}
	}
	w.Flush()
}
