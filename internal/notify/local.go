// Package notify implements the notification service: an in-process
// notifier that fires recurring triggers on a cron schedule and hands them
// to a delivery sink.
package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/goutguard/apps/backend/internal/metrics"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
)

// PermissionPolicy decides whether the notifier may deliver
type PermissionPolicy string

const (
	PermissionGranted PermissionPolicy = "granted"
	PermissionDenied  PermissionPolicy = "denied"
	// PermissionPrompt starts ungranted; a permission request grants it
	PermissionPrompt PermissionPolicy = "prompt"
)

// ParsePermissionPolicy validates a policy name
func ParsePermissionPolicy(s string) (PermissionPolicy, error) {
	switch p := PermissionPolicy(s); p {
	case PermissionGranted, PermissionDenied, PermissionPrompt:
		return p, nil
	}
	return "", fmt.Errorf("unknown notification permission policy %q", s)
}

const deliveryTimeout = 30 * time.Second

type entry struct {
	cronID  cron.EntryID
	trigger model.ReminderTrigger
}

// LocalNotifier schedules each trigger as a cron entry and delivers it
// through a Sink when it fires.
type LocalNotifier struct {
	cron   *cron.Cron
	sink   Sink
	logger *zap.Logger
	loc    *time.Location

	categoryOf func(id int) (model.ReminderCategory, bool)

	mu      sync.Mutex
	entries map[int]entry
	policy  PermissionPolicy
	granted bool
	running bool
}

// NewLocalNotifier creates a notifier firing in loc
func NewLocalNotifier(sink Sink, policy PermissionPolicy, loc *time.Location, logger *zap.Logger) *LocalNotifier {
	if loc == nil {
		loc = time.Local
	}
	return &LocalNotifier{
		cron:    cron.New(cron.WithLocation(loc)),
		sink:    sink,
		logger:  logger,
		loc:     loc,
		entries: make(map[int]entry),
		policy:  policy,
		granted: policy == PermissionGranted,
	}
}

// WithCategories sets how a trigger ID maps back to its reminder category
// for delivery.
func (n *LocalNotifier) WithCategories(categoryOf func(id int) (model.ReminderCategory, bool)) *LocalNotifier {
	n.categoryOf = categoryOf
	return n
}

// Start begins firing scheduled triggers
func (n *LocalNotifier) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.running {
		return fmt.Errorf("notifier already running")
	}
	n.cron.Start()
	n.running = true
	n.logger.Info("Local notifier started", zap.String("location", n.loc.String()))
	return nil
}

// Stop stops firing and waits for in-flight deliveries or ctx, whichever ends first
func (n *LocalNotifier) Stop(ctx context.Context) {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return
	}
	n.running = false
	n.mu.Unlock()

	done := n.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		n.logger.Warn("Local notifier stop timed out with deliveries in flight")
	}
	n.logger.Info("Local notifier stopped")
}

// Schedule adds or replaces the trigger with the given id
func (n *LocalNotifier) Schedule(_ context.Context, id int, fire model.FireSpec, title, body string) error {
	if err := validateFire(fire); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.granted {
		return model.ErrPermissionDenied
	}

	if old, ok := n.entries[id]; ok {
		n.cron.Remove(old.cronID)
		delete(n.entries, id)
	}

	trigger := model.ReminderTrigger{ID: id, Fire: fire, Title: title, Body: body}
	if n.categoryOf != nil {
		trigger.Category, _ = n.categoryOf(id)
	}
	cronID, err := n.cron.AddFunc(CronSpec(fire), func() { n.deliver(trigger) })
	if err != nil {
		return fmt.Errorf("failed to schedule trigger %d: %w", id, err)
	}
	n.entries[id] = entry{cronID: cronID, trigger: trigger}

	n.logger.Debug("trigger scheduled",
		zap.Int("trigger_id", id),
		zap.String("spec", CronSpec(fire)),
	)
	return nil
}

// Cancel removes the trigger with the given id; unknown ids are ignored
func (n *LocalNotifier) Cancel(_ context.Context, id int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if e, ok := n.entries[id]; ok {
		n.cron.Remove(e.cronID)
		delete(n.entries, id)
	}
}

// CheckPermission reports whether delivery is currently allowed
func (n *LocalNotifier) CheckPermission(context.Context) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.granted
}

// RequestPermission grants permission under the prompt policy
func (n *LocalNotifier) RequestPermission(context.Context) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.granted && n.policy == PermissionPrompt {
		n.granted = true
		n.logger.Info("notification permission granted")
	}
	return n.granted
}

// Active returns the live triggers ordered by ID
func (n *LocalNotifier) Active() []model.ReminderTrigger {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]model.ReminderTrigger, 0, len(n.entries))
	for _, e := range n.entries {
		out = append(out, e.trigger)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Location returns the time zone triggers fire in
func (n *LocalNotifier) Location() *time.Location {
	return n.loc
}

func (n *LocalNotifier) deliver(trigger model.ReminderTrigger) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if err := n.sink.Deliver(ctx, trigger); err != nil {
		metrics.Deliveries.WithLabelValues(n.sink.Name(), "error").Inc()
		n.logger.Error("failed to deliver reminder",
			zap.Error(err),
			zap.Int("trigger_id", trigger.ID),
			zap.String("sink", n.sink.Name()),
		)
		return
	}
	metrics.Deliveries.WithLabelValues(n.sink.Name(), "ok").Inc()
}

// CronSpec renders fire as a five-field cron expression
func CronSpec(fire model.FireSpec) string {
	dow := "*"
	if fire.Weekday != nil {
		dow = fmt.Sprintf("%d", int(*fire.Weekday))
	}
	return fmt.Sprintf("%d %d * * %s", fire.Minute, fire.Hour, dow)
}

func validateFire(fire model.FireSpec) error {
	if fire.Hour < 0 || fire.Hour > 23 || fire.Minute < 0 || fire.Minute > 59 {
		return fmt.Errorf("invalid fire time %02d:%02d", fire.Hour, fire.Minute)
	}
	if fire.Weekday != nil && (*fire.Weekday < time.Sunday || *fire.Weekday > time.Saturday) {
		return fmt.Errorf("invalid fire weekday %d", int(*fire.Weekday))
	}
	return nil
}
