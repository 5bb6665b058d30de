package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
)

// Op is one call recorded by a Recorder
type Op struct {
	Kind string // "schedule" or "cancel"
	ID   int
}

// Recorder is an in-memory notification service that keeps the triggers
// it was given without firing them. It backs dry runs and tests.
type Recorder struct {
	mu sync.Mutex

	// Granted is the current permission; RequestGrants decides what a
	// permission request turns it into.
	Granted       bool
	RequestGrants bool
	// Fail makes Schedule return the mapped error for a trigger ID.
	Fail map[int]error

	active map[int]model.ReminderTrigger
	ops    []Op
}

// NewRecorder creates a Recorder with permission already granted
func NewRecorder() *Recorder {
	return &Recorder{
		Granted:       true,
		RequestGrants: true,
		Fail:          make(map[int]error),
		active:        make(map[int]model.ReminderTrigger),
	}
}

// Schedule implements the notification service contract
func (r *Recorder) Schedule(_ context.Context, id int, fire model.FireSpec, title, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ops = append(r.ops, Op{Kind: "schedule", ID: id})
	if !r.Granted {
		return model.ErrPermissionDenied
	}
	if err, ok := r.Fail[id]; ok {
		return err
	}
	if err := validateFire(fire); err != nil {
		return err
	}
	if _, exists := r.active[id]; exists {
		return fmt.Errorf("trigger %d is already scheduled", id)
	}

	r.active[id] = model.ReminderTrigger{ID: id, Fire: fire, Title: title, Body: body}
	return nil
}

// Cancel implements the notification service contract
func (r *Recorder) Cancel(_ context.Context, id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ops = append(r.ops, Op{Kind: "cancel", ID: id})
	delete(r.active, id)
}

// CheckPermission implements the notification service contract
func (r *Recorder) CheckPermission(context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Granted
}

// RequestPermission implements the notification service contract
func (r *Recorder) RequestPermission(context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.Granted && r.RequestGrants {
		r.Granted = true
	}
	return r.Granted
}

// SetPermission changes the granted permission
func (r *Recorder) SetPermission(granted bool) {
	r.mu.Lock()
	r.Granted = granted
	r.mu.Unlock()
}

// Active returns the live triggers ordered by ID
func (r *Recorder) Active() []model.ReminderTrigger {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.ReminderTrigger, 0, len(r.active))
	for _, t := range r.active {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Ops returns every recorded call in order
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// Reset forgets recorded calls but keeps live triggers
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.ops = nil
	r.mu.Unlock()
}
