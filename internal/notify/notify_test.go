package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
)

type captureSink struct {
	mu        sync.Mutex
	delivered []model.ReminderTrigger
	err       error
}

func (c *captureSink) Name() string { return "capture" }

func (c *captureSink) Deliver(_ context.Context, trigger model.ReminderTrigger) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delivered = append(c.delivered, trigger)
	return c.err
}

func weekday(d time.Weekday) *time.Weekday { return &d }

func TestCronSpec(t *testing.T) {
	assert.Equal(t, "0 8 * * *", CronSpec(model.FireSpec{Hour: 8}))
	assert.Equal(t, "30 20 * * 1", CronSpec(model.FireSpec{Hour: 20, Minute: 30, Weekday: weekday(time.Monday)}))
}

func TestLocalNotifier_ScheduleAndCancel(t *testing.T) {
	ctx := context.Background()
	n := NewLocalNotifier(&captureSink{}, PermissionGranted, time.UTC, zap.NewNop())

	require.NoError(t, n.Schedule(ctx, 2000, model.FireSpec{Hour: 8}, "Time for Allopurinol", "Take 100mg of Allopurinol."))
	require.NoError(t, n.Schedule(ctx, 2001, model.FireSpec{Hour: 20}, "Time for Allopurinol", "Take 100mg of Allopurinol."))
	assert.Len(t, n.cron.Entries(), 2)

	// rescheduling the same id replaces rather than duplicates
	require.NoError(t, n.Schedule(ctx, 2000, model.FireSpec{Hour: 9}, "Time for Allopurinol", "Take 100mg of Allopurinol."))
	active := n.Active()
	require.Len(t, active, 2)
	assert.Equal(t, 9, active[0].Fire.Hour)
	assert.Len(t, n.cron.Entries(), 2)

	n.Cancel(ctx, 2000)
	n.Cancel(ctx, 2999)
	active = n.Active()
	require.Len(t, active, 1)
	assert.Equal(t, 2001, active[0].ID)
	assert.Len(t, n.cron.Entries(), 1)
}

func TestLocalNotifier_TriggersCarryCategory(t *testing.T) {
	ctx := context.Background()
	n := NewLocalNotifier(&captureSink{}, PermissionGranted, time.UTC, zap.NewNop()).
		WithCategories(func(id int) (model.ReminderCategory, bool) {
			if id >= 4000 {
				return model.ReminderCategoryCheckIn, true
			}
			return model.ReminderCategoryMedication, true
		})

	require.NoError(t, n.Schedule(ctx, 2000, model.FireSpec{Hour: 8}, "Time for Allopurinol", "Take 100mg of Allopurinol."))
	require.NoError(t, n.Schedule(ctx, 4000, model.FireSpec{Hour: 20}, "Daily Gout Check-In", "How are you feeling today?"))

	active := n.Active()
	require.Len(t, active, 2)
	assert.Equal(t, model.ReminderCategoryMedication, active[0].Category)
	assert.Equal(t, model.ReminderCategoryCheckIn, active[1].Category)
}

func TestLogSink_LogsCategory(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewLogSink(zap.New(core))

	require.NoError(t, sink.Deliver(context.Background(), model.ReminderTrigger{
		ID: 4000, Category: model.ReminderCategoryCheckIn, Title: "Daily Gout Check-In",
	}))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, string(model.ReminderCategoryCheckIn), logs.All()[0].ContextMap()["category"])
}

func TestLocalNotifier_RejectsInvalidFire(t *testing.T) {
	n := NewLocalNotifier(&captureSink{}, PermissionGranted, time.UTC, zap.NewNop())

	assert.Error(t, n.Schedule(context.Background(), 1, model.FireSpec{Hour: 24}, "t", "b"))
	assert.Error(t, n.Schedule(context.Background(), 1, model.FireSpec{Hour: 1, Minute: 60}, "t", "b"))
	assert.Empty(t, n.Active())
}

func TestLocalNotifier_Permission(t *testing.T) {
	ctx := context.Background()

	t.Run("denied never grants", func(t *testing.T) {
		n := NewLocalNotifier(&captureSink{}, PermissionDenied, time.UTC, zap.NewNop())
		assert.False(t, n.CheckPermission(ctx))
		assert.False(t, n.RequestPermission(ctx))
		err := n.Schedule(ctx, 1000, model.FireSpec{Hour: 8}, "t", "b")
		assert.ErrorIs(t, err, model.ErrPermissionDenied)
	})

	t.Run("prompt grants on request", func(t *testing.T) {
		n := NewLocalNotifier(&captureSink{}, PermissionPrompt, time.UTC, zap.NewNop())
		assert.False(t, n.CheckPermission(ctx))
		assert.True(t, n.RequestPermission(ctx))
		assert.True(t, n.CheckPermission(ctx))
		assert.NoError(t, n.Schedule(ctx, 1000, model.FireSpec{Hour: 8}, "t", "b"))
	})
}

func TestLocalNotifier_DeliverRecordsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	sink := &captureSink{err: errors.New("channel down")}
	n := NewLocalNotifier(sink, PermissionGranted, time.UTC, zap.New(core))

	n.deliver(model.ReminderTrigger{ID: 4000, Title: "Daily Gout Check-In"})

	require.Len(t, sink.delivered, 1)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failed to deliver reminder", logs.All()[0].Message)
}

func TestLocalNotifier_StartStop(t *testing.T) {
	n := NewLocalNotifier(&captureSink{}, PermissionGranted, time.UTC, zap.NewNop())

	require.NoError(t, n.Start())
	assert.Error(t, n.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n.Stop(ctx)
	n.Stop(ctx)
}

func TestParsePermissionPolicy(t *testing.T) {
	p, err := ParsePermissionPolicy("prompt")
	require.NoError(t, err)
	assert.Equal(t, PermissionPrompt, p)

	_, err = ParsePermissionPolicy("maybe")
	assert.Error(t, err)
}

func TestNextFire(t *testing.T) {
	after := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC) // Monday

	daily, err := NextFire(model.FireSpec{Hour: 8}, after, 2)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.True(t, daily[0].Equal(time.Date(2025, time.March, 11, 8, 0, 0, 0, time.UTC)))
	assert.True(t, daily[1].Equal(time.Date(2025, time.March, 12, 8, 0, 0, 0, time.UTC)))

	later, err := NextFire(model.FireSpec{Hour: 20, Minute: 30}, after, 1)
	require.NoError(t, err)
	require.Len(t, later, 1)
	assert.True(t, later[0].Equal(time.Date(2025, time.March, 10, 20, 30, 0, 0, time.UTC)))

	weekly, err := NextFire(model.FireSpec{Hour: 9, Weekday: weekday(time.Sunday)}, after, 1)
	require.NoError(t, err)
	require.Len(t, weekly, 1)
	assert.True(t, weekly[0].Equal(time.Date(2025, time.March, 16, 9, 0, 0, 0, time.UTC)))

	_, err = NextFire(model.FireSpec{Hour: 25}, after, 1)
	assert.Error(t, err)
}

type fakeSender struct {
	calls int
	err   error
	last  tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.calls++
	f.last = c
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	return tgbotapi.Message{MessageID: f.calls}, nil
}

func TestTelegramSink_Deliver(t *testing.T) {
	sender := &fakeSender{}
	sink := newTelegramSink(sender, 42, zap.NewNop())

	err := sink.Deliver(context.Background(), model.ReminderTrigger{ID: 2000, Title: "Time for Colchicine", Body: "Take 0.6mg of Colchicine."})
	require.NoError(t, err)

	msg, ok := sender.last.(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "Time for Colchicine\n\nTake 0.6mg of Colchicine.", msg.Text)
}

func TestTelegramSink_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	sender := &fakeSender{err: errors.New("bad gateway")}
	sink := newTelegramSink(sender, 42, zap.NewNop())
	trigger := model.ReminderTrigger{ID: 2000}

	for i := 0; i < 3; i++ {
		assert.Error(t, sink.Deliver(context.Background(), trigger))
	}

	err := sink.Deliver(context.Background(), trigger)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, sender.calls, "open breaker must not reach the api")
}

func TestMultiSink(t *testing.T) {
	ok := &captureSink{}
	failing := &captureSink{err: errors.New("down")}
	multi := MultiSink{ok, NewLogSink(zap.NewNop()), failing}

	err := multi.Deliver(context.Background(), model.ReminderTrigger{ID: 1})
	assert.Error(t, err)
	assert.Len(t, ok.delivered, 1)
	assert.Len(t, failing.delivered, 1)
	assert.Equal(t, "capture+log+capture", multi.Name())
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder()

	require.NoError(t, r.Schedule(ctx, 1000, model.FireSpec{Hour: 8}, "t", "b"))
	assert.Error(t, r.Schedule(ctx, 1000, model.FireSpec{Hour: 8}, "t", "b"), "duplicate id without cancel")

	r.Cancel(ctx, 1000)
	assert.Empty(t, r.Active())
	assert.Equal(t, []Op{{"schedule", 1000}, {"schedule", 1000}, {"cancel", 1000}}, r.Ops())

	r.SetPermission(false)
	r.RequestGrants = false
	assert.False(t, r.RequestPermission(ctx))
	assert.ErrorIs(t, r.Schedule(ctx, 1001, model.FireSpec{Hour: 8}, "t", "b"), model.ErrPermissionDenied)
}
