package trigger

import (
	"testing"
	"time"

	"github.com/botherd/botherd/internal/store"
)

func intp(v int) *int { return &v }

func TestNextFireTimeDailySkipsMissed(t *testing.T) {
	tr := store.Trigger{Mode: store.TriggerModeRecurring, Pattern: store.PatternDaily, Interval: 1}
	prev := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	// The process was down for five days. The next fire is tomorrow,
	// not five catch-up fires.
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	next := NextFireTime(tr, prev, now)
	if next == nil {
		t.Fatal("next = nil")
	}
	want := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNextFireTimeWeeklySkipsToUpcoming(t *testing.T) {
	tr := store.Trigger{
		Mode: store.TriggerModeRecurring, Pattern: store.PatternWeekly,
		Interval: 1, DayOfWeek: intp(1),
	}
	// Fired Monday 2026-08-17 09:00; two Mondays missed.
	prev := time.Date(2026, 8, 17, 9, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) // Saturday
	next := NextFireTime(tr, prev, now)
	if next == nil {
		t.Fatal("next = nil")
	}
	want := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC) // next Monday
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
	if next.Weekday() != time.Monday {
		t.Errorf("weekday = %v, want Monday", next.Weekday())
	}
}

func TestNextFireTimeMonthlyClampsDay(t *testing.T) {
	tr := store.Trigger{
		Mode: store.TriggerModeRecurring, Pattern: store.PatternMonthly,
		Interval: 1, DayOfMonth: intp(31),
	}
	prev := time.Date(2026, 1, 31, 8, 0, 0, 0, time.UTC)
	now := prev.Add(time.Minute)
	next := NextFireTime(tr, prev, now)
	if next == nil {
		t.Fatal("next = nil")
	}
	// February 2026 has 28 days.
	want := time.Date(2026, 2, 28, 8, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}

	// The month after the clamp returns to the 31st.
	after := NextFireTime(tr, *next, next.Add(time.Minute))
	want = time.Date(2026, 3, 31, 8, 0, 0, 0, time.UTC)
	if after == nil || !after.Equal(want) {
		t.Errorf("after = %v, want %v", after, want)
	}
}

func TestNextFireTimeCustomStepsInMinutes(t *testing.T) {
	tr := store.Trigger{
		Mode: store.TriggerModeRecurring, Pattern: store.PatternCustom, Interval: 30,
	}
	prev := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	next := NextFireTime(tr, prev, prev.Add(time.Minute))
	if next == nil {
		t.Fatal("next = nil")
	}
	want := time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}

	// Three missed half-hour occurrences collapse into the upcoming one.
	now := time.Date(2026, 8, 29, 10, 35, 0, 0, time.UTC)
	next = NextFireTime(tr, prev, now)
	want = time.Date(2026, 8, 29, 11, 0, 0, 0, time.UTC)
	if next == nil || !next.Equal(want) {
		t.Errorf("next after downtime = %v, want %v", next, want)
	}
}

func TestNextFireTimeHonorsEndDate(t *testing.T) {
	end := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	tr := store.Trigger{
		Mode: store.TriggerModeRecurring, Pattern: store.PatternDaily,
		Interval: 1, EndDate: &end,
	}
	prev := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	if next := NextFireTime(tr, prev, prev.Add(time.Minute)); next == nil {
		t.Fatal("occurrence before end date should fire")
	}
	prev = time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	if next := NextFireTime(tr, prev, prev.Add(time.Minute)); next != nil {
		t.Errorf("next = %v, want nil past end date", next)
	}
}

func TestNextFireTimeOneTimeNeverRecurs(t *testing.T) {
	tr := store.Trigger{Mode: store.TriggerModeOnce}
	prev := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	if next := NextFireTime(tr, prev, prev.Add(time.Minute)); next != nil {
		t.Errorf("next = %v, want nil for one-time", next)
	}
}

func TestNextFireTimeTimezoneWallClock(t *testing.T) {
	loc, err := time.LoadLocation("America/Denver")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	tr := store.Trigger{
		Mode: store.TriggerModeRecurring, Pattern: store.PatternDaily,
		Interval: 1, Timezone: "America/Denver",
	}
	// Crossing the spring DST change keeps the 08:00 wall clock.
	prev := time.Date(2026, 3, 7, 8, 0, 0, 0, loc)
	now := prev.Add(time.Minute)
	next := NextFireTime(tr, prev, now)
	if next == nil {
		t.Fatal("next = nil")
	}
	if next.Hour() != 8 || next.Minute() != 0 {
		t.Errorf("wall clock = %02d:%02d, want 08:00", next.Hour(), next.Minute())
	}
	if next.Day() != 8 {
		t.Errorf("day = %d, want 8", next.Day())
	}
}

func TestNextFireTimeMonotonic(t *testing.T) {
	tr := store.Trigger{Mode: store.TriggerModeRecurring, Pattern: store.PatternDaily, Interval: 1}
	prev := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	now := prev
	for i := 0; i < 50; i++ {
		next := NextFireTime(tr, prev, now)
		if next == nil {
			t.Fatalf("next = nil at step %d", i)
		}
		if !next.After(now) {
			t.Fatalf("next %v not after now %v", next, now)
		}
		prev, now = *next, *next
	}
}

func TestInitialFireTimeOnce(t *testing.T) {
	at := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	tr := store.Trigger{Mode: store.TriggerModeOnce, ScheduledTime: &at}
	got, err := InitialFireTime(tr, time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("InitialFireTime: %v", err)
	}
	if got == nil || !got.Equal(at) {
		t.Errorf("got = %v, want %v", got, at)
	}

	if _, err := InitialFireTime(store.Trigger{Mode: store.TriggerModeOnce}, time.Now()); err == nil {
		t.Error("one-time trigger without scheduled time should error")
	}
}

func TestInitialFireTimeWeeklyFindsDay(t *testing.T) {
	tr := store.Trigger{
		Mode: store.TriggerModeRecurring, Pattern: store.PatternWeekly,
		Interval: 1, DayOfWeek: intp(5), TimeOfDay: "18:30",
	}
	// Saturday; next Friday is 2026-09-04.
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	got, err := InitialFireTime(tr, now)
	if err != nil {
		t.Fatalf("InitialFireTime: %v", err)
	}
	want := time.Date(2026, 9, 4, 18, 30, 0, 0, time.UTC)
	if got == nil || !got.Equal(want) {
		t.Errorf("got = %v, want %v", got, want)
	}
}

func TestInitialFireTimeCustomAnchorsOnNow(t *testing.T) {
	tr := store.Trigger{
		Mode: store.TriggerModeRecurring, Pattern: store.PatternCustom, Interval: 45,
	}
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	got, err := InitialFireTime(tr, now)
	if err != nil {
		t.Fatalf("InitialFireTime: %v", err)
	}
	want := now.Add(45 * time.Minute)
	if got == nil || !got.Equal(want) {
		t.Errorf("got = %v, want %v", got, want)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	if _, _, err := parseTimeOfDay("25:00"); err == nil {
		t.Error("hour 25 should be rejected")
	}
	if _, _, err := parseTimeOfDay("nope"); err == nil {
		t.Error("garbage should be rejected")
	}
	h, m, err := parseTimeOfDay("07:05")
	if err != nil || h != 7 || m != 5 {
		t.Errorf("parse = %d:%d, %v", h, m, err)
	}
}
