package models

// DB-free tests for the pure pieces of the production lifecycle: the
// transition guard matrix, QC delta arithmetic, report date bucketing, and
// event-time derivation. The DB paths re-run these on loaded state; the full
// flow is covered by the docker-gated regression test.

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func ts(h, m int) *time.Time {
	t := time.Date(2026, 3, 14, h, m, 0, 0, time.UTC)
	return &t
}

func prodErrCode(t *testing.T, err error) ProductionErrorCode {
	t.Helper()
	var perr *ProductionError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ProductionError, got %T (%v)", err, err)
	}
	return perr.Code
}

func TestCanStartGuards(t *testing.T) {
	planned := decimal.NewFromInt(10)

	dp := &DailyProduction{Status: ProductionStatusPending}
	if err := dp.canStart(planned, decimal.Zero); err != nil {
		t.Fatalf("fresh record should start: %v", err)
	}

	dp = &DailyProduction{Status: ProductionStatusInProgress, StartedAt: ts(8, 0)}
	if code := prodErrCode(t, dp.canStart(planned, decimal.NewFromInt(3))); code != CodeAlreadyStarted {
		t.Fatalf("got %s want AlreadyStarted", code)
	}

	dp = &DailyProduction{Status: ProductionStatusPending}
	if code := prodErrCode(t, dp.canStart(planned, planned)); code != CodePlannedQuantityReached {
		t.Fatalf("got %s want PlannedQuantityReached", code)
	}
	// Over-planned counts too (historic data, edited plans).
	if code := prodErrCode(t, dp.canStart(planned, decimal.NewFromInt(11))); code != CodePlannedQuantityReached {
		t.Fatalf("got %s want PlannedQuantityReached", code)
	}
}

func TestPauseResumeStopGuards(t *testing.T) {
	notStarted := &DailyProduction{Status: ProductionStatusPending}
	if code := prodErrCode(t, notStarted.canPause()); code != CodeNotStarted {
		t.Fatalf("pause before start: got %s want NotStarted", code)
	}
	if code := prodErrCode(t, notStarted.canStop()); code != CodeNotStarted {
		t.Fatalf("stop before start: got %s want NotStarted", code)
	}
	if code := prodErrCode(t, notStarted.canResume()); code != CodeNotPaused {
		t.Fatalf("resume before start: got %s want NotPaused", code)
	}

	running := &DailyProduction{Status: ProductionStatusInProgress, StartedAt: ts(8, 0)}
	if err := running.canPause(); err != nil {
		t.Fatalf("running record should pause: %v", err)
	}
	if err := running.canStop(); err != nil {
		t.Fatalf("running record should stop: %v", err)
	}
	if code := prodErrCode(t, running.canResume()); code != CodeNotPaused {
		t.Fatalf("resume while running: got %s want NotPaused", code)
	}

	paused := &DailyProduction{Status: ProductionStatusPaused, StartedAt: ts(8, 0)}
	if code := prodErrCode(t, paused.canPause()); code != CodeAlreadyPaused {
		t.Fatalf("double pause: got %s want AlreadyPaused", code)
	}
	if err := paused.canResume(); err != nil {
		t.Fatalf("paused record should resume: %v", err)
	}
	// Stop straight from paused is allowed.
	if err := paused.canStop(); err != nil {
		t.Fatalf("paused record should stop: %v", err)
	}

	stopped := &DailyProduction{Status: ProductionStatusPendingQC, StartedAt: ts(8, 0), StoppedAt: ts(16, 0)}
	if code := prodErrCode(t, stopped.canPause()); code != CodeAlreadyStopped {
		t.Fatalf("pause after stop: got %s want AlreadyStopped", code)
	}
	if code := prodErrCode(t, stopped.canStop()); code != CodeAlreadyStopped {
		t.Fatalf("double stop: got %s want AlreadyStopped", code)
	}
}

func TestApplyQCDeltas(t *testing.T) {
	detail := &ProductionDetail{
		AchievedQuantity: decimal.NewFromInt(10),
		RejectedQuantity: decimal.Zero,
		RecycledQuantity: decimal.Zero,
	}
	if err := applyQCDeltas(detail, decimal.NewFromInt(2), decimal.NewFromInt(1)); err != nil {
		t.Fatalf("applyQCDeltas: %v", err)
	}
	if !detail.AchievedQuantity.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("achieved: got %s want 7", detail.AchievedQuantity)
	}
	if !detail.RejectedQuantity.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("rejected: got %s want 2", detail.RejectedQuantity)
	}
	if !detail.RecycledQuantity.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("recycled: got %s want 1", detail.RecycledQuantity)
	}
	if !detail.AcceptedQuantity().Equal(decimal.NewFromInt(4)) {
		t.Fatalf("accepted: got %s want 4", detail.AcceptedQuantity())
	}
}

func TestApplyQCDeltasRejectsInvariantBreak(t *testing.T) {
	detail := &ProductionDetail{
		AchievedQuantity: decimal.NewFromInt(5),
		RejectedQuantity: decimal.NewFromInt(1),
		RecycledQuantity: decimal.Zero,
	}
	before := *detail

	// 1+3 rejected + 1 recycled = 5 against achieved 5-4=1: must fail.
	err := applyQCDeltas(detail, decimal.NewFromInt(3), decimal.NewFromInt(1))
	if err == nil {
		t.Fatal("expected invariant violation")
	}
	if code := prodErrCode(t, err); code != CodeInvariantViolation {
		t.Fatalf("got %s want InvariantViolation", code)
	}
	// Failure must not mutate the line.
	if !detail.AchievedQuantity.Equal(before.AchievedQuantity) ||
		!detail.RejectedQuantity.Equal(before.RejectedQuantity) ||
		!detail.RecycledQuantity.Equal(before.RecycledQuantity) {
		t.Fatalf("detail mutated on failed apply: %+v", detail)
	}
}

func TestRollbackThenApplyRestoresAndReplaces(t *testing.T) {
	detail := &ProductionDetail{
		AchievedQuantity: decimal.NewFromInt(10),
	}
	if err := applyQCDeltas(detail, decimal.NewFromInt(2), decimal.NewFromInt(1)); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	// Edit the correction from (2,1) to (1,0): rollback then re-apply.
	rollbackQCDeltas(detail, decimal.NewFromInt(2), decimal.NewFromInt(1))
	if !detail.AchievedQuantity.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("rollback achieved: got %s want 10", detail.AchievedQuantity)
	}
	if err := applyQCDeltas(detail, decimal.NewFromInt(1), decimal.Zero); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if !detail.AchievedQuantity.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("achieved: got %s want 9", detail.AchievedQuantity)
	}
	if !detail.RejectedQuantity.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("rejected: got %s want 1", detail.RejectedQuantity)
	}
	if !detail.RecycledQuantity.Equal(decimal.Zero) {
		t.Fatalf("recycled: got %s want 0", detail.RecycledQuantity)
	}
}

func TestValidateQCQuantities(t *testing.T) {
	if err := validateQCQuantities(decimal.NewFromInt(2), decimal.NewFromInt(2)); err != nil {
		t.Fatalf("recycled == rejected should pass: %v", err)
	}
	if err := validateQCQuantities(decimal.NewFromInt(-1), decimal.Zero); err == nil {
		t.Fatal("negative rejected should fail")
	}
	if err := validateQCQuantities(decimal.NewFromInt(1), decimal.NewFromInt(2)); err == nil {
		t.Fatal("recycled > rejected should fail")
	}
}

func TestCategorizeDate(t *testing.T) {
	today := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)

	if got := CategorizeDate(time.Date(2026, 3, 13, 23, 59, 0, 0, time.UTC), today); got != -1 {
		t.Fatalf("yesterday: got %d want -1", got)
	}
	if got := CategorizeDate(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), today); got != 0 {
		t.Fatalf("today midnight: got %d want 0", got)
	}
	if got := CategorizeDate(time.Date(2026, 3, 15, 0, 0, 1, 0, time.UTC), today); got != 1 {
		t.Fatalf("tomorrow: got %d want 1", got)
	}

	// A local-time instant late on the 14th that is already the 15th in UTC
	// must bucket as future.
	loc := time.FixedZone("UTC-7", -7*3600)
	if got := CategorizeDate(time.Date(2026, 3, 14, 18, 0, 0, 0, loc), today); got != 1 {
		t.Fatalf("local evening: got %d want 1", got)
	}
}

func TestLatestEventTimePicksNewestByTimestamp(t *testing.T) {
	events := []*ProductionLogEvent{
		{Action: ProductionLogActionStart, Timestamp: *ts(8, 0)},
		{Action: ProductionLogActionStop, Timestamp: *ts(16, 0)},
		// A later start inserted earlier in the slice still wins by timestamp.
		{Action: ProductionLogActionStart, Timestamp: *ts(9, 30)},
		nil,
	}

	got := LatestEventTime(events, ProductionLogActionStart)
	if got == nil || !got.Equal(*ts(9, 30)) {
		t.Fatalf("start: got %v want %v", got, ts(9, 30))
	}
	got = LatestEventTime(events, ProductionLogActionStop)
	if got == nil || !got.Equal(*ts(16, 0)) {
		t.Fatalf("stop: got %v want %v", got, ts(16, 0))
	}
	if got := LatestEventTime(events, ProductionLogActionPause); got != nil {
		t.Fatalf("pause: got %v want nil", got)
	}
}
