package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/factory_backend/config"
	"github.com/shopspring/decimal"
)

func NewTrue() *bool {
	b := true
	return &b
}

func ProcessValidationErrors(err error) map[string]string {

	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)

	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}

// ConvertToUTCDate truncates a timestamp to UTC midnight.
// All report-date comparisons happen on these normalized instants,
// never on local-time values.
func ConvertToUTCDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

const (
	startTimeLayoutPrimary  = "2006-01-02T15:04:05"
	startTimeLayoutFallback = "2006-01-02 15:04"
)

// ParseStartTime parses an operator-entered start-time string.
// Accepts the strict layout first, then the shorter fallback; anything else is
// rejected. Both parse as UTC.
func ParseStartTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("start time is empty")
	}
	if t, err := time.Parse(startTimeLayoutPrimary, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(startTimeLayoutFallback, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized start time %q (want %s or %s)", raw, startTimeLayoutPrimary, startTimeLayoutFallback)
}

// ParseDecimal converts a string to a decimal.Decimal value.
func ParseDecimal(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}

	dec, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}

	return dec, nil
}

// RecordLock obtains a best-effort redis lock for one production record and
// returns its release func. Reliability must not depend on Redis: mutations are
// also serialized through the MySQL transaction + advisory lock in the
// inventory recompute, so a missing lock client degrades to a warning, not an
// error.
func RecordLock(ctx context.Context, recordId int, moduleName string, funcName string) (release func(), err error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	noop := func() {}
	if locker == nil {
		logger.Warn("redis lock not ready; proceeding without record lock")
		return noop, nil
	}
	lockKey := fmt.Sprintf("production:%d", recordId)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, funcName, "could not obtain record lock", recordId, err)
		return noop, errors.New("production record is busy; retry shortly")
	} else if err != nil {
		logger.Warn("error obtaining record lock; proceeding without it: " + err.Error())
		return noop, nil
	}
	return func() {
		_ = lock.Release(ctx)
	}, nil
}
