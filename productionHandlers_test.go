package main

import (
	"testing"

	"github.com/mmdatafocus/factory_backend/models"
)

type timerCall struct {
	op                                string
	jobOrderId, productId, productionId int
}

type fakeTimerRegistry struct {
	calls []timerCall
}

func (f *fakeTimerRegistry) Register(jobOrderId, productId, productionId int) {
	f.calls = append(f.calls, timerCall{"register", jobOrderId, productId, productionId})
}

func (f *fakeTimerRegistry) Deregister(jobOrderId, productId, productionId int) {
	f.calls = append(f.calls, timerCall{"deregister", jobOrderId, productId, productionId})
}

// Every lifecycle action must keep the timer registry in step: start and
// resume run a timer, pause and stop drop it. A paused record that never
// resumes must not hold a ticker, and a resume after a restart (which loses
// all timers) must start one again.
func TestApplyTimerTransition(t *testing.T) {
	cases := []struct {
		action models.ProductionLogAction
		wantOp string
	}{
		{models.ProductionLogActionStart, "register"},
		{models.ProductionLogActionResume, "register"},
		{models.ProductionLogActionPause, "deregister"},
		{models.ProductionLogActionStop, "deregister"},
	}
	for _, tc := range cases {
		fake := &fakeTimerRegistry{}
		applyTimerTransition(fake, tc.action, 7, 11, 13)
		if len(fake.calls) != 1 {
			t.Fatalf("%s: got %d registry calls, want 1", tc.action, len(fake.calls))
		}
		got := fake.calls[0]
		want := timerCall{tc.wantOp, 7, 11, 13}
		if got != want {
			t.Fatalf("%s: got %+v want %+v", tc.action, got, want)
		}
	}
}
