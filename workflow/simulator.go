package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mmdatafocus/factory_backend/models"
	"github.com/mmdatafocus/factory_backend/utils"
	"github.com/sirupsen/logrus"
)

// TickFunc runs one accrual step for a production line and reports whether the
// line finished (true means the simulator drops the timer).
type TickFunc func(ctx context.Context, jobOrderId int, productId int, productionId int) (bool, error)

// AccrualSimulator stands in for the production-line signal: one repeating
// timer per active (job order, product, run) key. Timers live only in process
// memory; a restart drops them and the operator resumes manually.
type AccrualSimulator struct {
	mu       sync.Mutex
	timers   map[string]chan struct{}
	interval time.Duration
	tick     TickFunc
	logger   *logrus.Logger
	wg       sync.WaitGroup
}

func NewAccrualSimulator(interval time.Duration, logger *logrus.Logger, tick TickFunc) *AccrualSimulator {
	return &AccrualSimulator{
		timers:   make(map[string]chan struct{}),
		interval: interval,
		tick:     tick,
		logger:   logger,
	}
}

func TimerKey(jobOrderId int, productId int, productionId int) string {
	return fmt.Sprintf("%d:%d:%d", jobOrderId, productId, productionId)
}

// Register starts a timer for the key. Registering an already-active key is a
// no-op: the map is the mutual-exclusion point against duplicate timers.
func (s *AccrualSimulator) Register(jobOrderId int, productId int, productionId int) {
	key := TimerKey(jobOrderId, productId, productionId)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, active := s.timers[key]; active {
		return
	}
	stop := make(chan struct{})
	s.timers[key] = stop

	s.wg.Add(1)
	go s.run(key, jobOrderId, productId, productionId, stop)
}

// Deregister stops the key's timer if one is active.
func (s *AccrualSimulator) Deregister(jobOrderId int, productId int, productionId int) {
	key := TimerKey(jobOrderId, productId, productionId)

	s.mu.Lock()
	defer s.mu.Unlock()
	if stop, active := s.timers[key]; active {
		close(stop)
		delete(s.timers, key)
	}
}

// ActiveKeys reports the currently registered timer keys.
func (s *AccrualSimulator) ActiveKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.timers))
	for k := range s.timers {
		keys = append(keys, k)
	}
	return keys
}

// Shutdown stops every timer and waits for in-flight ticks to finish.
func (s *AccrualSimulator) Shutdown() {
	s.mu.Lock()
	for key, stop := range s.timers {
		close(stop)
		delete(s.timers, key)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *AccrualSimulator) run(key string, jobOrderId int, productId int, productionId int, stop chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			done, err := s.tick(context.Background(), jobOrderId, productId, productionId)
			if err != nil {
				// A failed tick is skipped, never fatal: the timer loop must
				// survive transient store errors and other keys keep ticking.
				s.logger.WithFields(logrus.Fields{
					"module":        "workflow",
					"funcName":      "AccrualSimulator.run",
					"timer_key":     key,
					"production_id": productionId,
				}).Error("accrual tick failed: " + err.Error())
				if !done {
					continue
				}
			}
			if done {
				s.deregisterSelf(key, stop)
				return
			}
		}
	}
}

// deregisterSelf removes the key unless a concurrent Deregister already
// replaced or closed it.
func (s *AccrualSimulator) deregisterSelf(key string, own chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, active := s.timers[key]; active && current == own {
		delete(s.timers, key)
	}
}

var (
	simulator     *AccrualSimulator
	simulatorOnce sync.Once
)

// InitSimulator wires the process-wide simulator to the real accrual write
// path. Repeated calls return the same instance.
func InitSimulator(interval time.Duration, logger *logrus.Logger) *AccrualSimulator {
	simulatorOnce.Do(func() {
		simulator = NewAccrualSimulator(interval, logger, accrueTick)
	})
	return simulator
}

// GetSimulator returns the process-wide simulator (nil before InitSimulator).
func GetSimulator() *AccrualSimulator {
	return simulator
}

func accrueTick(ctx context.Context, jobOrderId int, productId int, productionId int) (bool, error) {
	// Ticks act as the system, not as the operator who pressed start.
	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "System")
	return models.AccrueProductionTick(ctx, jobOrderId, productId, productionId)
}
