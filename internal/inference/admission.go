package inference

import (
	"context"
	"time"
)

// admission allows one generation at a time with up to depth callers
// waiting. Each wait is bounded by maxWait.
type admission struct {
	queueCh chan struct{}
	genCh   chan struct{}
	maxWait time.Duration
}

func newAdmission(depth int, maxWait time.Duration) *admission {
	if depth <= 0 {
		depth = 1
	}
	return &admission{
		queueCh: make(chan struct{}, depth),
		genCh:   make(chan struct{}, 1),
		maxWait: maxWait,
	}
}

// begin reserves a queue slot and then the single in-flight slot.
// Returns a release func to be deferred.
func (a *admission) begin(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	timer := time.NewTimer(a.maxWait)
	defer timer.Stop()
	select {
	case a.queueCh <- struct{}{}:
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, ErrTooBusy
	}

	acquired := false
	defer func() {
		if !acquired {
			<-a.queueCh
		}
	}()
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	timer2 := time.NewTimer(a.maxWait)
	defer timer2.Stop()
	select {
	case a.genCh <- struct{}{}:
		acquired = true
		return func() { <-a.genCh; <-a.queueCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer2.C:
		return func() {}, ErrTooBusy
	}
}
