package timer

import (
	"context"
	"math/rand"
	"reflect"
	"runtime"
	"time"

	"github.com/lthibault/jitterbug"

	log "github.com/sirupsen/logrus"
)

type Interval struct {
	Duration time.Duration
	Jitter   time.Duration
}

type tickerJitter struct {
	MaxJitter time.Duration
}

func (j tickerJitter) Jitter(d time.Duration) time.Duration {
	if j.MaxJitter >= d {
		log.Fatal("tickerJitter: MaxJitter is greater than duration")
	}

	if j.MaxJitter == 0 {
		return d
	}

	return d + (time.Duration(rand.Int63n(int64(2*j.MaxJitter))) - j.MaxJitter)
}

// RunWithTicker runs f periodically with the given interval. Exits when the
// context is cancelled or when f returns an error.
func RunWithTicker(ctx context.Context, interval *Interval, f func(ctx context.Context) error) error {
	funcName := runtime.FuncForPC(reflect.ValueOf(f).Pointer()).Name()

	j := jitterbug.New(interval.Duration, &tickerJitter{MaxJitter: interval.Jitter})
	defer j.Stop()

	log.Debugf("RunWithTicker: running %s with interval %v (jitter %v)", funcName, interval.Duration, interval.Jitter)

	for {
		select {
		case <-ctx.Done():
			log.Debugf("RunWithTicker: context cancelled for %s", funcName)
			return ctx.Err()
		case <-j.C:
			if err := f(ctx); err != nil {
				log.Errorf("RunWithTicker: function %s returned error: %v", funcName, err)
				return err
			}
		}
	}
}

// RunWithRetry runs f immediately and then periodically with the given
// interval. Unlike RunWithTicker an error from f doesn't end the loop: the
// next attempt is scheduled after the (shorter) backoff instead of a full
// interval. Only context cancellation exits.
func RunWithRetry(ctx context.Context, interval *Interval, backoff time.Duration, f func(ctx context.Context) error) error {
	funcName := runtime.FuncForPC(reflect.ValueOf(f).Pointer()).Name()

	log.Debugf("RunWithRetry: running %s with interval %v (backoff %v)", funcName, interval.Duration, backoff)

	wait := time.Duration(0) // first run is immediate
	for {
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			log.Debugf("RunWithRetry: context cancelled for %s", funcName)
			return ctx.Err()
		case <-t.C:
		}

		if err := f(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Errorf("RunWithRetry: function %s returned error: %v, retrying in %v", funcName, err, backoff)
			wait = backoff
			continue
		}
		wait = (tickerJitter{MaxJitter: interval.Jitter}).Jitter(interval.Duration)
	}
}
