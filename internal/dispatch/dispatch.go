// Package dispatch runs the periodic notifier and the on-demand send path on
// top of the notification client.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sony/gobreaker"

	"coapnotify/internal/config"
	"coapnotify/internal/fault"
	"coapnotify/internal/indicator"
	"coapnotify/internal/logx"
	"coapnotify/internal/metrics"
	"coapnotify/internal/notify"
	"coapnotify/internal/sensor"
)

// Client is the part of notify.Client the dispatcher drives.
type Client interface {
	SendNotification(ctx context.Context, message, recipient string) error
	RequestRemoteUpdates(ctx context.Context) error
	WaitForCompletion(ctx context.Context, budget time.Duration) bool
	Status() notify.Status
}

type Options struct {
	// WaitBudget bounds the wait for the completion flag of each exchange.
	WaitBudget time.Duration
	// PollUpdates follows every periodic notification with an update request.
	PollUpdates bool
	Breaker     config.BreakerConfig
	Metrics     *metrics.Metrics
}

// Result describes a finished on-demand exchange.
type Result struct {
	ExchangeID uint16
	// RTT is the wall clock time from send to completion or give-up.
	RTT       time.Duration
	Completed bool
	Stage     notify.Stage
}

type Notifier struct {
	store     *config.Store
	client    Client
	sensor    sensor.Sensor
	indicator indicator.Indicator
	breaker   *gobreaker.CircuitBreaker
	metrics   *metrics.Metrics
	budget    time.Duration
	updates   bool

	// unit is the length of one interval step.
	unit time.Duration
	nowF func() time.Time
}

func New(store *config.Store, client Client, s sensor.Sensor, ind indicator.Indicator, opts Options) *Notifier {
	if ind == nil {
		ind = &indicator.Log{}
	}
	if opts.WaitBudget <= 0 {
		opts.WaitBudget = config.DefaultWaitBudget
	}
	n := &Notifier{
		store:     store,
		client:    client,
		sensor:    s,
		indicator: ind,
		metrics:   opts.Metrics,
		budget:    opts.WaitBudget,
		updates:   opts.PollUpdates,
		unit:      time.Minute,
		nowF:      time.Now,
	}
	n.breaker = newBreaker(opts.Breaker, opts.Metrics)
	return n
}

func newBreaker(cfg config.BreakerConfig, m *metrics.Metrics) *gobreaker.CircuitBreaker {
	failures := cfg.Failures
	if failures == 0 {
		failures = 3
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "relay",
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logx.Infof("dispatch breaker %s: %s -> %s", name, from, to)
			m.BreakerState(int(to))
		},
		// only relay faults count against the breaker
		IsSuccessful: func(err error) bool {
			return err == nil || !relayFault(err)
		},
	})
}

func relayFault(err error) bool {
	switch fault.KindOf(err) {
	case fault.CoapInitFailed, fault.CoapSendFailed, fault.CoapTimeout:
		return true
	}
	return false
}

// Run reports a reading every interval minutes until ctx ends. The interval
// is read from the store each cycle so remote changes apply to the next
// sleep.
func (n *Notifier) Run(ctx context.Context) error {
	for {
		n.Cycle(ctx)

		minutes := n.store.Interval()
		n.metrics.Interval(minutes)
		wait := time.Duration(minutes) * n.unit
		logx.Debugf("dispatch sleeping: interval=%dm", minutes)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Close releases the indicator and the sensor.
func (n *Notifier) Close() error {
	var errs []error
	if err := n.indicator.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close indicator: %w", err))
	}
	if c, ok := n.sensor.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sensor: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Cycle runs one periodic notification through the breaker. Failures are
// logged and never stop the loop.
func (n *Notifier) Cycle(ctx context.Context) {
	_, err := n.breaker.Execute(func() (interface{}, error) {
		return nil, n.notifyOnce(ctx)
	})
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		n.metrics.CycleSkipped()
		logx.Infof("dispatch cycle skipped: relay breaker is %s", n.breaker.State())
	default:
		logx.Errorf("dispatch cycle failed: kind=%s: %v", fault.KindOf(err), err)
	}
}

func (n *Notifier) notifyOnce(ctx context.Context) error {
	r, err := n.ReadSensor(ctx)
	if err != nil {
		return err
	}
	logx.Infof("%s", r)
	text := r.Text()
	if _, err := n.exchange(ctx, func(ctx context.Context) error {
		return n.client.SendNotification(ctx, text, "all")
	}); err != nil {
		return err
	}
	if n.updates {
		if _, err := n.RequestUpdatesNow(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ReadSensor takes one reading and records it.
func (n *Notifier) ReadSensor(ctx context.Context) (sensor.Reading, error) {
	if n.sensor == nil {
		return sensor.Reading{}, fault.New(fault.NoSensor, "dispatch", "no sensor configured")
	}
	r, err := n.sensor.Read(ctx)
	if err != nil {
		return sensor.Reading{}, err
	}
	n.metrics.Reading(r.Value())
	return r, nil
}

// SetLED switches the feedback indicator directly.
func (n *Notifier) SetLED(ctx context.Context, on bool) error {
	return n.indicator.Set(ctx, on)
}

// SendNow sends message to recipient and waits for the exchange to finish.
func (n *Notifier) SendNow(ctx context.Context, recipient, message string) (Result, error) {
	return n.exchange(ctx, func(ctx context.Context) error {
		return n.client.SendNotification(ctx, message, recipient)
	})
}

// RequestUpdatesNow polls the relay for commands and waits for the answer.
func (n *Notifier) RequestUpdatesNow(ctx context.Context) (Result, error) {
	return n.exchange(ctx, n.client.RequestRemoteUpdates)
}

func (n *Notifier) exchange(ctx context.Context, start func(context.Context) error) (Result, error) {
	started := n.nowF()
	if err := start(ctx); err != nil {
		return Result{}, err
	}
	if n.store.LEDFeedback() {
		n.led(ctx, true)
		defer n.led(ctx, false)
	}
	done := n.client.WaitForCompletion(ctx, n.budget)
	st := n.client.Status()
	res := Result{
		ExchangeID: st.ExchangeID,
		RTT:        n.nowF().Sub(started),
		Completed:  done,
		Stage:      st.Stage,
	}
	if done {
		logx.Debugf("dispatch exchange complete: id=%d rtt=%s", res.ExchangeID, res.RTT)
		return res, nil
	}
	if st.Err != nil {
		return res, st.Err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, fault.New(fault.CoapTimeout, "dispatch", "exchange %d still %s after %s", st.ExchangeID, st.Stage, n.budget)
}

func (n *Notifier) led(ctx context.Context, on bool) {
	if err := n.indicator.Set(context.WithoutCancel(ctx), on); err != nil {
		logx.Errorf("dispatch: %v", err)
	}
}
