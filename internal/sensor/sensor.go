// Package sensor reads the value the notifier reports: a mock source, the
// host CPU temperature or a serial thermometer.
package sensor

import (
	"context"
	"fmt"
	"math"
	"time"
)

type Sensor interface {
	// Name is the device name used in notifications.
	Name() string
	Read(ctx context.Context) (Reading, error)
}

// Reading is a fixed-point measurement: Raw * 10^Scale in Unit.
type Reading struct {
	Device string
	Kind   string
	Raw    int32
	Scale  int8
	Unit   string
	// Uptime is the time since the sensor was opened.
	Uptime time.Duration
}

func (r Reading) Value() float64 {
	return float64(r.Raw) * math.Pow10(int(r.Scale))
}

// Text is the notification body, e.g. "cpu: 25.00 °C".
func (r Reading) Text() string {
	return fmt.Sprintf("%s: %.2f %s", r.Device, r.Value(), r.Unit)
}

// String is the console form with the uptime stamp.
func (r Reading) String() string {
	return fmt.Sprintf("[%s] The %s of %s is %.2f %s", FormatUptime(r.Uptime), r.Kind, r.Device, r.Value(), r.Unit)
}

// FormatUptime renders d as hh:mm:ss. Hours do not wrap.
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// clock measures uptime from the moment a sensor is created.
type clock struct {
	epoch time.Time
	nowF  func() time.Time
}

func newClock() clock {
	return clock{epoch: time.Now(), nowF: time.Now}
}

func (c clock) uptime() time.Duration {
	return c.nowF().Sub(c.epoch)
}
