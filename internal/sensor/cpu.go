package sensor

import (
	"context"
	"math"
	"strings"

	"github.com/shirou/gopsutil/v4/sensors"

	"coapnotify/internal/fault"
)

// cpuKeys name the sensors preferred as the CPU temperature, in order.
var cpuKeys = []string{"package", "coretemp", "k10temp", "cpu", "soc"}

// CPU reads the host CPU temperature through gopsutil.
type CPU struct {
	clock clock
	read  func(ctx context.Context) ([]sensors.TemperatureStat, error)
}

func NewCPU() *CPU {
	return &CPU{clock: newClock(), read: sensors.TemperaturesWithContext}
}

func (c *CPU) Name() string { return "cpu" }

func (c *CPU) Read(ctx context.Context) (Reading, error) {
	temps, err := c.read(ctx)
	// gopsutil returns warnings alongside partial results
	if len(temps) == 0 {
		if err != nil {
			return Reading{}, fault.Wrap(fault.SensorReadFailed, "sensor cpu", err)
		}
		return Reading{}, fault.New(fault.NoSensor, "sensor cpu", "no temperature sensors found")
	}
	stat, ok := pickCPU(temps)
	if !ok {
		return Reading{}, fault.New(fault.NoSensor, "sensor cpu", "no usable temperature among %d sensors", len(temps))
	}
	return Reading{
		Device: stat.SensorKey,
		Kind:   "temperature",
		Raw:    int32(math.Round(stat.Temperature * 100)),
		Scale:  -2,
		Unit:   "°C",
		Uptime: c.clock.uptime(),
	}, nil
}

func pickCPU(temps []sensors.TemperatureStat) (sensors.TemperatureStat, bool) {
	for _, key := range cpuKeys {
		for _, t := range temps {
			if strings.Contains(strings.ToLower(t.SensorKey), key) && t.Temperature > 0 {
				return t, true
			}
		}
	}
	for _, t := range temps {
		if t.Temperature > 0 {
			return t, true
		}
	}
	return sensors.TemperatureStat{}, false
}
