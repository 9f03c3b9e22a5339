package sensor

import (
	"context"
	"math/rand/v2"
	"sync"

	"coapnotify/internal/fault"
)

// Mock produces random readings: "temp" in 0..50 °C or "hum" in 0..100 %.
type Mock struct {
	name   string
	metric string
	clock  clock

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewMock(name, metric string) (*Mock, error) {
	switch metric {
	case "":
		metric = "temp"
	case "temp", "hum":
	default:
		return nil, fault.New(fault.InvalidArgument, "sensor mock", "unknown metric %q, expected temp or hum", metric)
	}
	if name == "" {
		name = "mock"
	}
	return &Mock{
		name:   name,
		metric: metric,
		clock:  newClock(),
		rnd:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}, nil
}

func (m *Mock) Name() string { return m.name }

func (m *Mock) Read(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r := Reading{Device: m.name, Uptime: m.clock.uptime()}
	switch m.metric {
	case "hum":
		r.Kind, r.Unit, r.Raw = "humidity", "%", int32(m.rnd.IntN(101))
	default:
		r.Kind, r.Unit, r.Raw = "temperature", "°C", int32(m.rnd.IntN(51))
	}
	return r, nil
}
