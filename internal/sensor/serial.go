package sensor

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"coapnotify/internal/fault"
	"coapnotify/internal/serialdev"
)

// Query is the line a serial thermometer answers with a temperature in °C.
const Query = "T?"

const serialTimeout = 2 * time.Second

type lineConn interface {
	WriteLine(ctx context.Context, line string) error
	ReadLine(ctx context.Context) (string, error)
	Close() error
}

// Serial asks a thermometer on a serial port for the temperature.
type Serial struct {
	name  string
	conn  lineConn
	clock clock
}

// OpenSerial opens the thermometer on port. The port "auto" picks the first
// serial port that answers Query with a number.
func OpenSerial(name, port string, baud int) (*Serial, error) {
	if port == "auto" {
		found, err := serialdev.Detect(func(candidate string) error {
			p, err := serialdev.Open(candidate, baud)
			if err != nil {
				return err
			}
			defer p.Close()
			_, err = newSerial(candidate, p).Read(context.Background())
			return err
		})
		if err != nil {
			return nil, fault.Wrap(fault.NoSensor, "sensor serial", err)
		}
		port = found
	}
	p, err := serialdev.Open(port, baud)
	if err != nil {
		return nil, fault.Wrap(fault.NoSensor, "sensor serial", err)
	}
	if name == "" {
		name = p.Name()
	}
	return newSerial(name, p), nil
}

func newSerial(name string, conn lineConn) *Serial {
	return &Serial{name: name, conn: conn, clock: newClock()}
}

func (s *Serial) Name() string { return s.name }

func (s *Serial) Close() error { return s.conn.Close() }

// Read sends Query and parses the first numeric answer. Other lines, such as
// boot banners, are skipped.
func (s *Serial) Read(ctx context.Context) (Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, serialTimeout)
	defer cancel()
	if err := s.conn.WriteLine(ctx, Query); err != nil {
		return Reading{}, fault.Wrap(fault.SensorReadFailed, "sensor serial", err)
	}
	for {
		line, err := s.conn.ReadLine(ctx)
		if err != nil {
			return Reading{}, fault.Wrap(fault.SensorReadFailed, "sensor serial", err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
		if err != nil {
			continue
		}
		return Reading{
			Device: s.name,
			Kind:   "temperature",
			Raw:    int32(math.Round(v * 100)),
			Scale:  -2,
			Unit:   "°C",
			Uptime: s.clock.uptime(),
		}, nil
	}
}
