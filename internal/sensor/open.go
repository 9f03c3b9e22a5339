package sensor

import (
	"coapnotify/internal/config"
	"coapnotify/internal/fault"
)

// Open builds the sensor selected by cfg. An empty kind means mock.
func Open(cfg config.SensorConfig) (Sensor, error) {
	switch cfg.Kind {
	case "", "mock":
		m, err := NewMock(cfg.Name, cfg.Metric)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "cpu":
		return NewCPU(), nil
	case "serial":
		if cfg.Port == "" {
			return nil, fault.New(fault.NoSensor, "sensor serial", "no serial port configured")
		}
		s, err := OpenSerial(cfg.Name, cfg.Port, cfg.Baud)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fault.New(fault.NoSensor, "sensor", "unknown sensor kind %q", cfg.Kind)
	}
}
