package cmd

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"coapnotify/internal/admin"
	"coapnotify/internal/coapx"
	"coapnotify/internal/config"
	"coapnotify/internal/dispatch"
	"coapnotify/internal/indicator"
	"coapnotify/internal/logx"
	"coapnotify/internal/metrics"
	"coapnotify/internal/notify"
	"coapnotify/internal/remotecmd"
	"coapnotify/internal/sensor"
)

// app is the wired notifier shared by the subcommands.
type app struct {
	defaults  *config.Defaults
	store     *config.Store
	transport *coapx.Transport
	client    *notify.Client
	notifier  *dispatch.Notifier
	admin     *admin.Admin
	registry  *prometheus.Registry
}

func openApp() (*app, error) {
	d, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagExchangeTimeout > 0 {
		d.Exchange.Timeout = flagExchangeTimeout
	}
	if flagWaitBudget > 0 {
		d.Exchange.WaitBudget = flagWaitBudget
	}
	store, err := config.NewStore(d)
	if err != nil {
		return nil, err
	}
	logx.Debugf("config loaded: file=%q interval=%dm address=%s port=%s path=%s chats=%d dtls=%v",
		flagConfig, store.Interval(), store.Address(), store.Port(), store.URIPath(), store.ChatCount(), d.DTLS.Enabled())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	tr := coapx.New(coapx.Config{
		Identity: d.DTLS.Identity,
		PSK:      d.DTLS.PSK,
		Timeout:  d.Exchange.Timeout,
	})
	client := notify.New(store, tr, remotecmd.New(store, d.RemoteSecret), notify.Options{
		ExchangeTimeout: d.Exchange.Timeout,
		PollInterval:    d.Exchange.PollInterval,
		Metrics:         m,
	})

	s, err := sensor.Open(d.Sensor)
	if err != nil {
		// commands that never read the sensor still work
		logx.Errorf("sensor unavailable: %v", err)
		s = nil
	}
	ind, err := indicator.Open(d.Indicator)
	if err != nil {
		logx.Errorf("indicator unavailable, logging LED changes instead: %v", err)
		ind = &indicator.Log{}
	}
	n := dispatch.New(store, client, s, ind, dispatch.Options{
		WaitBudget:  d.Exchange.WaitBudget,
		PollUpdates: d.Exchange.PollUpdates,
		Breaker:     d.Breaker,
		Metrics:     m,
	})
	return &app{
		defaults:  d,
		store:     store,
		transport: tr,
		client:    client,
		notifier:  n,
		admin:     admin.New(store, n),
		registry:  reg,
	}, nil
}

func (a *app) Close() error {
	var errs []error
	if err := a.notifier.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.transport.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close transport: %w", err))
	}
	return errors.Join(errs...)
}
