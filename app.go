package main

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/yeremiapane/cleanshift/config"
	"github.com/yeremiapane/cleanshift/database"
	"github.com/yeremiapane/cleanshift/hub"
	"github.com/yeremiapane/cleanshift/services"
	"github.com/yeremiapane/cleanshift/utils"
	"gorm.io/gorm"
)

// app wires the store, the gateways and the acknowledgement monitor.
type app struct {
	cfg          *config.Config
	db           *gorm.DB
	tasks        *services.TaskService
	availability *services.AvailabilityService
	hub          *hub.Hub
	monitor      *services.AckMonitor
	registry     *prometheus.Registry
	nc           *nats.Conn
}

func newApp(cfg *config.Config) (*app, error) {
	db, err := config.InitDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	loc, err := cfg.Monitor.Location()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:          cfg,
		db:           db,
		tasks:        services.NewTaskService(db),
		availability: services.NewAvailabilityService(db),
		hub:          hub.New(),
		registry:     prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gateway, err := a.buildGateway()
	if err != nil {
		a.Close()
		return nil, err
	}

	m := services.NewAckMonitor(a.tasks, gateway, services.NewShiftCalendar(loc))
	m.Interval = cfg.Monitor.Interval
	m.GracePeriod = cfg.Monitor.GracePeriod
	m.QueryTimeout = cfg.Monitor.QueryTimeout
	m.AlertTimeout = cfg.Monitor.AlertTimeout
	m.Metrics = services.NewMonitorMetrics(a.registry)
	a.monitor = m

	return a, nil
}

// buildGateway decides which channel's result counts as delivery. With a webhook
// configured that is the webhook; otherwise the admin inbox. Every other channel is
// best effort.
func (a *app) buildGateway() (services.NotificationGateway, error) {
	store := services.NewStoreGateway(a.db)
	fanout := &services.FanoutGateway{Primary: store}

	if url := a.cfg.Notify.WebhookURL; url != "" {
		fanout.Primary = services.NewWebhookGateway(url, a.cfg.Notify.WebhookTimeout)
		fanout.Secondary = append(fanout.Secondary, store)
		utils.InfoLogger.Printf("Escalations delivered by webhook %s", url)
	}

	if url := a.cfg.Notify.NATSURL; url != "" {
		nc, err := nats.Connect(url,
			nats.Name("cleanshift"),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		a.nc = nc
		fanout.Secondary = append(fanout.Secondary, services.NewNATSGateway(nc, a.cfg.Notify.NATSSubject))
		utils.InfoLogger.Printf("Escalations published on NATS %s", url)
	}

	fanout.Secondary = append(fanout.Secondary,
		services.NewHubGateway(a.hub),
		services.LogGateway{},
	)
	return fanout, nil
}

func (a *app) Close() {
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.nc != nil {
		a.nc.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}
