package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentmon/agentmon/internal/installapi"
	"github.com/agentmon/agentmon/internal/monitor"
)

// Watch handles the watch command.
//
// It wires the full pipeline: the poll loop that keeps the snapshot store
// current, the event stream, the periodic diagnostic scheduler, and the
// optional metrics endpoint. The handler blocks until the context is
// cancelled.
func Watch(ctx context.Context, configPath string, verbose bool) error {
	e, err := loadEnv(configPath, verbose)
	if err != nil {
		return err
	}

	sched, err := e.newScheduler()
	if err != nil {
		return err
	}

	mon := monitor.New(e.cfg, e.timeouts, e.manifest, e.install, e.clusterFactory(sched), e.log)
	events := monitor.NewEventStream(e.install, e.cfg.Intervals.Events, e.log)

	if e.cfg.MetricsListen != "" {
		go serveMetrics(e.cfg.MetricsListen)
	}

	go mon.Run(ctx)
	go events.Run(ctx, mon.ClusterID, func(event installapi.Event) {
		fmt.Println(renderEvent(event))
	})
	if sched != nil && e.manifest != nil {
		go sched.Start(ctx, e.cfg.Intervals.Diagnostics, mon.Targets)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-mon.Snapshots():
			snap := mon.Current()
			if snap == nil {
				continue
			}
			if sched != nil {
				renderSnapshot(os.Stdout, snap, sched.Findings())
			} else {
				renderSnapshot(os.Stdout, snap, nil)
			}
		}
	}
}

// serveMetrics exposes the Prometheus endpoint. Failures are printed, not
// fatal: metrics are an observability extra, the watch itself keeps running.
func serveMetrics(listen string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		fmt.Fprintf(os.Stderr, "metrics endpoint failed: %v\n", err)
	}
}
