// Command skiptrack counts jump-rope jumps from an accelerometer and
// publishes them to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/sweeney/skiptrack/internal/button"
	"github.com/sweeney/skiptrack/internal/config"
	"github.com/sweeney/skiptrack/internal/feedback"
	"github.com/sweeney/skiptrack/internal/logging"
	"github.com/sweeney/skiptrack/internal/logic"
	"github.com/sweeney/skiptrack/internal/metrics"
	"github.com/sweeney/skiptrack/internal/motion"
	"github.com/sweeney/skiptrack/internal/mqtt"
	"github.com/sweeney/skiptrack/internal/status"
	"github.com/sweeney/skiptrack/internal/web"
	"github.com/sweeney/skiptrack/internal/workout"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (default $"+config.EnvConfigFile+")")
	printSample := flag.Bool("print-sample", false, "Print one sample from the motion source and exit")

	flag.Parse()

	if err := run(*configPath, *printSample); err != nil {
		logrus.Fatalf("fatal: %v", err)
	}
}

func run(configPath string, printSample bool) (err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logCloser := logging.Setup(logging.Params{
		Level:  cfg.Log.Level,
		JSON:   cfg.Log.JSON,
		File:   cfg.Log.File,
		Stdout: cfg.Log.Stdout,
	})
	defer logCloser.Close()

	chain := motion.NewChain(buildSources(cfg.Sources)...)
	defer multierr.AppendInvoke(&err, multierr.Close(chain))

	if printSample {
		return printOneSample(chain)
	}

	if err := chain.Open(); err != nil {
		logrus.WithError(err).Warn("no motion source at startup, will retry when a workout starts")
	}

	metricsManager := metrics.NewManager(metrics.WithNamespace(cfg.Metrics.Namespace))

	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.Discard{}
	if cfg.MQTT.Broker != "" {
		publisher = mqtt.NewRealPublisher(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			BufferSize: cfg.MQTT.BufferSize,
		})
	} else {
		logrus.Info("mqtt disabled")
	}
	defer multierr.AppendInvoke(&err, multierr.Close(publisher))

	fb, err := feedback.New(cfg.Feedback, os.Stdout)
	if err != nil {
		return err
	}

	var btn button.Reader
	if cfg.Button.Enabled {
		r, err := button.NewRealReader(cfg.Button.Chip, cfg.Button.Pin)
		if err != nil {
			logrus.WithError(err).Warn("button unavailable, manual taps only over HTTP")
		} else {
			btn = r
			defer r.Close()
		}
	}

	startTime := time.Now()
	tracker := status.NewTracker(startTime, statusConfig(cfg))
	history := workout.NewHistory()

	l := newLoop(loopDeps{
		Policy:     cfg.Detector.Policy(),
		Chain:      chain,
		Button:     btn,
		History:    history,
		Publisher:  publisher,
		MQTTStatus: publisher,
		Feedback:   fb,
		Metrics:    metricsManager,
		Tracker:    tracker,
		Heartbeat:  cfg.Heartbeat,
		Start:      startTime,
		Now:        time.Now,
	})
	l.refresh(startTime)

	startup := mqtt.SystemEvent{
		Timestamp:  startTime,
		Event:      mqtt.EventStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(tracker.Snapshot(), mqtt.EventStartup, ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		logrus.WithError(err).Warn("publish startup event")
	} else {
		logrus.Info("published startup event")
	}

	cmds := make(chan command)

	if cfg.HTTP.Addr != "" {
		opts := web.Options{
			Tracker: tracker,
			History: history,
			Control: &controller{cmds: cmds},
		}
		if cfg.Metrics.Enabled {
			opts.Metrics = metricsManager.Handler()
		}
		srv := web.New(cfg.HTTP.Addr, opts)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.WithError(err).Error("http server")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		logrus.WithField("addr", cfg.HTTP.Addr).Info("http server listening")
	}

	if cfg.Autostart != "" {
		if _, err := l.startWorkout(time.Now(), cfg.Autostart); err != nil {
			return fmt.Errorf("autostart: %w", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"poll":       cfg.Poll,
		"threshold":  cfg.Detector.Threshold,
		"refractory": cfg.Detector.Refractory,
		"broker":     cfg.MQTT.Broker,
		"heartbeat":  cfg.Heartbeat,
	}).Info("started")

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return l.run(ticker.C, sigCh, cmds)
}

func buildSources(cfgs []config.SourceConfig) []motion.Source {
	sources := make([]motion.Source, 0, len(cfgs))
	for _, sc := range cfgs {
		switch sc.Kind {
		case config.KindSerial:
			sources = append(sources, motion.NewSerialSource(sc.DisplayName(), sc.Path, motion.PortOptions{
				BaudRate: sc.Baud,
				DataBits: sc.DataBits,
				StopBits: sc.StopBits,
				Parity:   sc.Parity,
			}, motion.WithReadTimeout(sc.ReadTimeout)))
		case config.KindReplay:
			sources = append(sources, motion.NewReplaySource(sc.DisplayName(), sc.Path, sc.Loop))
		}
	}
	return sources
}

func printOneSample(chain *motion.Chain) error {
	if err := chain.Open(); err != nil {
		return err
	}
	s, err := chain.Read()
	if err != nil {
		return fmt.Errorf("read sample: %w", err)
	}
	fmt.Printf("source: %s x=%.3f y=%.3f z=%.3f |a|=%.3f\n",
		chain.State().Active, s.X, s.Y, s.Z, logic.Magnitude(s))
	return nil
}

func statusConfig(cfg *config.Config) status.Config {
	names := make([]string, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		names = append(names, sc.DisplayName())
	}
	return status.Config{
		PollMs:           cfg.Poll.Milliseconds(),
		ThresholdG:       cfg.Detector.Threshold,
		RefractoryMs:     cfg.Detector.Refractory.Milliseconds(),
		ManualIntervalMs: cfg.Detector.ManualInterval.Milliseconds(),
		HeartbeatMs:      cfg.Heartbeat.Milliseconds(),
		Sources:          names,
		Button:           cfg.Button.Enabled,
		Broker:           cfg.MQTT.Broker,
		HTTPAddr:         cfg.HTTP.Addr,
	}
}
