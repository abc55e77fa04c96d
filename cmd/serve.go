package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"geo-reminder/internal/events"
	"geo-reminder/internal/geofence"
	"geo-reminder/internal/handlers"
	"geo-reminder/internal/metrics"
	"geo-reminder/internal/monitor"
	"geo-reminder/internal/notify"
	"geo-reminder/internal/tracker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reminder API and the geofencing monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "address to listen on")
	f.StringVar(&cfg.StaticDir, "static", cfg.StaticDir, "directory to serve static files from")
	f.StringVar(&cfg.TLSCert, "tls-cert", cfg.TLSCert, "path to TLS certificate file (optional)")
	f.StringVar(&cfg.TLSKey, "tls-key", cfg.TLSKey, "path to TLS key file (optional)")
	f.Float64Var(&cfg.RadiusMeters, "radius", cfg.RadiusMeters, "trigger radius in meters")
	f.DurationVar(&cfg.FixTimeout, "fix-timeout", cfg.FixTimeout, "report a timeout when no position arrives within this window (0 disables)")
	f.StringVar(&cfg.PositionSource, "position-source", cfg.PositionSource, "where positions come from: http, nats or none")
	f.StringVar(&cfg.PositionTopic, "position-subject", cfg.PositionTopic, "NATS subject carrying positions (used when position-source=nats)")
	f.StringVar(&cfg.Permission, "notify-permission", cfg.Permission, "initial notification permission: prompt, granted or denied")
	f.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server for events and positions (optional)")
}

func serve(ctx context.Context) error {
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	var pub events.Publisher = &events.NoopPublisher{}
	if cfg.NATSURL != "" {
		np, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		pub = np
		logger.Info("publishing events to NATS", "url", cfg.NATSURL)
	}
	defer pub.Close()

	initial, err := notify.ParsePermissionMode(cfg.Permission)
	if err != nil {
		return err
	}
	prompter := notify.NewPendingPrompter()
	dispatcher := notify.MultiDispatcher{
		notify.LogDispatcher{Logger: logger},
		notify.EventDispatcher{Publisher: pub},
	}
	gate := notify.NewGate(notify.NewPlatform(initial, prompter, dispatcher), logger)

	var (
		source tracker.Geolocator
		push   *tracker.PushSource
	)
	switch cfg.PositionSource {
	case "http":
		push = tracker.NewPushSource()
		source = push
	case "nats":
		sub, err := events.NewNATSSubscriber(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("failed to subscribe to positions: %w", err)
		}
		defer sub.Close()
		source = tracker.NewNATSSource(sub, cfg.PositionTopic, logger)
	}

	opts := tracker.DefaultOptions()
	opts.Timeout = cfg.FixTimeout

	m := metrics.New()
	mon := monitor.New(monitor.Config{
		Tracker:      tracker.New(source, opts, logger),
		Evaluator:    geofence.NewEvaluator(nil, logger),
		Gate:         gate,
		Reminders:    store,
		History:      store,
		Publisher:    pub,
		Metrics:      m,
		RadiusMeters: cfg.RadiusMeters,
		UserID:       cfg.UserID,
	}, logger)

	h := &handlers.Handlers{
		Store:     store,
		Monitor:   mon,
		Positions: push,
		Prompter:  prompter,
		Gate:      gate,
		Metrics:   m,
		UserID:    cfg.UserID,
		Logger:    logger,
	}
	r := mux.NewRouter()
	h.Register(r)

	// Static file server for frontend at "/"
	staticFs := http.FileServer(http.Dir(cfg.StaticDir))
	r.PathPrefix("/").Handler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		path := req.URL.Path
		ext := filepath.Ext(path)
		if ext != "" {
			if ctype := mime.TypeByExtension(ext); ctype != "" {
				w.Header().Set("Content-Type", ctype)
			}
		}
		staticFs.ServeHTTP(w, req)
	}))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Without a position source the API keeps serving.
		if err := mon.Run(gctx); err != nil {
			logger.Warn("geofencing disabled", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if cfg.TLSCert != "" && cfg.TLSKey != "" {
			logger.Info("starting geo-reminder with HTTPS", "addr", cfg.HTTPAddr, "static", cfg.StaticDir)
			err = srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			logger.Info("starting geo-reminder with HTTP", "addr", cfg.HTTPAddr, "static", cfg.StaticDir)
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("could not start HTTP server: %w", err)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
