// Stress test comparing the dynamic tree broad phase against brute force, and
// timing full pipeline steps over growing piles of boxes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"collide3d/internal/logging"
	"collide3d/internal/telemetry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	countsFlag := flag.String("counts", "100,500,1000,2000,5000", "comma separated object counts")
	seed := flag.Int64("seed", 42, "random seed for object placement")
	steps := flag.Int("steps", 120, "pipeline steps per count")
	metricsAddr := flag.String("metrics", "", "serve Prometheus metrics on this address, e.g. :9090")
	hold := flag.Bool("hold", false, "keep serving metrics after the run until interrupted")
	snapshot := flag.String("snapshot", "", "write a PNG of the last tree to this path")
	debug := flag.Bool("debug", false, "development logging")
	flag.Parse()

	log := logging.Must(*debug)
	defer log.Sync()

	counts, err := parseCounts(*countsFlag)
	if err != nil {
		log.Error("bad -counts", zap.Error(err))
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	b := &bench{
		log:       log,
		seed:      *seed,
		steps:     *steps,
		collector: telemetry.NewCollector(reg),
	}

	g, gctx := errgroup.WithContext(ctx)

	if *metricsAddr != "" {
		srv := &http.Server{
			Addr:              *metricsAddr,
			Handler:           newRouter(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("serving metrics", zap.String("addr", *metricsAddr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		if !*hold {
			defer stop()
		}
		if err := b.run(gctx, counts); err != nil {
			return err
		}
		if *snapshot != "" && b.lastWorld != nil {
			if err := writeTreeSnapshot(*snapshot, b.lastWorld.Physics.Tree()); err != nil {
				return fmt.Errorf("snapshot: %w", err)
			}
			log.Info("tree snapshot written", zap.String("path", *snapshot))
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("stress run failed", zap.Error(err))
		os.Exit(1)
	}
}

func newRouter(reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
	}))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func parseCounts(s string) ([]int, error) {
	var counts []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, fmt.Errorf("count must be positive, got %d", n)
		}
		counts = append(counts, n)
	}
	if len(counts) == 0 {
		return nil, errors.New("no counts given")
	}
	return counts, nil
}
