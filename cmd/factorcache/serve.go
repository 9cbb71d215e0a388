/*
Copyright 2026 Vimeo Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/vimeo/lrumemo/factor"
	grpcfactor "github.com/vimeo/lrumemo/grpc"
	httpfactor "github.com/vimeo/lrumemo/http"
	"github.com/vimeo/lrumemo/memo"

	"go.opencensus.io/plugin/ocgrpc"
	"go.opencensus.io/plugin/ochttp"
	"go.opencensus.io/stats/view"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// serve answers factorisation requests over gRPC and HTTP until ctx is
// done.
func serve(ctx context.Context, cfg Config, logOut io.Writer) error {
	logger := cfg.newLogger(logOut)

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("grpc listener: %w", err)
	}
	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		grpcLis.Close()
		return fmt.Errorf("http listener: %w", err)
	}

	s, err := newServers(cfg, logger)
	if err != nil {
		grpcLis.Close()
		httpLis.Close()
		return err
	}
	return s.run(ctx, grpcLis, httpLis)
}

type servers struct {
	cfg      Config
	logger   *slog.Logger
	shared   *factor.Shared
	grpcSrv  *grpc.Server
	httpSrv  *http.Server
	exporter *logExporter
}

func newServers(cfg Config, logger *slog.Logger) (*servers, error) {
	shared, err := factor.NewShared("factorcache", factor.Trial{Delay: cfg.Delay}, memo.ShardedParams[uint64, factor.Factors]{
		Params: memo.Params[uint64, factor.Factors]{Capacity: cfg.Capacity},
		Shards: cfg.Shards,
	})
	if err != nil {
		return nil, err
	}

	grpcSrv := grpc.NewServer(grpcfactor.ServerOptions()...)
	grpcfactor.Register(grpcSrv, shared, logger)

	handler := httpfactor.NewHandler(shared, httpfactor.Options{
		BasePath: cfg.BasePath,
		Logger:   logger,
	})
	httpSrv := &http.Server{
		Handler:           httpfactor.Wrap(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &servers{
		cfg:      cfg,
		logger:   logger,
		shared:   shared,
		grpcSrv:  grpcSrv,
		httpSrv:  httpSrv,
		exporter: &logExporter{logger: logger},
	}, nil
}

// run serves on the given listeners until ctx is done, then shuts both
// servers down within the configured grace period.
func (s *servers) run(ctx context.Context, grpcLis, httpLis net.Listener) error {
	views := append(append(append([]*view.View{}, memo.AllViews...), ocgrpc.DefaultServerViews...), ochttp.DefaultServerViews...)
	if err := view.Register(views...); err != nil {
		return fmt.Errorf("registering views: %w", err)
	}
	defer view.Unregister(views...)
	view.SetReportingPeriod(s.cfg.ReportInterval)
	view.RegisterExporter(s.exporter)
	defer view.UnregisterExporter(s.exporter)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.InfoContext(ctx, "serving grpc", slog.String("addr", grpcLis.Addr().String()))
		if err := s.grpcSrv.Serve(grpcLis); !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		s.logger.InfoContext(ctx, "serving http",
			slog.String("addr", httpLis.Addr().String()),
			slog.String("base_path", s.cfg.BasePath))
		if err := s.httpSrv.Serve(httpLis); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.InfoContext(ctx, "shutting down", slog.Duration("timeout", s.cfg.ShutdownTimeout))
		return s.shutdown()
	})
	err := g.Wait()

	st := s.shared.Stats()
	s.logger.InfoContext(ctx, "stopped",
		slog.Int("entries", st.Items),
		statsGroup(st.Cache),
		slog.Int64("loads", st.Loads),
		slog.Int64("load_errors", st.LoadErrors),
		slog.Int64("loads_deduped", st.LoadsDeduped))
	return err
}

func (s *servers) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		s.grpcSrv.GracefulStop()
		close(stopped)
	}()
	httpErr := s.httpSrv.Shutdown(ctx)
	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpcSrv.Stop()
		<-stopped
	}
	if httpErr != nil {
		return fmt.Errorf("http shutdown: %w", httpErr)
	}
	return nil
}

// logExporter writes opencensus view data to the log at debug level.
type logExporter struct {
	logger *slog.Logger
}

func (e *logExporter) ExportView(vd *view.Data) {
	for _, row := range vd.Rows {
		attrs := make([]slog.Attr, 0, len(row.Tags)+2)
		attrs = append(attrs, slog.String("view", vd.View.Name), slog.String("value", fmt.Sprint(row.Data)))
		for _, t := range row.Tags {
			attrs = append(attrs, slog.String(t.Key.Name(), t.Value))
		}
		e.logger.LogAttrs(context.Background(), slog.LevelDebug, "view", attrs...)
	}
}
