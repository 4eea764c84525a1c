// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/db47h/dase"
	"github.com/db47h/dase/bridge"
	"github.com/db47h/dase/internal/config"
	"github.com/db47h/dase/internal/pattern"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	logLevel string
}

// logger returns a text logger writing to w. An empty level keeps def.
func (o *rootOptions) logger(w io.Writer, def slog.Level) (*slog.Logger, error) {
	lvl := def
	if o.logLevel != "" {
		if err := lvl.UnmarshalText([]byte(o.logLevel)); err != nil {
			return nil, errors.Wrap(err, "--log-level")
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "dase",
		Short:        "Universal node analog computer engine",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the configuration")
	cmd.AddCommand(newRunCmd(o), newRolesCmd(), newSheetCmd(o))
	return cmd
}

type runOptions struct {
	*rootOptions
	output      string
	metricsAddr string
}

func newRunCmd(ro *rootOptions) *cobra.Command {
	o := &runOptions{rootOptions: ro}
	cmd := &cobra.Command{
		Use:   "run [config.yaml ...]",
		Short: "Run one engine per configuration and write the results as JSON",
		Long: `Run loads every given YAML configuration, runs each on its own engine
concurrently and writes one JSON results document per configuration, in
argument order. Without arguments, the default configuration is run.

Logging uses the most verbose log_level of all configurations, unless
--log-level is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args)
		},
	}
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "write results to `file` instead of stdout")
	cmd.Flags().StringVar(&o.metricsAddr, "metrics-addr", "", "serve prometheus metrics on `addr` while running")
	return cmd
}

func (o *runOptions) run(ctx context.Context, stdout, stderr io.Writer, paths []string) error {
	cfgs, names, err := loadConfigs(paths)
	if err != nil {
		return err
	}
	log, err := o.logger(stderr, minLevel(cfgs))
	if err != nil {
		return err
	}

	jobs := make([]bridge.Job, len(cfgs))
	metrics := o.metricsAddr != ""
	for i := range cfgs {
		if jobs[i], err = newJob(names[i], &cfgs[i]); err != nil {
			return err
		}
		metrics = metrics || cfgs[i].Metrics
	}

	opts := []dase.Option{dase.WithLogger(log)}
	var reg *prometheus.Registry
	if metrics {
		reg = prometheus.NewRegistry()
		c := dase.NewCollector("dase")
		reg.MustRegister(c)
		opts = append(opts, dase.WithCollector(c))
	}
	if o.metricsAddr != "" {
		stop, err := serveMetrics(o.metricsAddr, reg, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	start := time.Now()
	res, err := bridge.RunBatch(ctx, jobs, opts...)
	if err != nil {
		return err
	}
	log.Info("run complete", slog.Int("jobs", len(jobs)), slog.Duration("elapsed", time.Since(start)))
	if reg != nil {
		logMetrics(log, reg)
	}

	return writeOutput(stdout, o.output, func(w io.Writer) error {
		for _, r := range res {
			if err := bridge.WriteResults(w, r); err != nil {
				return err
			}
		}
		return nil
	})
}

// minLevel returns the most verbose log level of cfgs. Levels were checked by
// config.Validate.
func minLevel(cfgs []config.Config) slog.Level {
	lvl, _ := cfgs[0].Level()
	for _, c := range cfgs[1:] {
		if l, _ := c.Level(); l < lvl {
			lvl = l
		}
	}
	return lvl
}

func loadConfigs(paths []string) ([]config.Config, []string, error) {
	if len(paths) == 0 {
		return []config.Config{config.Default()}, []string{"default"}, nil
	}
	cfgs := make([]config.Config, len(paths))
	names := make([]string, len(paths))
	for i, p := range paths {
		c, err := config.Load(p)
		if err != nil {
			return nil, nil, errors.WithMessage(err, p)
		}
		cfgs[i] = c
		names[i] = strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
	}
	return cfgs, names, nil
}

func newJob(name string, c *config.Config) (bridge.Job, error) {
	p, err := c.Pattern()
	if err != nil {
		return bridge.Job{}, err
	}
	return bridge.Job{
		Name:        name,
		Capacity:    c.Capacity,
		Workers:     c.Workers,
		Nodes:       c.Nodes,
		Pattern:     p.At,
		Inputs:      c.Inputs,
		SwitchEvery: c.SwitchEvery,
	}, nil
}

// serveMetrics serves the metrics of reg on addr until stop is called.
func serveMetrics(addr string, reg *prometheus.Registry, log *slog.Logger) (stop func(), err error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "metrics listener")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server", slog.Any("error", err))
		}
	}()
	log.Info("serving metrics", slog.String("addr", l.Addr().String()))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("metrics server shutdown", slog.Any("error", err))
		}
	}, nil
}

func logMetrics(log *slog.Logger, reg *prometheus.Registry) {
	mfs, err := reg.Gather()
	if err != nil {
		log.Warn("gather metrics", slog.Any("error", err))
		return
	}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				log.Info("metric", slog.String("name", mf.GetName()), slog.Float64("value", m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				log.Info("metric", slog.String("name", mf.GetName()),
					slog.Uint64("count", h.GetSampleCount()),
					slog.Float64("sum", h.GetSampleSum()))
			}
		}
	}
}

func writeOutput(stdout io.Writer, path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close output")
}

func newRolesCmd() *cobra.Command {
	var nodes int
	cmd := &cobra.Command{
		Use:   "roles PATTERN",
		Short: "Print the role assigned to each node by a role pattern",
		Long: `Roles prints, for each node index, the role selected by PATTERN. A
pattern is a comma separated list of role names with optional repeat counts,
and explicit node assignments:

	worker, comm*2, kernel
	cyclic, 0..9=kernel, 42=vector`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pattern.Parse(args[0])
			if err != nil {
				return err
			}
			if nodes < 0 {
				return errors.Errorf("invalid node count %d", nodes)
			}
			var counts [len(dase.Roles)]int
			w := cmd.OutOrStdout()
			for i := 0; i < nodes; i++ {
				r := p.At(i)
				counts[r]++
				fmt.Fprintf(w, "%d\t%v\n", i, r)
			}
			for _, r := range dase.Roles {
				if counts[r] > 0 {
					fmt.Fprintf(w, "# %v: %d\n", r, counts[r])
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&nodes, "nodes", "n", 12, "number of nodes")
	return cmd
}

func newSheetCmd(ro *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "sheet SHEET.json",
		Short: "Evaluate the analog module formulas of a JSON sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := ro.logger(cmd.ErrOrStderr(), slog.LevelInfo)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "open sheet")
			}
			defer f.Close()
			s, err := bridge.ParseSheet(f)
			if err != nil {
				return err
			}
			r := s.Compute()
			log.Info("sheet computed",
				slog.String("run_id", r.RunID),
				slog.Int("cells", r.Performance.NodesComputed),
				slog.String("status", r.Status))
			return writeOutput(cmd.OutOrStdout(), output, func(w io.Writer) error {
				return bridge.WriteResults(w, r)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write results to `file` instead of stdout")
	return cmd
}
