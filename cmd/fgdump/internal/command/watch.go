package command

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spaghettifunk/framegraph/engine/assets"
	"github.com/spaghettifunk/framegraph/engine/assets/loaders"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/systems"
	"github.com/spf13/cobra"
)

type WatchOptions struct {
	CompileOptions
	Pipeline    string
	MetricsAddr string
}

func NewWatchCommand(cli *CLI) *cobra.Command {
	var opts WatchOptions

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Recompile pipelines whenever their description changes",
		Long: Highlight("fgdump watch <dir>") + "\n\n" +
			"Watch a directory of pipeline descriptions and recompile every one that\n" +
			"changes, printing its hazards. Allocator metrics can be scraped from\n" +
			"--metrics-addr while the command runs.\n\n" +
			"Examples:\n" +
			"  fgdump watch assets/pipelines --metrics-addr :9090\n",
		Args: ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return RunWatch(ctx, cli, args[0], opts)
		},
	}

	opts.AddFlags(cmd)
	cmd.Flags().StringVar(&opts.Pipeline, "pipeline", "", "Only recompile the pipeline with this base name")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}

// RunWatch compiles every pipeline under dir once, then again on each change,
// until ctx is done.
func RunWatch(ctx context.Context, cli *CLI, dir string, opts WatchOptions) error {
	registry := prometheus.NewRegistry()
	s, err := newSession(opts.CompileOptions, registry)
	if err != nil {
		return err
	}
	defer s.close()

	jobs, err := systems.NewJobSystem(1, 8)
	if err != nil {
		return err
	}
	defer jobs.Shutdown()

	am, err := assets.NewAssetManager(jobs)
	if err != nil {
		return err
	}
	if err := am.Initialize(dir); err != nil {
		return err
	}
	defer am.Shutdown()

	// reloads arrive on the job system, compilations and output stay serial
	var mutex sync.Mutex
	say := func(a ...any) {
		mutex.Lock()
		defer mutex.Unlock()
		cli.Println(a...)
	}
	recompile := func(path string, pd *loaders.PipelineDescription) {
		mutex.Lock()
		defer mutex.Unlock()
		cg, err := s.compile(pd, nil)
		if err != nil {
			cli.Println(Alert("failed"), fmt.Sprintf("%s: %s", path, err))
			return
		}
		summarize(cli, pd.Name, cg)
	}
	wanted := func(path string) bool {
		return opts.Pipeline == "" || filepath.Base(path) == opts.Pipeline+assets.PipelineExtension
	}

	am.OnChange(func(info assets.AssetInfo, asset interface{}, err error) {
		if info.Type != assets.AssetTypePipeline || !wanted(info.Path) {
			return
		}
		if err != nil {
			say(Alert("invalid"), err.Error())
			return
		}
		recompile(info.Path, asset.(*loaders.PipelineDescription))
	})

	for _, a := range am.Assets() {
		if a.Type != assets.AssetTypePipeline || !wanted(a.Path) {
			continue
		}
		v, err := am.LoadAsset(a.Path)
		if err != nil {
			say(Alert("invalid"), err.Error())
			continue
		}
		recompile(a.Path, v.(*loaders.PipelineDescription))
	}

	if opts.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.MetricsAddr,
			Handler:           metricsMux(registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				core.LogError("metrics server: %s", err)
			}
		}()
		defer srv.Close()
		say(Highlight("metrics"), "serving on", opts.MetricsAddr+"/metrics")
	}

	say(Highlight("watching"), dir)
	<-ctx.Done()
	return nil
}

func metricsMux(registry *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return mux
}
