package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"diesel.com/sph2d/app"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

type options struct {
	configPath string
	logLevel   string
	logJSON    bool
	profile    string
	profileDir string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("sph2d failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "sph2d",
		Short:         "Planar SPH fluid simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configureLogging(opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (yaml, toml or json)")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level")
	pf.BoolVar(&opts.logJSON, "log-json", false, "log as JSON")
	pf.StringVar(&opts.profile, "profile", "", "profile mode: cpu, mem or trace")
	pf.StringVar(&opts.profileDir, "profile-dir", ".", "profile output directory")

	root.AddCommand(newRunCmd(opts), newServeCmd(opts))
	return root
}

func configureLogging(opts *options) error {
	level, err := logrus.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	if opts.logJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

//sceneFlags are bound over the config keys they override
func sceneFlags(fs *pflag.FlagSet) {
	d := app.DefaultConfig()
	fs.Int("particles", d.Particles, "particle count")
	fs.String("layout", d.Layout, "spawn layout: random or grid")
	fs.Int("frames", d.Frames, "stop after n frames (0 runs until interrupted)")
	fs.Float64("fps", d.FPS, "frame rate (0 runs unpaced)")
	fs.Int("substeps", d.Substeps, "simulation steps per frame")
	fs.Int("stats-every", d.StatsEvery, "log stats every n frames")
	fs.String("heatmap-dir", d.Heatmap.Dir, "write density heatmaps into this directory")
	fs.Int("heatmap-every", d.Heatmap.Every, "heatmap export interval in frames")
	fs.String("kernel", d.Fluid.Kernel, "kernel profile: spiky or muller")
	fs.Int("workers", d.Fluid.Workers, "worker goroutines per pass (0 uses GOMAXPROCS)")
	fs.Uint64("seed", d.Fluid.Seed, "spawn seed")
}

var flagKeys = map[string]string{
	"particles":     "particles",
	"layout":        "layout",
	"frames":        "frames",
	"fps":           "fps",
	"substeps":      "substeps",
	"stats-every":   "stats_every",
	"heatmap-dir":   "heatmap.dir",
	"heatmap-every": "heatmap.every",
	"kernel":        "fluid.kernel",
	"workers":       "fluid.workers",
	"seed":          "fluid.seed",
	"addr":          "stream.addr",
}

func loadScene(cmd *cobra.Command, opts *options) (*app.Scene, *viper.Viper, error) {
	v, err := app.NewViper(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, nil, err
			}
		}
	}
	cfg, err := app.LoadConfig(v)
	if err != nil {
		return nil, nil, err
	}

	scene, err := app.NewScene(cfg, logrus.StandardLogger())
	if err != nil {
		return nil, nil, err
	}
	if opts.configPath != "" {
		app.WatchConfig(v, logrus.StandardLogger(), scene.SubmitConfig)
	}
	logrus.WithFields(logrus.Fields{
		"particles": scene.Fluid.Len(),
		"kernel":    cfg.Fluid.Kernel,
		"workers":   scene.Fluid.Params().Workers,
	}).Info("scene ready")
	return scene, v, nil
}

func startProfile(opts *options) interface{ Stop() } {
	var mode func(*profile.Profile)
	switch opts.profile {
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfile
	case "trace":
		mode = profile.TraceProfile
	default:
		return nopStop{}
	}
	return profile.Start(mode, profile.ProfilePath(opts.profileDir), profile.NoShutdownHook)
}

type nopStop struct{}

func (nopStop) Stop() {}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation headless, logging stats and exporting heatmaps",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.profile != "" && opts.profile != "cpu" && opts.profile != "mem" && opts.profile != "trace" {
				return fmt.Errorf("unknown profile mode %q", opts.profile)
			}
			scene, _, err := loadScene(cmd, opts)
			if err != nil {
				return err
			}
			defer startProfile(opts).Stop()

			ctx, stop := signalContext()
			defer stop()
			start := time.Now()
			err = scene.Run(ctx)
			logrus.WithFields(logrus.Fields{
				"frames":  scene.Frames(),
				"elapsed": time.Since(start).Round(time.Millisecond).String(),
			}).Info("run finished")
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	sceneFlags(cmd.Flags())
	return cmd
}

func newServeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation and stream frames over a websocket at /ws",
		RunE: func(cmd *cobra.Command, args []string) error {
			scene, _, err := loadScene(cmd, opts)
			if err != nil {
				return err
			}
			defer startProfile(opts).Stop()

			stream := app.NewStream(scene, logrus.StandardLogger())
			scene.AttachStream(stream)

			mux := http.NewServeMux()
			mux.Handle("/ws", stream)
			srv := &http.Server{Addr: scene.Config.Stream.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

			ctx, stop := signalContext()
			defer stop()
			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logrus.WithField("addr", srv.Addr).Info("streaming on /ws")
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				err := scene.Run(ctx)
				stop()
				return err
			})
			g.Go(func() error {
				<-ctx.Done()
				stream.Close()
				shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdown)
			})

			err = g.Wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	sceneFlags(cmd.Flags())
	cmd.Flags().String("addr", app.DefaultConfig().Stream.Addr, "listen address")
	return cmd
}
