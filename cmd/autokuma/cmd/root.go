package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"
	"k8s.io/klog/v2/textlogger"

	"github.com/autokuma/autokuma/internal/config"
	"github.com/autokuma/autokuma/internal/entity"
	"github.com/autokuma/autokuma/internal/reconciler"
	"github.com/autokuma/autokuma/internal/remote"
	"github.com/autokuma/autokuma/internal/sources"
	"github.com/autokuma/autokuma/internal/sources/dockersource"
	"github.com/autokuma/autokuma/internal/sources/filesource"
	"github.com/autokuma/autokuma/internal/sources/kubesource"
	"github.com/autokuma/autokuma/internal/store"
	"github.com/autokuma/autokuma/pkg/health"
	"github.com/autokuma/autokuma/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "autokuma [command] [options]",
	Short: "Reconciles container/Kubernetes/file labels into Uptime Kuma monitors",
	Long: `
AutoKuma reads monitor definitions from Docker/Swarm labels, Kubernetes
custom resources and static files, and keeps a matching set of
Uptime Kuma monitors, notifications, tags and status pages in sync.

  # run with a config file
  autokuma --config /etc/autokuma/autokuma.yaml

  # run from environment variables only
  KUMA__URL=http://kuma:3001 KUMA__USERNAME=admin KUMA__PASSWORD=secret autokuma
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetBool("version") {
			fmt.Println(version.Version)
			return nil
		}
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information and quit")
	rootCmd.Flags().StringP("config", "c", "", "Path to a JSON/YAML/TOML configuration file")
	rootCmd.Flags().StringP("log-level", "", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.Flags().IntP("health-port", "", 8080, "Port serving /healthz, /readyz and /metrics (0 disables)")
	_ = viper.BindPFlags(rootCmd.Flags())
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := newLogger()
	setupKlog(log)

	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	st, err := store.Open(cfg.DataDir, cfg.Migrate)
	if err != nil {
		return fmt.Errorf("open identity store: %w", err)
	}
	defer st.Close()

	remoteCfg := remote.Config{
		URL:            cfg.Kuma.URL,
		ConnectTimeout: cfg.Kuma.ConnectTimeout,
		CallTimeout:    cfg.Kuma.CallTimeout,
		Headers:        headersOf(cfg.Kuma.Headers),
	}
	creds := remote.Credentials{
		Username:  cfg.Kuma.Username,
		Password:  cfg.Kuma.Password,
		MFAToken:  cfg.Kuma.MFAToken,
		MFASecret: cfg.Kuma.MFASecret,
		AuthToken: cfg.Kuma.AuthToken,
	}
	manager := remote.NewManager(remoteCfg, creds, cfg.DataDir, 0, 0)
	defer manager.Close()

	srcs := buildSources(cfg, log)

	reg := prometheus.NewRegistry()
	metrics := health.NewMetrics(reg)
	hc := health.NewHealthChecker(log.WithField("component", "health"))

	var healthServer *http.Server
	if port := viper.GetInt("health-port"); port > 0 {
		mux := http.NewServeMux()
		health.AttachHealthEndpoints(mux, hc)
		health.AttachMetricsEndpoint(mux, reg)
		healthServer = &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
		go func() {
			if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("health server stopped")
			}
		}()
	}

	loop := reconciler.New(reconciler.Config{
		EntityConfig: entity.Config{
			Snippets:          cfg.Snippets,
			DefaultSettings:   cfg.DefaultSettings,
			InsecureEnvAccess: cfg.InsecureEnvAccess,
		},
		DeleteGracePeriod: cfg.DeleteGracePeriod,
		OnDeleteKeep:      cfg.OnDelete == "keep",
	}, srcs, manager, st, log, hc, metrics)

	runCtx, cancel := context.WithCancel(ctx)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("shutting down gracefully")
		cancel()
	}()

	err = loop.Run(runCtx)

	if healthServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Kuma.CallTimeout)
		defer shutdownCancel()
		_ = healthServer.Shutdown(shutdownCtx)
	}
	return err
}

func buildSources(cfg *config.Config, log *logrus.Entry) []sources.Source {
	var srcs []sources.Source

	if len(cfg.Docker.Hosts) > 0 {
		endpoints := make([]dockersource.Endpoint, 0, len(cfg.Docker.Hosts))
		for _, host := range cfg.Docker.Hosts {
			endpoints = append(endpoints, dockersource.Endpoint{Host: host})
		}
		srcs = append(srcs, dockersource.New(dockersource.Config{
			Endpoints:   endpoints,
			LabelPrefix: cfg.Docker.LabelPrefix,
			Source:      dockersource.Mode(cfg.Docker.Source),
		}, log.WithField("source", "docker")))
	}

	if cfg.StaticMonitors != "" {
		srcs = append(srcs, filesource.New(filesource.Config{
			Root:           cfg.StaticMonitors,
			FollowSymlinks: cfg.Files.FollowSymlinks,
		}, log.WithField("source", "files")))
	}

	// The Kubernetes source resolves its REST config lazily on first
	// Collect/Watch; a cluster that isn't reachable surfaces as a
	// per-tick collect error rather than blocking startup.
	srcs = append(srcs, kubesource.New(kubesource.Config{}, log.WithField("source", "kubernetes")))

	return srcs
}

func headersOf(m map[string]string) http.Header {
	h := http.Header{}
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}

// setupKlog routes client-go's internal logging (used by the Kubernetes
// source's informer) through klog's textlogger at a verbosity derived
// from --log-level, so a misbehaving watch surfaces in the same output
// stream as the rest of AutoKuma's logs.
func setupKlog(log *logrus.Entry) {
	verbosity := 0
	if log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		verbosity = 4
	}
	cfg := textlogger.NewConfig(
		textlogger.Output(log.Logger.Out),
		textlogger.Verbosity(verbosity),
	)
	klog.SetLoggerWithOptions(textlogger.NewLogger(cfg))
}

func newLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(viper.GetString("log-level")); err == nil {
		logger.SetLevel(level)
	}
	return logger.WithField("component", "autokuma")
}
