package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/skybright/solarcollect/pkg/battery"
	"github.com/skybright/solarcollect/pkg/collector"
	"github.com/skybright/solarcollect/pkg/config"
	"github.com/skybright/solarcollect/pkg/metrics"
	"github.com/skybright/solarcollect/pkg/mqttpub"
	"github.com/skybright/solarcollect/pkg/sensor"
	"github.com/skybright/solarcollect/pkg/uploader"
)

var (
	conf config.Config
	est  *battery.Estimator
	coll *collector.Collector
	pipe *uploader.Pipeline
)

func setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/status", getStatus)
	router.GET("/battery", getBattery)
	router.PUT("/battery/capacity", setBatteryCapacity)
	router.GET("/config", getConfig)
	router.GET("/version", getVersion)

	return router
}

// Run wires the collector together and blocks until SIGINT/SIGTERM. The
// sensor source is injected: register-level controller and ADC drivers are
// the integrator's concern.
func Run(configPath, socketPath string, src sensor.Source) error {
	router := setupRoutes()

	var err error
	conf, err = config.NewFile(configPath)
	if err != nil {
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	if f, ok := conf.(*config.File); ok {
		logrus.WithFields(f.LogrusFields()).Infof("config loaded")
	}

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			if err := conf.Load(); err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			logrus.Infof("config reloaded")
		}
	}()

	store := battery.NewFileStore(conf.StatePath())
	est, err = battery.NewEstimator(store, conf.CapacityAh(), conf.CellCount())
	if err != nil {
		logrus.Fatalf("invalid battery configuration: %v", err)
	}

	agg := metrics.NewAggregator(metrics.PolicyTable(conf.MostRecentMetrics(), conf.MostCommonMetrics()))

	pipe = uploader.New(
		conf.APIEndpoint(),
		envOr("SOLARCOLLECT_API_USERNAME", conf.APIUsername()),
		envOr("SOLARCOLLECT_API_PASSWORD", conf.APIPassword()),
		conf.SpillPath(),
	)
	pipe.Start()

	var live collector.LivePublisher
	var pub *mqttpub.Publisher
	if broker := conf.MQTTBroker(); broker != "" {
		pub, err = mqttpub.Connect(broker, conf.MQTTUsername(), conf.MQTTPassword(), conf.MQTTTopicPrefix())
		if err != nil {
			// Live mirroring is best-effort; the collector runs without it.
			logrus.Errorf("failed to connect MQTT publisher: %v", err)
		} else {
			live = pub
		}
	}

	coll = collector.New(collector.Config{
		CollectionInterval:  conf.CollectionInterval(),
		DayUploadInterval:   conf.DayUploadInterval(),
		NightUploadInterval: conf.NightUploadInterval(),
	}, src, est, agg, pipe, live)

	ctx, cancel := context.WithCancel(context.Background())
	collDone := make(chan struct{})
	go func() {
		coll.Run(ctx)
		close(collDone)
	}()

	// Remove a stale socket from a previous run before listening.
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("failed to remove stale socket %s: %v", socketPath, err)
	}

	srv := &http.Server{
		Handler: router,
	}

	l, err := net.Listen("unix", socketPath)
	if err != nil {
		cancel()
		logrus.Fatal(err)
	}

	if conf.AllowNonRootAccess() {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", socketPath)
		if err := os.Chmod(socketPath, 0777); err != nil {
			cancel()
			logrus.Fatal(err)
		}
	}

	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	logrus.Info("stopping collection loop")
	cancel()
	<-collDone

	logrus.Info("draining upload queue")
	pipe.Stop()

	if pub != nil {
		pub.Disconnect()
	}

	logrus.Info("shutting down http server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	shutdownCancel()

	logrus.Info("exiting")
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
