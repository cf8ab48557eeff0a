package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/lzyats/cloud-message-go/pkg/cloudmsg"
	"github.com/lzyats/cloud-message-go/pkg/metrics"
	"github.com/lzyats/cloud-message-go/pkg/runner"
)

var (
	// Version is injected via -ldflags "-X main.Version=..."
	Version = "dev"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", os.Getenv("CLOUD_MESSAGE_CONFIG"), "config yml path")
	flag.Parse()

	log, _ := zap.NewProduction()
	defer log.Sync()

	if cfgPath == "" {
		log.Fatal("missing -config or CLOUD_MESSAGE_CONFIG")
	}

	b, err := os.ReadFile(cfgPath)
	if err != nil {
		log.Fatal("read config failed", zap.Error(err))
	}
	var st cloudmsg.Settings
	if err := yaml.Unmarshal(b, &st); err != nil {
		log.Fatal("parse config failed", zap.Error(err))
	}
	st = st.WithDefaults()

	log.Info("cloud-message worker starting",
		zap.String("version", Version),
		zap.String("gcm_url", st.GCM.PostURL),
		zap.String("fcm_url", st.FCM.PostURL))

	metrics.Register()
	if st.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{
			Addr:              st.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 2 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("metrics server error", zap.Error(err))
			}
		}()
	}

	w, err := runner.NewWorker(st, log)
	if err != nil {
		log.Fatal("worker init failed", zap.Error(err))
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := w.Run(ctx); err != nil {
		log.Info("worker stopped", zap.Error(err))
	}
}
