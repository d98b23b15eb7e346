package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/bovw"
	"github.com/hupe1980/bovw/blobstore"
	bminio "github.com/hupe1980/bovw/blobstore/minio"
	bs3 "github.com/hupe1980/bovw/blobstore/s3"
	"github.com/hupe1980/bovw/config"
)

// commonFlags are shared by every command.
type commonFlags struct {
	configPath  string
	store       string
	bucket      string
	prefix      string
	endpoint    string
	insecure    bool
	metricsAddr string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "path to the JSON configuration (defaults when empty)")
	fs.StringVar(&c.store, "store", "local", "artifact store: local, s3 or minio")
	fs.StringVar(&c.bucket, "bucket", "", "bucket for the s3 and minio stores")
	fs.StringVar(&c.prefix, "prefix", "", "key prefix for the s3 and minio stores")
	fs.StringVar(&c.endpoint, "endpoint", "", "custom endpoint for the s3 and minio stores")
	fs.BoolVar(&c.insecure, "insecure", false, "use plain HTTP for the minio store")
	fs.StringVar(&c.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
}

func (c *commonFlags) loadConfig() (config.Config, error) {
	if c.configPath == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(c.configPath)
}

func newLogger(cfg config.Config) *bovw.Logger {
	level := bovw.ParseLevel(cfg.LogLevel)
	if strings.EqualFold(cfg.LogFormat, "json") {
		return bovw.NewJSONLogger(level)
	}
	return bovw.NewTextLogger(level)
}

func (c *commonFlags) openStore(ctx context.Context, cfg config.Config) (blobstore.Store, error) {
	switch c.store {
	case "", "local":
		return blobstore.NewLocalStore(cfg.FeatDir), nil
	case "s3":
		if c.bucket == "" {
			return nil, fmt.Errorf("-bucket is required for the s3 store")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
			if c.endpoint != "" {
				o.BaseEndpoint = aws.String(c.endpoint)
				o.UsePathStyle = true
			}
		})
		return bs3.NewStore(client, c.bucket, c.prefix), nil
	case "minio":
		if c.bucket == "" || c.endpoint == "" {
			return nil, fmt.Errorf("-bucket and -endpoint are required for the minio store")
		}
		client, err := minio.New(c.endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), ""),
			Secure: !c.insecure,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return bminio.NewStore(client, c.bucket, c.prefix), nil
	default:
		return nil, fmt.Errorf("unknown store %q", c.store)
	}
}

// setup loads the configuration, opens the store and builds the pipeline.
// The returned cleanup stops the metrics server.
func (c *commonFlags) setup(ctx context.Context, opts ...bovw.Option) (*bovw.Pipeline, func(), error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg)

	store, err := c.openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	base := []bovw.Option{bovw.WithStore(store), bovw.WithLogger(logger)}
	if c.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		base = append(base, bovw.WithMetricsCollector(newPrometheusCollector(reg)))
		cleanup = serveMetrics(c.metricsAddr, reg, logger.Logger)
	}

	p, err := bovw.New(cfg, append(base, opts...)...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return p, cleanup, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server", slog.Any("error", err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
