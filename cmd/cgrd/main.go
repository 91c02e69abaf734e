// cgrd is the CGR engine daemon: it loads an engine configuration,
// initializes the orchestrator, optionally starts a contact-plan
// distribution watcher, and serves the engine over gRPC until signaled
// to stop.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cgrengine/internal/adapter/grpcadapter"
	"cgrengine/internal/adapter/route53plan"
	"cgrengine/internal/config"
	"cgrengine/internal/domain"
	"cgrengine/internal/engine"
	"cgrengine/internal/logger"
	zapfactory "cgrengine/internal/logger/zap"
	"cgrengine/internal/telemetry"
)

var defaultConfigPath = "config/cgrd/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %q: %v", *configPath, err)
	}
	cfg.ApplyEnvOverrides()
	policy, err := cfg.Validate()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var lgr logger.Logger
	if cfg.Logger.Active {
		zapLog, err := zapfactory.New(cfg.Logger)
		if err != nil {
			log.Fatalf("failed to initialize logger: %v", err)
		}
		defer func() { _ = zapLog.Sync() }()
		lgr = zapfactory.NewZapAdapter(zapLog)
	} else {
		lgr = &logger.NopLogger{}
	}
	cfg.LogConfig(lgr)

	shutdownTracer := telemetry.InitTracer(cfg.Telemetry, "cgrd", cfg.LocalNode)
	defer func() { _ = shutdownTracer(context.Background()) }()

	eng, err := engine.Initialize(cfg.LocalNode, domain.Time(time.Now().Unix()),
		engine.WithLogger(lgr.Named("engine")),
		engine.WithPolicy(policy),
	)
	if err != nil {
		lgr.Error("failed to initialize engine", logger.F("err", err))
		os.Exit(1)
	}
	lgr.Info("engine initialized", logger.F("localNode", cfg.LocalNode))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.ContactPlanSource.Mode == "route53" {
		w, err := route53plan.New(ctx,
			cfg.ContactPlanSource.Route53.HostedZoneID,
			cfg.ContactPlanSource.Route53.DomainSuffix,
			cfg.ContactPlanSource.Route53.PollInterval,
			eng,
			lgr.Named("route53plan"),
		)
		if err != nil {
			lgr.Error("failed to initialize route53 contact-plan watcher", logger.F("err", err))
			os.Exit(1)
		}
		go w.Run(ctx)
		lgr.Info("contact-plan watcher started", logger.F("hostedZoneId", cfg.ContactPlanSource.Route53.HostedZoneID))
	}

	var srv *grpcadapter.Server
	var serveErr chan error
	if cfg.Adapter.GRPC.Enabled {
		lis, err := net.Listen("tcp", cfg.Adapter.GRPC.Bind)
		if err != nil {
			lgr.Error("failed to bind gRPC listener", logger.F("err", err))
			os.Exit(1)
		}
		srv, err = grpcadapter.New(lis, eng, nil, nil, grpcadapter.WithLogger(lgr.Named("grpcadapter")))
		if err != nil {
			lgr.Error("failed to initialize gRPC server", logger.F("err", err))
			os.Exit(1)
		}
		serveErr = make(chan error, 1)
		go func() { serveErr <- srv.Start() }()
		lgr.Info("gRPC server started", logger.F("bind", cfg.Adapter.GRPC.Bind))
	}

	select {
	case <-ctx.Done():
		lgr.Info("shutdown signal received, stopping gracefully...")
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			done := make(chan struct{})
			go func() {
				srv.GracefulStop()
				close(done)
			}()
			select {
			case <-done:
				lgr.Info("gRPC server stopped gracefully")
			case <-shutdownCtx.Done():
				lgr.Warn("graceful stop timed out, forcing shutdown")
				srv.Stop()
			}
			cancel()
		}
		eng.Destroy(domain.Time(time.Now().Unix()))
	case err := <-serveErr:
		lgr.Error("gRPC server terminated unexpectedly", logger.F("err", err))
		eng.Destroy(domain.Time(time.Now().Unix()))
		os.Exit(1)
	}
}
