package main

import (
	"flag"

	"maharera-api/internal/agents"
	"maharera-api/internal/config"
	"maharera-api/internal/maharera"
	"maharera-api/internal/server"
	"maharera-api/internal/telemetry"
	"maharera-api/lib/serviceutil"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", "config.json5", "Path to the config file.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	cfg, err := config.Load(*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	InitTelemetry(ctx, *verbose, cfg.Telemetry)

	tel := telemetry.SlogAPI{}
	opts, err := cfg.RegistryOptions(tel)
	if err != nil {
		serviceutil.Fatal("init registry", err)
	}
	registry, err := maharera.NewRegistry(opts)
	if err != nil {
		serviceutil.Fatal("init registry", err)
	}
	aggregator := agents.NewAggregator(registry, cfg.AggregatorOptions(tel)...)

	srv := server.NewServer(aggregator, registry, tel)

	err = serviceutil.StartHttpServer(ctx, cfg.Port, srv.Handler())
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}
}
