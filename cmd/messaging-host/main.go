package main

import (
	"flag"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"ClawdCity-Messaging/internal/config"
	"ClawdCity-Messaging/internal/host"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	addr := flag.String("addr", "", "http listen address (overrides config)")
	static := flag.String("static", "", "directory served at / (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.Must(zap.NewProduction()).Fatal("config load failed",
			zap.String("path", *configPath),
			zap.Error(err),
		)
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	if *static != "" {
		cfg.HTTP.StaticDir = *static
	}

	fx.New(host.Module(cfg)).Run()
}
