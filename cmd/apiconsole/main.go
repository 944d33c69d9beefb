/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Command apiconsole runs the request queue of the API-testing console with its control API
// and, optionally, the forwarding relay and the profiling server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/acronis/go-apiconsole/config"
	"github.com/acronis/go-apiconsole/internal/appinfo"
	"github.com/acronis/go-apiconsole/log"
	"github.com/acronis/go-apiconsole/service"
)

func main() {
	if err := runApp(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runApp() error {
	configPath := flag.String("config", "", "path to the YAML configuration file (only env vars are used if empty)")
	flag.Parse()

	cfg := NewAppConfig()
	if err := loadConfig(*configPath, cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closeLogger := log.NewLogger(cfg.Log)
	defer closeLogger()

	logger.Info("starting apiconsole", log.String("version", appinfo.Version()))
	a, err := newApp(cfg, logger, appOpts{metricsNamespace: metricsNamespace})
	if err != nil {
		logger.Error("application initialization failed", log.Error(err))
		return err
	}
	return service.New(logger, a.unit).Start()
}

func loadConfig(path string, cfg *AppConfig) error {
	loader := config.NewDefaultLoader(envVarsPrefix)
	if path == "" {
		return loader.Load(cfg)
	}
	return loader.LoadFromFile(path, config.DataTypeYAML, cfg)
}
