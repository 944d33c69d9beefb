/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"github.com/acronis/go-apiconsole/config"
	"github.com/acronis/go-apiconsole/httpclient"
	"github.com/acronis/go-apiconsole/httpserver"
	"github.com/acronis/go-apiconsole/log"
	"github.com/acronis/go-apiconsole/profserver"
	"github.com/acronis/go-apiconsole/queue"
	"github.com/acronis/go-apiconsole/relay"
)

const envVarsPrefix = "APICONSOLE"

const (
	relayKeyPrefix      = "relay"
	relayDefaultAddress = ":3000"
)

// AppConfig is the configuration of the whole application.
// Every field is loaded under its own key prefix.
type AppConfig struct {
	Log         *log.Config
	Queue       *queue.Config
	Client      *httpclient.Config
	Server      *httpserver.Config
	RelayServer *httpserver.Config
	Relay       *relay.Config
	ProfServer  *profserver.Config
}

var _ config.Config = (*AppConfig)(nil)

// NewAppConfig creates a new AppConfig.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Log:    log.NewConfig(),
		Queue:  queue.NewConfig(),
		Client: httpclient.NewConfig(),
		Server: httpserver.NewConfig(),
		RelayServer: httpserver.NewConfig(
			httpserver.WithKeyPrefix(relayKeyPrefix), httpserver.WithDefaultAddress(relayDefaultAddress)),
		Relay:      relay.NewConfig(relay.WithKeyPrefix(relayKeyPrefix)),
		ProfServer: profserver.NewConfig(),
	}
}

// SetProviderDefaults sets default values of all application components.
func (c *AppConfig) SetProviderDefaults(dp config.DataProvider) {
	config.CallSetProviderDefaultsForFields(c, dp)
}

// Set sets values of all application components.
func (c *AppConfig) Set(dp config.DataProvider) error {
	return config.CallSetForFields(c, dp)
}
