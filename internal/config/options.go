// internal/config/options.go

package config

import (
	"fmt"

	"github.com/orgoj/mongolog/handler"
	"github.com/orgoj/mongolog/record"
	"github.com/orgoj/mongolog/store"
)

// AppLogLevel returns the level of the internal application logger.
func (c *Config) AppLogLevel() (record.Level, error) {
	return parseLevel(c.AppLog.Level)
}

// StoreOptions returns the connection settings of the mongo section.
// DriverLog is left to the caller, which owns the application logger.
func (c *Config) StoreOptions() (store.Options, error) {
	timeout, err := ParseDuration(c.Mongo.ConnectTimeout)
	if err != nil {
		return store.Options{}, fmt.Errorf("invalid mongo.connect_timeout: %w", err)
	}
	return store.Options{
		Host:           c.Mongo.Host,
		Port:           c.Mongo.Port,
		Database:       c.Mongo.Database,
		Collection:     c.Mongo.Collection,
		ConnectTimeout: timeout,
	}, nil
}

// HandlerOptions returns the handler settings. Reporter, Fallback and Registerer
// are left to the caller.
func (c *Config) HandlerOptions() (handler.Options, error) {
	level, err := parseLevel(c.Handler.Level)
	if err != nil {
		return handler.Options{}, fmt.Errorf("invalid handler.level: %w", err)
	}
	writeTimeout, err := ParseTimeout(c.Mongo.WriteTimeout)
	if err != nil {
		return handler.Options{}, fmt.Errorf("invalid mongo.write_timeout: %w", err)
	}
	return handler.Options{
		Level:        level,
		LoggerName:   c.Handler.LoggerName,
		Template:     c.Handler.Template,
		Filters:      c.Handler.Filters,
		WriteTimeout: writeTimeout,
	}, nil
}
