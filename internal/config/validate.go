// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/vmunix/resonarr/internal/library"
	"github.com/vmunix/resonarr/internal/naming"
	"github.com/vmunix/resonarr/internal/quality"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	// Server validation
	if c.Server.Port != 0 && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	// Catalog rate limit validation
	if c.Catalog.RequestsPerSecond <= 0 {
		errs = append(errs, fmt.Sprintf("catalog.requests_per_second: must be positive, got %g", c.Catalog.RequestsPerSecond))
	}
	if c.Catalog.Burst < 1 {
		errs = append(errs, fmt.Sprintf("catalog.burst: must be at least 1, got %d", c.Catalog.Burst))
	}
	if c.Catalog.MaxWaitSeconds < 0 {
		errs = append(errs, fmt.Sprintf("catalog.max_wait_seconds: must not be negative, got %d", c.Catalog.MaxWaitSeconds))
	}

	// Downloads validation
	if c.Downloads.Root == "" {
		errs = append(errs, "downloads.root: required")
	}
	if c.Downloads.Workers < 1 || c.Downloads.Workers > 16 {
		errs = append(errs, fmt.Sprintf("downloads.workers: must be between 1 and 16, got %d", c.Downloads.Workers))
	}
	if _, err := quality.ParseOrder(c.Downloads.QualityOrder); err != nil {
		errs = append(errs, fmt.Sprintf("downloads.quality_order: %v", err))
	}
	for _, rt := range c.Downloads.RecordTypes {
		if _, err := library.ParseRecordType(rt); err != nil {
			errs = append(errs, fmt.Sprintf("downloads.record_types: %v", err))
		}
	}
	if c.Downloads.RetryAttempts < 1 || c.Downloads.RetryAttempts > 10 {
		errs = append(errs, fmt.Sprintf("downloads.retry_attempts: must be between 1 and 10, got %d", c.Downloads.RetryAttempts))
	}
	if c.Downloads.LeaseMinutes < 1 {
		errs = append(errs, fmt.Sprintf("downloads.lease_minutes: must be at least 1, got %d", c.Downloads.LeaseMinutes))
	}

	// Both templates must parse before any download is attempted.
	if _, err := naming.Parse(c.Templates.Album); err != nil {
		errs = append(errs, fmt.Sprintf("templates.album: %v", err))
	}
	if _, err := naming.Parse(c.Templates.Playlist); err != nil {
		errs = append(errs, fmt.Sprintf("templates.playlist: %v", err))
	}

	// Monitor validation
	if c.Monitor.IntervalHours < 1 {
		errs = append(errs, fmt.Sprintf("monitor.interval_hours: must be at least 1, got %d", c.Monitor.IntervalHours))
	}

	return errs
}
