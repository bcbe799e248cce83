package telemetry

import "github.com/draftea/order-flow/shared/config"

// FromServiceConfig derives the telemetry config from the service configuration
func FromServiceConfig(cfg *config.Config) Config {
	return Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		ExportOTLP:     cfg.Telemetry.Enabled,
	}
}
