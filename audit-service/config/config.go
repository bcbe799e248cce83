package config

import sharedconfig "github.com/draftea/order-flow/shared/config"

const (
	ServiceName = "audit-service"
	DefaultPort = "8083"
)

// ReadConfig loads the auditor configuration
func ReadConfig() (*sharedconfig.Config, error) {
	return sharedconfig.ReadConfig(ServiceName, DefaultPort)
}
