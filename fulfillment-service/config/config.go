package config

import sharedconfig "github.com/draftea/order-flow/shared/config"

const (
	ServiceName = "fulfillment-service"
	DefaultPort = "8082"
)

// ReadConfig loads the fulfillment and failure stage configuration
func ReadConfig() (*sharedconfig.Config, error) {
	return sharedconfig.ReadConfig(ServiceName, DefaultPort)
}
