package config

import sharedconfig "github.com/draftea/order-flow/shared/config"

const (
	ServiceName = "orders-service"
	DefaultPort = "8080"
)

// ReadConfig loads the intake configuration
func ReadConfig() (*sharedconfig.Config, error) {
	return sharedconfig.ReadConfig(ServiceName, DefaultPort)
}
