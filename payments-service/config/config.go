package config

import sharedconfig "github.com/draftea/order-flow/shared/config"

const (
	ServiceName = "payments-service"
	DefaultPort = "8081"
)

// ReadConfig loads the payment stage configuration
func ReadConfig() (*sharedconfig.Config, error) {
	return sharedconfig.ReadConfig(ServiceName, DefaultPort)
}
