package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig_Defaults(t *testing.T) {
	t.Setenv("ORDERFLOW_CONFIG_DIR", t.TempDir())

	cfg, err := ReadConfig("payments-service", "8081")
	require.NoError(t, err)

	assert.Equal(t, "payments-service", cfg.ServiceName)
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, BusDriverRedis, cfg.Bus.Driver)
	assert.Equal(t, "localhost:6379", cfg.Bus.Redis.Addr)
	assert.Equal(t, "payments-service", cfg.Bus.Kafka.ConsumerGroup)
	assert.Equal(t, SQS{Readers: 1, Cleaners: 2, WaitTimeSeconds: 15, VisibilityTimeout: 30}, cfg.Bus.AWS.SQS)
	assert.Equal(t, FlowStoreNone, cfg.FlowStore.Driver)
	assert.Equal(t, 0.9, cfg.Stages.PaymentSuccessRate)
	assert.Equal(t, 100*time.Millisecond, cfg.Stages.IntakeDelay)
	assert.Equal(t, 200*time.Millisecond, cfg.Stages.PaymentDelay)
	assert.Equal(t, 150*time.Millisecond, cfg.Stages.FulfillmentDelay)
	assert.Equal(t, 50*time.Millisecond, cfg.Stages.FailureDelay)
}

func TestReadConfig_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	file := `{
		"bus": {"driver": "nats", "nats": {"url": "nats://bus:4222"}},
		"stages": {"payment_delay": "5ms", "payment_success_rate": 0.5}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "staging.json"), []byte(file), 0o600))

	t.Setenv("ORDERFLOW_CONFIG_DIR", dir)
	t.Setenv("ENVIRONMENT", "staging")
	t.Setenv("ORDERFLOW_PORT", "9000")
	t.Setenv("ORDERFLOW_STAGES_FAILURE_DELAY", "1s")
	t.Setenv("ORDERFLOW_BUS_AWS_SQS_READERS", "4")

	cfg, err := ReadConfig("fulfillment-service", "8082")
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, BusDriverNATS, cfg.Bus.Driver)
	assert.Equal(t, "nats://bus:4222", cfg.Bus.NATS.URL)
	assert.Equal(t, 5*time.Millisecond, cfg.Stages.PaymentDelay)
	assert.Equal(t, time.Second, cfg.Stages.FailureDelay)
	assert.Equal(t, 0.5, cfg.Stages.PaymentSuccessRate)
	assert.Equal(t, int32(4), cfg.Bus.AWS.SQS.Readers)
}

func TestReadConfig_RejectsInvalidValues(t *testing.T) {
	t.Setenv("ORDERFLOW_CONFIG_DIR", t.TempDir())
	t.Setenv("ORDERFLOW_BUS_DRIVER", "carrier-pigeon")

	_, err := ReadConfig("orders-service", "8080")
	assert.ErrorContains(t, err, "unknown bus driver")
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Bus:       Bus{Driver: BusDriverMemory},
		FlowStore: FlowStore{Driver: FlowStoreMemory},
		Stages:    Stages{PaymentSuccessRate: 1},
	}
	assert.NoError(t, valid.Validate())

	rate := valid
	rate.Stages.PaymentSuccessRate = 1.5
	assert.ErrorContains(t, rate.Validate(), "payment success rate")

	delay := valid
	delay.Stages.PaymentDelay = -time.Second
	assert.ErrorContains(t, delay.Validate(), "payment_delay")

	store := valid
	store.FlowStore.Driver = "mysql"
	assert.ErrorContains(t, store.Validate(), "flow store driver")
}

func TestConfig_GetDatabaseURL(t *testing.T) {
	cfg := Config{FlowStore: FlowStore{Database: Database{
		Host: "db", Port: 5432, User: "u", Password: "p", Database: "flows", SSLMode: "disable",
	}}}
	assert.Equal(t, "postgres://u:p@db:5432/flows?sslmode=disable", cfg.GetDatabaseURL())

	cfg.FlowStore.Database.URL = "postgres://override"
	assert.Equal(t, "postgres://override", cfg.GetDatabaseURL())
}
