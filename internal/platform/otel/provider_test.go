package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_Noop(t *testing.T) {
	cases := map[string]Options{
		"disabled":       {ServiceName: "fleet-ledger", Enabled: false, Endpoint: "http://localhost:4318"},
		"empty endpoint": {ServiceName: "fleet-ledger", Enabled: true},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			shutdown, err := Setup(context.Background(), opts)
			require.NoError(t, err)
			require.NotNil(t, shutdown)
			assert.NoError(t, shutdown(context.Background()))
		})
	}
}

func TestEnvironment(t *testing.T) {
	assert.Equal(t, "production", environment(true))
	assert.Equal(t, "development", environment(false))
}
