package postgres

import (
	"context"
	"testing"

	"github.com/leapstack-labs/querytables/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   adapter.Config
		expected string
	}{
		{
			name: "basic connection",
			config: adapter.Config{
				Host:     "localhost",
				Port:     5432,
				Database: "testdb",
				Username: "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=testdb application_name=querytables sslmode=disable user=user password=pass",
		},
		{
			name: "with custom sslmode",
			config: adapter.Config{
				Host:     "prod.example.com",
				Port:     5432,
				Database: "proddb",
				Username: "admin",
				Options:  map[string]string{"sslmode": "require"},
			},
			expected: "host=prod.example.com port=5432 dbname=proddb application_name=querytables sslmode=require user=admin",
		},
		{
			name: "defaults",
			config: adapter.Config{
				Database: "mydb",
			},
			expected: "host=localhost port=5432 dbname=mydb application_name=querytables sslmode=disable",
		},
		{
			name: "extra options sorted",
			config: adapter.Config{
				Host:     "db.example.com",
				Port:     5433,
				Database: "tiles",
				Options:  map[string]string{"connect_timeout": "5", "application_name": "tiler"},
			},
			expected: "host=db.example.com port=5433 dbname=tiles application_name=tiler connect_timeout=5 sslmode=disable",
		},
		{
			name: "quoted values",
			config: adapter.Config{
				Database: "my db",
				Password: "it's",
			},
			expected: `host=localhost port=5432 dbname='my db' application_name=querytables sslmode=disable password='it\'s'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.config))
		})
	}
}

func TestQuoteDSNValue(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain", "plain"},
		{"", "''"},
		{"with space", "'with space'"},
		{`back\slash`, `'back\\slash'`},
		{"quo'te", `'quo\'te'`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, quoteDSNValue(tt.input))
		})
	}
}

func TestNew(t *testing.T) {
	adp := New(nil)

	assert.NotNil(t, adp, "New() should return non-nil adapter")
	assert.Nil(t, adp.DB, "DB should be nil before Connect")
	assert.False(t, adp.IsConnected(), "should not be connected initially")
	assert.Equal(t, "postgres", adp.DialectName())
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	_, err := adp.QueryContext(ctx, "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not established")

	err = adp.Ping(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not established")
}

func TestAdapter_Registry(t *testing.T) {
	assert.True(t, adapter.IsRegistered("postgres"), "postgres adapter should be registered")

	adp, err := adapter.NewAdapter(adapter.Config{Type: "postgres"}, nil)
	require.NoError(t, err)

	pg, ok := adp.(*Adapter)
	require.True(t, ok, "factory should return *Adapter")
	assert.Equal(t, "postgres", pg.DialectName())

	for _, alias := range []string{"postgresql", "PG"} {
		c, ok := adapter.Canonical(alias)
		assert.True(t, ok, alias)
		assert.Equal(t, "postgres", c)
	}
}

func TestAdapter_Close(t *testing.T) {
	// Close should not error even without connection
	adp := New(nil)
	assert.NoError(t, adp.Close())
}
