package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerByEnv(t *testing.T) {
	dev := NewLogger("users", "development")
	assert.Equal(t, logrus.DebugLevel, dev.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, dev.Formatter)

	prod := NewLogger("users", "production")
	assert.Equal(t, logrus.InfoLevel, prod.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, prod.Formatter)
}

func TestObjectURL(t *testing.T) {
	assert.Equal(t, "gs://bucket/exports/users.ndjson", ObjectURL("bucket", "exports/users.ndjson"))
}

func TestRedisGetJSONReportsErrorsWhenUnreachable(t *testing.T) {
	rdb := NewRedisClient("127.0.0.1:1", "", 0)
	t.Cleanup(func() { _ = rdb.Close() })
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var dest map[string]string
	found, err := RedisGetJSON(ctx, rdb, "k", &dest)
	require.Error(t, err)
	assert.False(t, found)
}

func TestNewESClientAcceptsAddresses(t *testing.T) {
	client, err := NewESClient([]string{"http://127.0.0.1:9200"}, "elastic", "secret")
	require.NoError(t, err)
	assert.NotNil(t, client)
}
