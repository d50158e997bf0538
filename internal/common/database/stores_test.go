package database

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospitality-commands/internal/common/config"
)

func TestOpen_NothingEnabled(t *testing.T) {
	s, err := Open(config.DatabaseConfig{}, config.DispatchConfig{})
	require.NoError(t, err)
	assert.False(t, s.Enabled())
	assert.Empty(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}

func TestOpen_RedisAndElasticsearch(t *testing.T) {
	mr := miniredis.RunT(t)

	es := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":{"number":"8.11.0"}}`))
	}))
	defer es.Close()

	s, err := Open(config.DatabaseConfig{
		Redis:         config.RedisConfig{Address: mr.Addr()},
		Elasticsearch: config.ElasticsearchConfig{Addresses: []string{es.URL}},
	}, config.DispatchConfig{Redis: true, Elasticsearch: true})
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, s.Enabled())
	results := s.Ping(context.Background())
	assert.NoError(t, results["redis"])
	assert.NoError(t, results["elasticsearch"])
	_, hasPostgres := results["postgres"]
	assert.False(t, hasPostgres)
}

func TestRedisClient_PingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedis(config.RedisConfig{Address: mr.Addr()})
	mr.Close()

	err := c.Ping(context.Background())
	assert.Error(t, err)
	assert.NoError(t, c.Close())
}
