package database

import (
	"context"
	"errors"
	"fmt"

	"hospitality-commands/internal/common/config"
)

// Stores holds the clients of every dispatch sink turned on in config.
// Disabled stores stay nil.
type Stores struct {
	Postgres      *PostgresClient
	Redis         *RedisClient
	Elasticsearch *ElasticsearchClient
}

func Open(db config.DatabaseConfig, dispatch config.DispatchConfig) (*Stores, error) {
	s := &Stores{}

	if dispatch.Postgres {
		pg, err := NewPostgres(db.Postgres)
		if err != nil {
			return nil, err
		}
		s.Postgres = pg
	}

	if dispatch.Redis {
		s.Redis = NewRedis(db.Redis)
	}

	if dispatch.Elasticsearch {
		es, err := NewElasticsearch(db.Elasticsearch)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Elasticsearch = es
	}

	return s, nil
}

func (s *Stores) Enabled() bool {
	return s != nil && (s.Postgres != nil || s.Redis != nil || s.Elasticsearch != nil)
}

// Ping checks every open store and reports failures by store name.
func (s *Stores) Ping(ctx context.Context) map[string]error {
	results := map[string]error{}
	if s == nil {
		return results
	}
	if s.Postgres != nil {
		results["postgres"] = s.Postgres.Ping(ctx)
	}
	if s.Redis != nil {
		results["redis"] = s.Redis.Ping(ctx)
	}
	if s.Elasticsearch != nil {
		results["elasticsearch"] = s.Elasticsearch.Ping(ctx)
	}
	return results
}

func (s *Stores) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.Postgres != nil {
		if err := s.Postgres.Close(); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
