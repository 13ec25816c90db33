package main

import (
	"context"
	"fmt"

	"github.com/nkiryanov/mondoauth/internal/db"
	"github.com/nkiryanov/mondoauth/internal/repository"
	"github.com/nkiryanov/mondoauth/internal/repository/file"
	"github.com/nkiryanov/mondoauth/internal/repository/memory"
	"github.com/nkiryanov/mondoauth/internal/repository/postgres"
	redisstore "github.com/nkiryanov/mondoauth/internal/repository/redis"
	"github.com/nkiryanov/mondoauth/internal/repository/sealed"
)

// openStore returns configured credential store and func to release its connections
func openStore(ctx context.Context, c *Config) (repository.CredentialStore, func(), error) {
	var store repository.CredentialStore
	closeFn := func() {}

	switch c.Store {
	case StoreMemory:
		store = memory.New()
	case StoreFile:
		store = file.New(c.StoreDSN)
	case StorePostgres:
		pool, err := db.ConnectAndMigrate(ctx, c.StoreDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("error while connecting to db. Err: %w", err)
		}
		store = postgres.NewCredentialRepo(pool, postgres.DefaultNamespace)
		closeFn = pool.Close
	case StoreRedis:
		client, err := redisstore.Connect(ctx, c.StoreDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
		}
		store = redisstore.New(client, redisstore.DefaultPrefix)
		closeFn = func() { _ = client.Close() }
	default:
		return nil, nil, fmt.Errorf("unknown store %q", c.Store)
	}

	if c.SecretKey == "" {
		return store, closeFn, nil
	}

	sealedStore, err := sealed.New(store, c.SecretKey)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("error while creating sealed store. Err: %w", err)
	}
	return sealedStore, closeFn, nil
}
