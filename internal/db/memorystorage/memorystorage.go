// Package memorystorage reuses the jsondb cache without the file: everything
// lives in memory and is lost on shutdown. The backend of last resort.
package memorystorage

import (
	"context"

	"github.com/patric-chuzhbe/dietapi/internal/db/jsondb"
)

type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.NewCache(),
		},
	}, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
