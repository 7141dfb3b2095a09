// Package data builds the shared infrastructure clients and runs schema
// migration. Repositories live with their own modules; this package only
// owns construction and teardown order.
package data

import (
	"github.com/mina-sebastian/free-space-sub000/internal/conf"
	filedata "github.com/mina-sebastian/free-space-sub000/internal/file/data"
	folderdata "github.com/mina-sebastian/free-space-sub000/internal/folder/data"
	hashdata "github.com/mina-sebastian/free-space-sub000/internal/hash/data"
	linkdata "github.com/mina-sebastian/free-space-sub000/internal/link/data"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/database"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/minio"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/redis"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/tusd"
	userdata "github.com/mina-sebastian/free-space-sub000/internal/user/data"
	"go.uber.org/zap"
)

// Data bundles the infrastructure clients
type Data struct {
	DB      *database.DB
	Redis   *redis.Client
	Storage *minio.Client
	Blobs   *tusd.Client
}

// NewData constructs every client and migrates the schema. The returned
// cleanup closes connections in reverse construction order.
func NewData(config *conf.Config, log *logger.Logger) (*Data, func(), error) {
	db, err := database.New(&config.Database, log)
	if err != nil {
		return nil, nil, err
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, nil, err
	}

	rdb, err := redis.New(&config.Redis, log)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	storage, err := minio.New(&config.MinIO, log)
	if err != nil {
		rdb.Close()
		db.Close()
		return nil, nil, err
	}

	blobs := tusd.New(&config.Tusd, log)

	cleanup := func() {
		if err := rdb.Close(); err != nil {
			log.Warn("failed to close redis client", zap.Error(err))
		}
		if err := db.Close(); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}

	return &Data{
		DB:      db,
		Redis:   rdb,
		Storage: storage,
		Blobs:   blobs,
	}, cleanup, nil
}

// Migrate creates or updates every table the application owns
func Migrate(db *database.DB) error {
	return db.AutoMigrate(
		&userdata.UserPO{},
		&folderdata.FolderPO{},
		&hashdata.FileHashPO{},
		&filedata.FilePO{},
		&filedata.TagPO{},
		&filedata.FileTagPO{},
		&filedata.FileHashTagPO{},
		&linkdata.LinkPO{},
	)
}
