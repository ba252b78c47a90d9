package database

import (
	"context"
	"database/sql"
)

type DatabaseService interface {
	CreateDatabase() (*sql.DB, error)
	DoesDatabaseExist() bool
	Close() error

	// InsertPicture appends a row and returns the id assigned by the store.
	InsertPicture(ctx context.Context, picture *Picture) (int64, error)
	// DeleteAllPictures removes every row and returns how many rows existed before the delete.
	DeleteAllPictures(ctx context.Context) (int64, error)
	// GetPictureByID returns nil without error when no row matches.
	GetPictureByID(ctx context.Context, id int64) (*Picture, error)
	// GetLastPictureByAnimal returns the metadata of the highest id for the animal, or nil.
	GetLastPictureByAnimal(ctx context.Context, animal string) (*PictureMeta, error)
	CountPicturesByAnimal(ctx context.Context) (*PictureStats, error)
}
