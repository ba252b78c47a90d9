package database

// Picture is a stored image together with its metadata. Rows are never updated after insert.
type Picture struct {
	ID        int64  `db:"id"`
	Animal    string `db:"animal"`
	Mime      string `db:"mime"`
	Data      []byte `db:"data"`
	SourceURL string `db:"source_url"`
	CreatedAt string `db:"created_at"` // ISO-8601 UTC, recorded at fetch time
}

// PictureMeta is the projection of a Picture without its binary payload.
type PictureMeta struct {
	ID        int64  `db:"id"`
	Animal    string `db:"animal"`
	Mime      string `db:"mime"`
	SourceURL string `db:"source_url"`
	CreatedAt string `db:"created_at"`
}

// PictureStats holds the number of stored pictures per animal. All keys are always present.
type PictureStats struct {
	Cat   int64 `json:"cat"`
	Dog   int64 `json:"dog"`
	Bear  int64 `json:"bear"`
	Total int64 `json:"total"`
}
