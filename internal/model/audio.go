package model

import "time"

// AudioFile models a row in the `audio` table: metadata for one uploaded
// file.  Name is globally unique and the database constraint, not the
// filesystem, is the source of truth for uniqueness.  Path points at the
// file on local disk; the row and the file are created together on upload
// and the ON DELETE CASCADE foreign key removes rows when the owner is
// deleted.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – stored file name (unique), derived from the requested name
//              plus the original upload's extension.
//  Path      – absolute or storage-relative path of the file on disk.
//  UserID    – owner of the file (references users.id, cascade delete).
//  CreatedAt – timestamp of upload.
type AudioFile struct {
	ID        uint64    // audio.id
	Name      string    // audio.name
	Path      string    // audio.path
	UserID    uint64    // audio.user_id
	CreatedAt time.Time // audio.created_at
}
