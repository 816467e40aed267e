package model

import (
	"database/sql"
	"time"
)

// User represents an application user record as stored in the `users`
// table.  Accounts are created on the first successful Yandex OAuth
// callback for an unseen yandex_id; Username and PasswordHash stay NULL
// until the user explicitly sets local credentials, which is why they are
// nullable here.  Handlers define separate response types with JSON tags;
// this struct belongs to the repository layer.
//
// Fields:
//  ID           – primary key identifier of the user.
//  YandexID     – stable identifier issued by the OAuth provider (unique).
//  Email        – unique email address taken from the provider profile.
//  Username     – optional unique local login name (nullable).
//  PasswordHash – bcrypt hash of the local password (nullable).
//  FirstName    – given name from the provider profile.
//  LastName     – family name from the provider profile.
//  Sex          – sex/gender string as reported by the provider.
//  IsAdmin      – whether the account has the admin role.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64         // users.id
	YandexID     string         // users.yandex_id
	Email        string         // users.email
	Username     sql.NullString // users.username (nullable)
	PasswordHash sql.NullString // users.password_hash (nullable)
	FirstName    string         // users.first_name
	LastName     string         // users.last_name
	Sex          string         // users.sex
	IsAdmin      bool           // users.is_admin
	CreatedAt    time.Time      // users.created_at
	UpdatedAt    time.Time      // users.updated_at
}
