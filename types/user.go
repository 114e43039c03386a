package types

import "time"

// User represents an account in the system.
// It contains identity, status, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int64 `json:"id" db:"id"`

	// FirstName is the user's given name.
	FirstName string `json:"first" db:"first_name"`

	// LastName is the user's family name.
	LastName string `json:"last" db:"last_name"`

	// Phone is the user's contact phone number.
	Phone string `json:"phone" db:"phone"`

	// Username is the unique login name chosen by the user.
	// Uniqueness is case-insensitive.
	Username string `json:"username" db:"username"`

	// Email is the user's email address. Uniqueness is case-insensitive.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the argon2id digest of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// PasswordChangedAt records when the password was last set or changed.
	// Tokens issued before this instant are rejected by the auth gate.
	PasswordChangedAt time.Time `json:"passwordChangedAt" db:"password_changed_at"`

	// IsActive indicates whether the account may authenticate.
	IsActive bool `json:"isActive" db:"is_active"`

	// LastLoginAt is the timestamp of the most recent successful login.
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// DeletedAt marks the account as soft-deleted when non-nil.
	// Soft-deleted accounts are excluded from all reads.
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}
