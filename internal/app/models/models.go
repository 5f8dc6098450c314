package models

import "time"

// Roles stored in the users table.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// UserAuth is the identity record used for login and authorization checks.
// Password holds the bcrypt hash, never plain text.
type UserAuth struct {
	ID        int64
	Username  string
	Email     string
	Password  string
	Role      string
	CreatedAt time.Time
}

// UserProfile is the editable directory entry belonging to a user.
// Optional columns are pointers so a partial update can tell "absent"
// from "set to empty".
type UserProfile struct {
	UserID    int64      `json:"user_id"`
	FullName  string     `json:"full_name"`
	Address   string     `json:"address"`
	Phone     string     `json:"phone_number"`
	Hobbies   string     `json:"hobbies"`
	Birthday  *time.Time `json:"birthday,omitempty"`
	Gender    string     `json:"gender"`
	AvatarURL string     `json:"avatar_url"`
	JoinDate  *time.Time `json:"join_date,omitempty"`
}

// UserSummary is one row of the admin user listing.
type UserSummary struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileUpdate carries the sanitized output of profile validation.
// Only non-nil fields are written to the database.
type ProfileUpdate struct {
	UserID    int64
	FullName  *string
	Address   *string
	Phone     *string
	Hobbies   *string
	Birthday  *time.Time
	Gender    *string
	AvatarURL *string
}
