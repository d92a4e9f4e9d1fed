package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles. The very first user created in an empty store is assigned
// RoleAdmin; self-registrations start as RoleAnonymous until their email is
// verified, at which point they are promoted to RoleAuthenticated.
const (
	RoleAnonymous     = "ANONYMOUS"
	RoleAuthenticated = "AUTHENTICATED"
	RoleManager       = "MANAGER"
	RoleAdmin         = "ADMIN"
)

// ValidRole reports whether role is one of the known role values.
func ValidRole(role string) bool {
	switch role {
	case RoleAnonymous, RoleAuthenticated, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User represents an account in the directory. The unique indexes on email
// and nickname are the authoritative guard against duplicates; the service
// layer pre-checks only to return a friendlier error.
type User struct {
	ID                  string     `gorm:"primaryKey;size:36" json:"id"`
	Email               string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Nickname            string     `gorm:"uniqueIndex;size:30;not null" json:"nickname"`
	HashedPassword      string     `gorm:"size:255;not null" json:"-"`
	Role                string     `gorm:"size:20;default:ANONYMOUS" json:"role"`
	EmailVerified       bool       `gorm:"default:false" json:"email_verified"`
	VerificationToken   string     `gorm:"size:64" json:"-"`
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	IsLocked            bool       `gorm:"default:false" json:"is_locked"`
	IsProfessional      bool       `gorm:"default:false" json:"is_professional"`
	FirstName           string     `gorm:"size:100" json:"first_name,omitempty"`
	LastName            string     `gorm:"size:100" json:"last_name,omitempty"`
	Bio                 string     `gorm:"size:500" json:"bio,omitempty"`
	ProfilePictureURL   string     `gorm:"size:500" json:"profile_picture_url,omitempty"`
	LinkedinProfileURL  string     `gorm:"size:500" json:"linkedin_profile_url,omitempty"`
	GithubProfileURL    string     `gorm:"size:500" json:"github_profile_url,omitempty"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	CreatedAt           time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// BeforeCreate assigns a fresh UUID when none was set by the caller.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// AnonymizedNickname derives the stable scrubbed nickname for a user. Using
// the first 8 hex characters of the UUID keeps the result deterministic per
// user and within the nickname format, and makes Anonymize idempotent.
func (u *User) AnonymizedNickname() string {
	suffix := strings.ReplaceAll(u.ID, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return "Anonymous" + suffix
}

// Anonymize scrubs all personally identifying fields in place. It does not
// persist; callers save the mutated row.
func (u *User) Anonymize() {
	u.Nickname = u.AnonymizedNickname()
	u.Email = u.AnonymizedNickname() + "@anonymized.invalid"
	u.FirstName = ""
	u.LastName = ""
	u.Bio = ""
	u.ProfilePictureURL = ""
	u.LinkedinProfileURL = ""
	u.GithubProfileURL = ""
}
