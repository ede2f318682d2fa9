package users

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/jrsteele09/distritherm-admin/internal/utils"
)

// RoleType represents the back office role of a user
type RoleType string

const (
	RoleAdmin      RoleType = "ADMIN"      // Full access to the back office
	RoleCommercial RoleType = "COMMERCIAL" // Sales representative, owns quotes
	RoleClient     RoleType = "CLIENT"     // Customer account, creates quote requests
)

// Valid reports whether r is one of the known roles.
func (r RoleType) Valid() bool {
	switch r {
	case RoleAdmin, RoleCommercial, RoleClient:
		return true
	}
	return false
}

type User struct {
	ID              int64      `json:"id" yaml:"id"`
	Email           string     `json:"email" yaml:"email"`
	FirstName       string     `json:"firstName,omitempty" yaml:"firstName,omitempty"`
	LastName        string     `json:"lastName,omitempty" yaml:"lastName,omitempty"`
	Role            RoleType   `json:"role" yaml:"role"`
	IsEmailVerified bool       `json:"isEmailVerified" yaml:"isEmailVerified"`
	PhoneNumber     string     `json:"phoneNumber,omitempty" yaml:"phoneNumber,omitempty"`
	CompanyName     string     `json:"companyName,omitempty" yaml:"companyName,omitempty"`
	SiretNumber     string     `json:"siretNumber,omitempty" yaml:"siretNumber,omitempty"`
	Address         string     `json:"address,omitempty" yaml:"address,omitempty"`
	PostalCode      string     `json:"postalCode,omitempty" yaml:"postalCode,omitempty"`
	City            string     `json:"city,omitempty" yaml:"city,omitempty"`
	CreatedAt       *time.Time `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// Commercial is the sales representative profile attached to a user.
type Commercial struct {
	ID     int64 `json:"id" yaml:"id"`
	UserID int64 `json:"userId" yaml:"userId"`
	User   *User `json:"user,omitempty" yaml:"user,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

func (u *User) IsCommercial() bool {
	return u != nil && u.Role == RoleCommercial
}

// FullName returns "First Last", falling back to the email.
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return utils.FirstNonEmpty(strings.TrimSpace(u.FirstName+" "+u.LastName), u.Email)
}

// CanEdit reports whether u may modify the profile of the user with targetID.
// Admins may edit anyone, everyone else only themselves.
func (u *User) CanEdit(targetID int64) bool {
	if u == nil {
		return false
	}
	return u.IsAdmin() || u.ID == targetID
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}
