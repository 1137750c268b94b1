package entity

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/oksasatya/users-service/internal/domain/apperror"
	"github.com/oksasatya/users-service/pkg/helpers"
)

// Tier is the membership level of a user. The only transition is
// TierStandard -> TierPremium.
type Tier int

const (
	TierStandard Tier = iota
	TierPremium
)

func (t Tier) String() string {
	if t == TierPremium {
		return "premium"
	}
	return "standard"
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// UserDetails is the record shared by every tier.
// Password always holds the argon2 hash and is never serialized.
type UserDetails struct {
	EmailAddress string `json:"emailAddress"`
	Name         string `json:"name"`
	Age          *int   `json:"age"`
	Password     string `json:"-"`
}

// User is the aggregate root for the user domain.
//
// Build it with NewUser for caller input or UserFromStorage for trusted
// persistence reads; the zero value is not a valid user.
type User struct {
	details UserDetails
	tier    Tier
}

// NewUser validates the email, password and name, then hashes the password.
// Nothing is returned when any check fails.
func NewUser(email, name, password string) (*User, error) {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperror.Validation("Name must not be empty")
	}

	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, apperror.Application("Failed to hash password")
	}

	return &User{
		details: UserDetails{
			EmailAddress: email,
			Name:         name,
			Password:     hash,
		},
		tier: TierStandard,
	}, nil
}

// UserFromStorage rebuilds a user from an already hashed password. It skips
// validation and must only be fed data read back from a repository.
func UserFromStorage(email, name, hashedPassword string) *User {
	return &User{
		details: UserDetails{
			EmailAddress: email,
			Name:         name,
			Password:     hashedPassword,
		},
		tier: TierStandard,
	}
}

// NormalizeEmail trims and lowercases an address so lookups and storage agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Details returns a copy of the shared record.
func (u *User) Details() UserDetails {
	d := u.details
	if u.details.Age != nil {
		age := *u.details.Age
		d.Age = &age
	}
	return d
}

func (u *User) EmailAddress() string { return u.details.EmailAddress }
func (u *User) Name() string         { return u.details.Name }
func (u *User) Password() string     { return u.details.Password }
func (u *User) Tier() Tier           { return u.tier }
func (u *User) IsPremium() bool      { return u.tier == TierPremium }

// Age reports the age and whether it has been set.
func (u *User) Age() (int, bool) {
	if u.details.Age == nil {
		return 0, false
	}
	return *u.details.Age, true
}

// UpdateName replaces the display name.
func (u *User) UpdateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperror.Validation("Name must not be empty")
	}
	u.details.Name = name
	return nil
}

// UpdateAge sets the age.
func (u *User) UpdateAge(age int) {
	u.details.Age = &age
}

// UpgradeToPremium returns the premium version of u. Upgrading a premium user
// yields an equivalent premium user.
func (u *User) UpgradeToPremium() *User {
	return &User{details: u.Details(), tier: TierPremium}
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	return &User{details: u.Details(), tier: u.tier}
}

// SameIdentity reports whether both users share the same email address.
// Tier and other fields are ignored.
func (u *User) SameIdentity(other *User) bool {
	if u == nil || other == nil {
		return false
	}
	return u.details.EmailAddress == other.details.EmailAddress
}

// VerifyPassword checks candidate against the stored hash in constant time.
func (u *User) VerifyPassword(candidate string) error {
	err := helpers.CompareHashAndPassword(u.details.Password, candidate)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, helpers.ErrMismatchedHashAndPassword):
		return apperror.ErrIncorrectPassword
	default:
		return apperror.Application("Failed to parse password hash")
	}
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return apperror.Validation("Invalid email address")
	}
	return nil
}

// validatePassword applies the strength rules in order and stops at the
// first failure. Length is counted in bytes of the UTF-8 encoding.
func validatePassword(password string) error {
	if len(password) < 8 {
		return apperror.Validation("Password must be at least 8 characters long")
	}
	if !strings.ContainsFunc(password, unicode.IsUpper) {
		return apperror.Validation("Password must contain at least one uppercase letter")
	}
	if !strings.ContainsFunc(password, unicode.IsLower) {
		return apperror.Validation("Password must contain at least one lowercase letter")
	}
	if !strings.ContainsFunc(password, func(r rune) bool { return r >= '0' && r <= '9' }) {
		return apperror.Validation("Password must contain at least one digit")
	}
	return nil
}
