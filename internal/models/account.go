package models

import (
	"time"
)

// Role is the single source of truth for what an account may do.
type Role string

const (
	RoleResident Role = "resident"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleResident, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r grants access to the administrative views.
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}

// Account represents a person registered for the portal.
// Accounts are never hard-deleted, only deactivated.
type Account struct {
	DateOfBirth          *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	AnnouncementsSeenAt  *time.Time `db:"announcements_seen_at" json:"-"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
	Username             string     `db:"username" json:"username"`
	Email                string     `db:"email" json:"email"`
	PasswordHash         string     `db:"password_hash" json:"-"`
	FullName             string     `db:"full_name" json:"full_name"`
	ContactNumber        string     `db:"contact_number" json:"contact_number"`
	CivilStatus          string     `db:"civil_status" json:"civil_status,omitempty"`
	AddressLine          string     `db:"address_line" json:"address_line"`
	Barangay             string     `db:"barangay" json:"barangay"`
	City                 string     `db:"city" json:"city"`
	Province             string     `db:"province" json:"province"`
	PostalCode           string     `db:"postal_code" json:"postal_code"`
	ProfilePhotoURL      string     `db:"profile_photo_url" json:"profile_photo_url,omitempty"`
	ResidentIDPhotoURL   string     `db:"resident_id_photo_url" json:"resident_id_photo_url,omitempty"`
	Role                 Role       `db:"role" json:"role"`
	ID                   int64      `db:"id" json:"id"`
	IsActive             bool       `db:"is_active" json:"is_active"`
	EmailVerified        bool       `db:"email_verified" json:"email_verified"`
	PhoneVerified        bool       `db:"phone_verified" json:"phone_verified"`
	ResidentConfirmation bool       `db:"resident_confirmation" json:"resident_confirmation"`
}

// CanAccessPortal reports whether the account may use the resident-facing portal.
func (a *Account) CanAccessPortal() bool {
	return a.IsActive && a.ResidentConfirmation
}

// CanAccessAdmin reports whether the account may reach the administrative views.
func (a *Account) CanAccessAdmin() bool {
	return a.IsActive && a.Role.IsStaff()
}

// AccountFilter narrows the staff user listing.
type AccountFilter struct {
	Role      *Role
	Confirmed *bool
	Active    *bool
	Search    string
	Limit     int
	Offset    int
}
