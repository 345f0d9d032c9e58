package models

import "time"

// CodePurpose tags what a one-time code authorizes.
type CodePurpose string

const (
	PurposeEmail         CodePurpose = "email"
	PurposePhone         CodePurpose = "phone"
	PurposePasswordReset CodePurpose = "password_reset"
)

// Valid reports whether p is a known purpose.
func (p CodePurpose) Valid() bool {
	switch p {
	case PurposeEmail, PurposePhone, PurposePasswordReset:
		return true
	}
	return false
}

// OneTimeCode is a short-lived, single-use numeric code bound to one account
// and one purpose.
type OneTimeCode struct {
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	ExpiresAt time.Time   `db:"expires_at" json:"expires_at"`
	Purpose   CodePurpose `db:"purpose" json:"purpose"`
	Code      string      `db:"code" json:"-"`
	ID        int64       `db:"id" json:"id"`
	AccountID int64       `db:"account_id" json:"account_id"`
	Used      bool        `db:"used" json:"used"`
}

// IsExpiredAt reports whether the code has expired at the given instant.
// A code is expired once now >= expires_at.
func (c *OneTimeCode) IsExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsValidAt reports whether the code is unused and unexpired.
func (c *OneTimeCode) IsValidAt(now time.Time) bool {
	return !c.Used && !c.IsExpiredAt(now)
}
