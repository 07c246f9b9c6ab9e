package model

import (
    "time"

    "github.com/shopspring/decimal"
)

func init() {
    // Amounts travel as JSON numbers, not quoted strings.
    decimal.MarshalJSONWithoutQuotes = true
}

// User mirrors the `users` table. Password holds the bcrypt hash and never
// leaves the service; handlers render users through PublicView or
// PrivateView.
type User struct {
    ID               string          `db:"id"`
    FirstName        *string         `db:"first_name"`
    LastName         *string         `db:"last_name"`
    Email            string          `db:"email"`
    StripeCustomerID string          `db:"stripe_customer_id"`
    GoogleUserID     *string         `db:"google_user_id"`
    Password         string          `db:"password"`
    Credits          decimal.Decimal `db:"credits"`
    Is2FAEnabled     bool            `db:"is_2fa_enabled"`
    IsDarkMode       bool            `db:"is_dark_mode"`
    IsActive         bool            `db:"is_active"`
    CreatedAt        time.Time       `db:"created_at"`
    UpdatedAt        time.Time       `db:"updated_at"`
}

// HasProfile reports whether both name fields are filled in.
func (u User) HasProfile() bool {
    return u.FirstName != nil && *u.FirstName != "" && u.LastName != nil && *u.LastName != ""
}

// UserView is the JSON shape returned to API key holders with the public
// role and to the users themselves.
type UserView struct {
    ID           string          `json:"id"`
    FirstName    *string         `json:"first_name"`
    LastName     *string         `json:"last_name"`
    Email        string          `json:"email"`
    Credits      decimal.Decimal `json:"credits"`
    Is2FAEnabled bool            `json:"is_2fa_enabled"`
    IsDarkMode   bool            `json:"is_dark_mode"`
    IsActive     bool            `json:"is_active"`
    CreatedAt    time.Time       `json:"created_at"`
    UpdatedAt    time.Time       `json:"updated_at"`
}

// PrivateUserView adds the external account links, visible to the private
// role only.
type PrivateUserView struct {
    UserView
    StripeCustomerID string  `json:"stripe_customer_id"`
    GoogleUserID     *string `json:"google_user_id"`
}

func (u User) PublicView() UserView {
    return UserView{
        ID:           u.ID,
        FirstName:    u.FirstName,
        LastName:     u.LastName,
        Email:        u.Email,
        Credits:      u.Credits,
        Is2FAEnabled: u.Is2FAEnabled,
        IsDarkMode:   u.IsDarkMode,
        IsActive:     u.IsActive,
        CreatedAt:    u.CreatedAt,
        UpdatedAt:    u.UpdatedAt,
    }
}

func (u User) PrivateView() PrivateUserView {
    return PrivateUserView{
        UserView:         u.PublicView(),
        StripeCustomerID: u.StripeCustomerID,
        GoogleUserID:     u.GoogleUserID,
    }
}

// UserPatch carries the mutable user fields. A nil field is left untouched.
type UserPatch struct {
    FirstName    *string
    LastName     *string
    GoogleUserID *string
    IsDarkMode   *bool
    IsActive     *bool
    Is2FAEnabled *bool
    Password     *string
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
    return p.FirstName == nil && p.LastName == nil && p.GoogleUserID == nil &&
        p.IsDarkMode == nil && p.IsActive == nil && p.Is2FAEnabled == nil && p.Password == nil
}
