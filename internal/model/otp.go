package model

import (
    "strings"
    "time"
)

// OTPPurpose names what a one-time code unlocks.
type OTPPurpose string

const (
    OTPActivation     OTPPurpose = "ACTIVATION"
    OTPTwoFactorAuth  OTPPurpose = "TWO_FACTOR_AUTH"
    OTPChangePassword OTPPurpose = "CHANGE_PASSWORD"
)

// ParseOTPPurpose accepts the purpose names case-insensitively.
func ParseOTPPurpose(s string) (OTPPurpose, bool) {
    p := OTPPurpose(strings.ToUpper(strings.TrimSpace(s)))
    return p, p.Valid()
}

func (p OTPPurpose) Valid() bool {
    switch p {
    case OTPActivation, OTPTwoFactorAuth, OTPChangePassword:
        return true
    }
    return false
}

// OTP mirrors the `otps` table. At most one row exists per (UserID, Type).
type OTP struct {
    ID        string     `db:"id"`
    UserID    string     `db:"user_id"`
    Code      string     `db:"code"`
    Type      OTPPurpose `db:"type"`
    ExpiresAt time.Time  `db:"expires_at"`
    CreatedAt time.Time  `db:"created_at"`
    UpdatedAt time.Time  `db:"updated_at"`
}
