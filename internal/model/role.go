package model

// Role is the coarse caller class resolved by the authorization layer.
type Role string

const (
    RolePrivate Role = "private"
    RolePublic  Role = "public"
    RoleUser    Role = "user"
)
