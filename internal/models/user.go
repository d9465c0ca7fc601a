package models

type UserRole string

const (
	RoleViewer UserRole = "viewer"
	RoleEditor UserRole = "editor"
	RoleAdmin  UserRole = "admin"
)

// User is the authenticated caller as read from the access token. Users are
// owned by the identity provider and never stored here.
type User struct {
	ID       string   `json:"id"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
}

// AnonymousUser acts for every request when authentication is disabled
func AnonymousUser() *User {
	return &User{ID: "anonymous", FullName: "Anonymous", Role: RoleAdmin}
}
