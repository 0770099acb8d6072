package model

// User is an authenticated identity. Password hashes never leave the
// user store.
type User struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}
