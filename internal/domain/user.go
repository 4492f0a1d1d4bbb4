package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

var validRoles = map[Role]bool{
	RoleStudent: true,
	RoleFaculty: true,
	RoleAdmin:   true,
}

func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, validRoles[r]
}

// Login channels. A client declares which login surface it is using; the
// declared channel must match the account's actual role.
const (
	ChannelAdmin = "admin"
	ChannelUser  = "user"
)

type User struct {
	ID           int64     `json:"id"`
	Role         Role      `json:"role"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayName is the formatted name carried by the session.
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	Phone     string `json:"phone,omitempty"`
}

type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	LoginType string `json:"loginType"`
}

// UserInfo is the user shape returned to clients, without credentials.
type UserInfo struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      Role   `json:"role"`
}

func (u *User) ToUserInfo() *UserInfo {
	return &UserInfo{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

func (r *RegisterRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Phone = strings.TrimSpace(r.Phone)
}

func (r *RegisterRequest) Validate() error {
	if r.Email == "" || r.Password == "" || r.Role == "" {
		return fmt.Errorf("%w: email, password, and role are required", ErrValidation)
	}
	if !isValidEmail(r.Email) {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	if _, ok := ParseRole(r.Role); !ok {
		return fmt.Errorf("%w: unknown role %q", ErrValidation, r.Role)
	}
	return nil
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
	if r.LoginType == "" {
		r.LoginType = ChannelUser
	}
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return fmt.Errorf("%w: email and password are required", ErrValidation)
	}
	return nil
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
