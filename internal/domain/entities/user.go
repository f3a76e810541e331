package entities

import (
	"strings"
)

// User owns places and writes reviews. Password holds a bcrypt hash once the
// user has gone through the service layer.
type User struct {
	Base
	Email     string `json:"email" db:"email"`
	Password  string `json:"password" db:"password"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
}

// NewUser creates a user with a fresh identity
func NewUser(email, password string) *User {
	return &User{Base: NewBase(), Email: email, Password: password}
}

func (u *User) Kind() Kind { return KindUser }

func (u *User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return missing("email")
	}
	if u.Password == "" {
		return missing("password")
	}
	for _, f := range []struct {
		field string
		value string
	}{
		{"email", u.Email},
		{"password", u.Password},
		{"first_name", u.FirstName},
		{"last_name", u.LastName},
	} {
		if tooLong(f.value, MaxStringLength) {
			return invalid(f.field)
		}
	}
	return nil
}

func (u *User) Clone() Entity {
	c := *u
	return &c
}

func (u *User) References() map[string]string { return nil }

// UserInput is the client payload for a user. Email is fixed after creation.
type UserInput struct {
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (in *UserInput) MissingForCreate() string {
	switch {
	case in.Email == nil:
		return "email"
	case in.Password == nil:
		return "password"
	}
	return ""
}

func (in *UserInput) Apply(e Entity) error {
	u, ok := e.(*User)
	if !ok {
		return kindMismatch(KindUser, e)
	}
	if in.Password != nil {
		u.Password = *in.Password
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	return nil
}
