package memory

import (
	"strings"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
)

// DemoUsers are the accounts available to the demo login.
func DemoUsers() []domain.User {
	return []domain.User{
		{ID: 1, FullName: "Asha Kumar", Email: "asha.kumar@example.com"},
		{ID: 2, FullName: "Rahul Singh", Email: "rahul.singh@example.com"},
		{ID: 3, FullName: "Demo Admin", Email: "admin@example.com"},
	}
}

// UserDirectory is a fixed, read-only domain.UserDirectory.
type UserDirectory struct {
	users []domain.User
}

var _ domain.UserDirectory = (*UserDirectory)(nil)

func NewUserDirectory(users []domain.User) *UserDirectory {
	return &UserDirectory{users: users}
}

func (d *UserDirectory) Lookup(id domain.UserID) (domain.User, error) {
	for _, u := range d.users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

// FindByEmail matches case-insensitively.
func (d *UserDirectory) FindByEmail(email string) (domain.User, error) {
	email = strings.TrimSpace(email)
	for _, u := range d.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (d *UserDirectory) List() []domain.User {
	out := make([]domain.User, len(d.users))
	copy(out, d.users)
	return out
}
