package user

import (
	"fmt"
	"strings"
)

// Role is the closed set of roles an employee can hold.
type Role string

const (
	RoleLecturer    Role = "Lecturer"
	RoleCoordinator Role = "Coordinator"
	RoleManager     Role = "Manager"
	RoleHRAdmin     Role = "HR Admin"
)

var roles = []Role{RoleLecturer, RoleCoordinator, RoleManager, RoleHRAdmin}

// ParseRole matches case-insensitively and ignores surrounding whitespace,
// stored rows are known to carry mixed casing.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	for _, r := range roles {
		if strings.EqualFold(string(r), s) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

func (r Role) String() string {
	return string(r)
}

func (r Role) IsPrivileged() bool {
	return r != RoleLecturer
}

// OneOf reports whether r is any of the given roles.
func (r Role) OneOf(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// Actor is the authenticated caller. DepartmentID is a snapshot taken when the
// request was authenticated; lifecycle checks re-read it from storage.
type Actor struct {
	EmployeeID   int64  `json:"employee_id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
	DepartmentID int64  `json:"department_id"`
}
