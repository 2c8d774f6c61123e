package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/time2pay/internal/core/user"
)

type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	LoadActor(ctx context.Context, employeeID int64) (*user.Actor, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
}

type RepositoryAPI interface {
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	GetAccountByID(ctx context.Context, employeeID int64) (*Account, error)
	UpdateLastLogin(ctx context.Context, employeeID int64, at time.Time) error
}

// Account joins an employee with its login record. HasAccount is false for
// employees that were never given credentials.
type Account struct {
	EmployeeID   int64
	Email        string
	Name         string
	Role         string
	DepartmentID int64
	PasswordHash string
	IsActive     bool
	HasAccount   bool
}

func (a *Account) CanLogin() bool {
	return a != nil && a.HasAccount && a.IsActive
}

// ToActor returns nil when the stored role is not one of the known roles.
func (a *Account) ToActor() *user.Actor {
	role, err := user.ParseRole(a.Role)
	if err != nil {
		return nil
	}
	return &user.Actor{
		EmployeeID:   a.EmployeeID,
		Email:        a.Email,
		Name:         a.Name,
		Role:         role,
		DepartmentID: a.DepartmentID,
	}
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
