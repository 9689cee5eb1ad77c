package admin

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/EmpoweredVote/academic-portal/internal/api"
	"github.com/EmpoweredVote/academic-portal/internal/remote"
	"github.com/EmpoweredVote/academic-portal/internal/workspace"
)

// ProtectedRoleID is the Administrator role, which can be neither edited nor
// deleted.
const ProtectedRoleID = api.RoleAdmin

var (
	ErrProtectedRole    = errors.New("the administrator role cannot be modified")
	ErrMissingFields    = errors.New("names and email are required")
	ErrPasswordRequired = errors.New("a password is required for new users")
	ErrSelfDelete       = errors.New("administrators cannot delete their own account")
)

// UserForm is what the admin panel submits when creating or editing a user.
type UserForm struct {
	Names    string `json:"nombres"`
	Email    string `json:"correo"`
	Password string `json:"contrasena"`
	CareerID int    `json:"id_carrera"`
	RoleID   int    `json:"id_rol"`
}

func (f UserForm) validate() error {
	if strings.TrimSpace(f.Names) == "" || strings.TrimSpace(f.Email) == "" {
		return ErrMissingFields
	}
	return nil
}

// BuildUserUpdate turns an edit form into the update payload. A blank
// password is left out so the backend keeps the stored one.
func BuildUserUpdate(f UserForm) (api.UserInput, error) {
	if err := f.validate(); err != nil {
		return api.UserInput{}, err
	}
	in := api.UserInput{
		Names:    strings.TrimSpace(f.Names),
		Email:    strings.TrimSpace(f.Email),
		CareerID: f.CareerID,
		RoleID:   f.RoleID,
	}
	if strings.TrimSpace(f.Password) != "" {
		pw := f.Password
		in.Password = &pw
	}
	return in, nil
}

// BuildUserCreate is BuildUserUpdate for new users, where a password is
// mandatory.
func BuildUserCreate(f UserForm) (api.UserInput, error) {
	in, err := BuildUserUpdate(f)
	if err != nil {
		return in, err
	}
	if in.Password == nil {
		return in, ErrPasswordRequired
	}
	return in, nil
}

// CheckRoleEditable rejects changes to the protected role.
func CheckRoleEditable(id int) error {
	if id == ProtectedRoleID {
		return ErrProtectedRole
	}
	return nil
}

func userFrom(id int, in api.UserInput) api.User {
	return api.User{ID: id, Names: in.Names, Email: in.Email, CareerID: in.CareerID, RoleID: in.RoleID}
}

// CreateUser adds the user optimistically and sends it to the backend.
func CreateUser(ctx context.Context, ws *workspace.Workspace, in api.UserInput) (api.User, error) {
	created := userFrom(0, in)
	err := ws.Users.Mutate(ctx, remote.Append(created), func(ctx context.Context) error {
		var err error
		created, err = ws.Client.CreateUser(ctx, in)
		return err
	}, ws.Users.Messages().Created)
	return created, err
}

// UpdateUser replaces the mirrored user and sends the edit to the backend.
func UpdateUser(ctx context.Context, ws *workspace.Workspace, id int, in api.UserInput) (api.User, error) {
	if err := ws.Users.EnsureLoaded(ctx); err != nil {
		return api.User{}, err
	}
	if _, ok := ws.Users.Find(strconv.Itoa(id)); !ok {
		return api.User{}, remote.ErrNotFound
	}

	// Some backends answer updates with a bare status message, so the
	// submitted fields are what we report back.
	updated := userFrom(id, in)
	err := ws.Users.Mutate(ctx, ws.Users.Replace(updated), func(ctx context.Context) error {
		_, err := ws.Client.UpdateUser(ctx, id, in)
		return err
	}, ws.Users.Messages().Updated)
	return updated, err
}

// DeleteUser removes a user other than the acting administrator.
func DeleteUser(ctx context.Context, ws *workspace.Workspace, id int) error {
	if id == ws.Session.UserID {
		return ErrSelfDelete
	}
	if err := ws.Users.EnsureLoaded(ctx); err != nil {
		return err
	}
	if _, ok := ws.Users.Find(strconv.Itoa(id)); !ok {
		return remote.ErrNotFound
	}
	return ws.Users.Remove(ctx, strconv.Itoa(id))
}
