package users

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jrsteele09/distritherm-admin/apiclient"
	apperrors "github.com/jrsteele09/distritherm-admin/internal/errors"
	"github.com/jrsteele09/distritherm-admin/internal/validation"
	"github.com/jrsteele09/distritherm-admin/pagination"
	"github.com/jrsteele09/distritherm-admin/resource"
	"github.com/pkg/errors"
)

const (
	basePath = "/users"

	DuplicateEmailMessage = "A user with this email already exists"
	ForbiddenEditMessage  = "You can only edit your own profile"
)

// CreateInput is the body of POST /users/create-user.
type CreateInput struct {
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required"`
	FirstName   string   `json:"firstName" validate:"required"`
	LastName    string   `json:"lastName" validate:"required"`
	Role        RoleType `json:"role" validate:"required,oneof=ADMIN COMMERCIAL CLIENT"`
	PhoneNumber string   `json:"phoneNumber,omitempty"`
	CompanyName string   `json:"companyName,omitempty"`
	SiretNumber string   `json:"siretNumber,omitempty" validate:"omitempty,numeric,len=14"`
	Address     string   `json:"address,omitempty"`
	PostalCode  string   `json:"postalCode,omitempty" validate:"omitempty,numeric,len=5"`
	City        string   `json:"city,omitempty"`
}

// UpdateInput carries the fields to change. Nil fields are left untouched.
type UpdateInput struct {
	Email       *string   `json:"email,omitempty" validate:"omitempty,email"`
	FirstName   *string   `json:"firstName,omitempty"`
	LastName    *string   `json:"lastName,omitempty"`
	Role        *RoleType `json:"role,omitempty" validate:"omitempty,oneof=ADMIN COMMERCIAL CLIENT"`
	PhoneNumber *string   `json:"phoneNumber,omitempty"`
	CompanyName *string   `json:"companyName,omitempty"`
	SiretNumber *string   `json:"siretNumber,omitempty" validate:"omitempty,numeric,len=14"`
	Address     *string   `json:"address,omitempty"`
	PostalCode  *string   `json:"postalCode,omitempty" validate:"omitempty,numeric,len=5"`
	City        *string   `json:"city,omitempty"`
}

// Actor is whoever is signed in. session.Manager implements it.
type Actor interface {
	User() *User
}

// Service manages back office accounts: admins, commercials and clients.
type Service struct {
	client *apiclient.Client
	actor  Actor
}

// NewService returns a users service. actor may be nil, in which case edits are not
// checked before being sent.
func NewService(client *apiclient.Client, actor Actor) *Service {
	return &Service{client: client, actor: actor}
}

func (s *Service) List(ctx context.Context, params pagination.Params) (pagination.Page[User], error) {
	resp, err := s.client.Do(ctx, &apiclient.Request{Method: http.MethodGet, Path: basePath, Query: params.Query()})
	if err != nil {
		return pagination.Page[User]{}, errors.Wrap(err, "listing users")
	}
	return apiclient.DecodeList[User](resp, params, "users")
}

// ListByRole lists the users holding role, e.g. every commercial for an assignment picker.
func (s *Service) ListByRole(ctx context.Context, role RoleType, params pagination.Params) (pagination.Page[User], error) {
	if !role.Valid() {
		return pagination.Page[User]{}, fmt.Errorf("%w: unknown role %q", apperrors.ErrInvalidInput, role)
	}
	query := params.WithFilter("role", string(role)).Query()
	resp, err := s.client.Do(ctx, &apiclient.Request{Method: http.MethodGet, Path: basePath + "/by-role", Query: query})
	if err != nil {
		return pagination.Page[User]{}, errors.Wrapf(err, "listing %s users", role)
	}
	return apiclient.DecodeList[User](resp, params, "users")
}

func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	resp, err := s.client.Do(ctx, &apiclient.Request{Method: http.MethodGet, Path: userPath(id)})
	if err != nil {
		return User{}, apiclient.Describe(err, "User")
	}
	return apiclient.DecodeItem[User](resp, "user")
}

// Create validates input, including password strength, before sending it.
func (s *Service) Create(ctx context.Context, input CreateInput) (User, error) {
	if err := validation.Struct(input); err != nil {
		return User{}, err
	}
	if err := ValidatePasswordStrength(input.Password); err != nil {
		return User{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}

	resp, err := s.client.Do(ctx, &apiclient.Request{Method: http.MethodPost, Path: basePath + "/create-user", Body: input})
	if err != nil {
		if apiclient.IsConflict(err) {
			return User{}, apiclient.WithMessage(err, DuplicateEmailMessage)
		}
		return User{}, errors.Wrap(err, "creating user")
	}
	return apiclient.DecodeItem[User](resp, "user")
}

// Update changes the profile of user id. A non admin may only edit their own profile;
// anything else is refused without calling the server.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (User, error) {
	if s.actor != nil {
		if actor := s.actor.User(); actor != nil && !actor.CanEdit(id) {
			return User{}, apiclient.WithMessage(apperrors.ErrForbidden, ForbiddenEditMessage)
		}
		if actor := s.actor.User(); actor != nil && !actor.IsAdmin() && input.Role != nil {
			return User{}, apiclient.WithMessage(apperrors.ErrForbidden, "Only an administrator can change a role")
		}
	}
	if err := validation.Struct(input); err != nil {
		return User{}, err
	}

	resp, err := s.client.Do(ctx, &apiclient.Request{Method: http.MethodPut, Path: userPath(id), Body: input})
	if err != nil {
		if apiclient.IsConflict(err) {
			return User{}, apiclient.WithMessage(err, DuplicateEmailMessage)
		}
		return User{}, apiclient.Describe(err, "User")
	}
	return apiclient.DecodeItem[User](resp, "user")
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.client.Do(ctx, &apiclient.Request{Method: http.MethodDelete, Path: userPath(id)}); err != nil {
		return apiclient.Describe(err, "User")
	}
	return nil
}

// VerifyEmail confirms an address with the code the user received.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) (string, error) {
	body := struct {
		Email string `json:"email" validate:"required,email"`
		Code  string `json:"code" validate:"required"`
	}{Email: email, Code: code}
	if err := validation.Struct(body); err != nil {
		return "", err
	}
	resp, err := s.client.Do(ctx, &apiclient.Request{Method: http.MethodPost, Path: basePath + "/verify-email", Body: body})
	if err != nil {
		return "", errors.Wrap(err, "verifying email")
	}
	return apiclient.DecodeMessage(resp), nil
}

// SendVerification asks the server to mail a new verification code.
func (s *Service) SendVerification(ctx context.Context, email string) (string, error) {
	body := struct {
		Email string `json:"email" validate:"required,email"`
	}{Email: email}
	if err := validation.Struct(body); err != nil {
		return "", err
	}
	resp, err := s.client.Do(ctx, &apiclient.Request{Method: http.MethodPost, Path: basePath + "/send-verification", Body: body})
	if err != nil {
		return "", errors.Wrap(err, "sending verification email")
	}
	return apiclient.DecodeMessage(resp), nil
}

func userPath(id int64) string {
	return basePath + "/" + url.PathEscape(fmt.Sprint(id))
}

var _ resource.Fetcher[User, CreateInput, UpdateInput] = (*Service)(nil)

// NewController returns a list controller for users.
func NewController(svc *Service, auth resource.Authenticator, opts ...resource.Option[User]) *resource.Controller[User, CreateInput, UpdateInput] {
	opts = append([]resource.Option[User]{resource.WithName[User]("users")}, opts...)
	return resource.New[User, CreateInput, UpdateInput](svc, auth, opts...)
}
