// Package campaigns sends marketing emails to groups of users.
package campaigns

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/distritherm-admin/apiclient"
	apperrors "github.com/jrsteele09/distritherm-admin/internal/errors"
	"github.com/jrsteele09/distritherm-admin/internal/validation"
	"github.com/jrsteele09/distritherm-admin/users"
	"github.com/pkg/errors"
)

const (
	sendPath = "/campagnes/send"

	MaxAttachmentSize = 10 << 20
	MaxAttachments    = 5
)

// Attachment is a file sent along with the campaign.
type Attachment struct {
	FileName string
	Data     []byte
}

// Campaign is one email sent either to every user with Role or to Recipients.
type Campaign struct {
	Subject     string         `validate:"required,max=200"`
	Content     string         `validate:"required"`
	Role        users.RoleType `validate:"omitempty,oneof=ADMIN COMMERCIAL CLIENT"`
	Recipients  []string       `validate:"omitempty,dive,email"`
	Attachments []Attachment   `validate:"max=5"`
}

// Result is what the server reports after sending.
type Result struct {
	Message string
	Sent    bool `json:"sent"`
}

type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

// Send posts the campaign as multipart form data with the upload timeout.
func (s *Service) Send(ctx context.Context, c Campaign) (Result, error) {
	if err := validation.Struct(c); err != nil {
		return Result{}, err
	}
	if c.Role == "" && len(c.Recipients) == 0 {
		return Result{}, fmt.Errorf("%w: a role or at least one recipient is required", apperrors.ErrInvalidInput)
	}

	fields := map[string]string{
		"subject": strings.TrimSpace(c.Subject),
		"content": c.Content,
	}
	if c.Role != "" {
		fields["role"] = string(c.Role)
	}
	if len(c.Recipients) > 0 {
		fields["recipients"] = strings.Join(c.Recipients, ",")
	}

	files := make([]apiclient.FilePart, 0, len(c.Attachments))
	for _, a := range c.Attachments {
		if len(a.Data) > MaxAttachmentSize {
			return Result{}, fmt.Errorf("%w: %s exceeds %d MB", apperrors.ErrFileTooLarge, a.FileName, MaxAttachmentSize>>20)
		}
		files = append(files, apiclient.FilePart{
			Field:       "attachments",
			FileName:    filepath.Base(a.FileName),
			ContentType: http.DetectContentType(a.Data),
			Data:        a.Data,
		})
	}

	var env struct {
		Message string `json:"message"`
		Data    Result `json:"data"`
	}
	if err := s.client.PostMultipart(ctx, sendPath, fields, files, 0, &env); err != nil {
		return Result{}, errors.Wrap(err, "sending campaign")
	}
	env.Data.Message = env.Message
	return env.Data, nil
}
