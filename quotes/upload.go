package quotes

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/distritherm-admin/apiclient"
	apperrors "github.com/jrsteele09/distritherm-admin/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	uploadPath = "/devis/file"

	// MaxFileSize is the largest quote document accepted.
	MaxFileSize = 10 << 20
)

var pdfMagic = []byte("%PDF-")

// Upload is a quote document sent to the server.
type Upload struct {
	QuoteID  int64
	FileName string
	Data     []byte
	EndDate  time.Time
}

func (u Upload) validate() error {
	if u.QuoteID <= 0 {
		return fmt.Errorf("%w: quote id is required", apperrors.ErrInvalidInput)
	}
	if u.EndDate.IsZero() {
		return fmt.Errorf("%w: end date is required", apperrors.ErrInvalidInput)
	}
	if len(u.Data) == 0 {
		return fmt.Errorf("%w: file is empty", apperrors.ErrInvalidInput)
	}
	if len(u.Data) > MaxFileSize {
		return fmt.Errorf("%w: %s exceeds %d MB", apperrors.ErrFileTooLarge, u.FileName, MaxFileSize>>20)
	}
	if !strings.EqualFold(filepath.Ext(u.FileName), ".pdf") || !bytes.HasPrefix(u.Data, pdfMagic) {
		return fmt.Errorf("%w: %s is not a PDF", apperrors.ErrUnsupportedFile, u.FileName)
	}
	return nil
}

type uploadBody struct {
	DevisID  int64  `json:"devisId"`
	EndDate  string `json:"endDate"`
	FileName string `json:"fileName"`
	File     string `json:"file"`
}

// UploadFile attaches a PDF to a quote and sets its end date. The file is sent as JSON
// first; when the server rejects the body as too large it is sent once more as a
// multipart form and the result of that attempt is returned.
func (s *Service) UploadFile(ctx context.Context, u Upload) (Quote, error) {
	if err := u.validate(); err != nil {
		return Quote{}, err
	}
	u.FileName = filepath.Base(u.FileName)
	endDate := u.EndDate.UTC().Format(time.RFC3339)

	resp, err := s.client.Do(ctx, &apiclient.Request{
		Method: http.MethodPost,
		Path:   uploadPath,
		Body: uploadBody{
			DevisID:  u.QuoteID,
			EndDate:  endDate,
			FileName: u.FileName,
			File:     base64.StdEncoding.EncodeToString(u.Data),
		},
		Timeout: s.client.UploadTimeout(),
	})
	if err != nil && tooLarge(err) {
		log.Warn().Int64("quote", u.QuoteID).Int("size", len(u.Data)).Msg("Upload rejected as too large, retrying as multipart")
		resp, err = s.uploadMultipart(ctx, u, endDate)
	}
	if err != nil {
		return Quote{}, apiclient.Describe(err, "Quote")
	}
	return apiclient.DecodeItem[Quote](resp, Endpoint.ItemKey)
}

func (s *Service) uploadMultipart(ctx context.Context, u Upload, endDate string) (*apiclient.Response, error) {
	body, contentType, err := apiclient.MultipartBody(
		map[string]string{
			"devisId": strconv.FormatInt(u.QuoteID, 10),
			"endDate": endDate,
		},
		apiclient.FilePart{Field: "file", FileName: u.FileName, ContentType: "application/pdf", Data: u.Data},
	)
	if err != nil {
		return nil, err
	}
	return s.client.Do(ctx, &apiclient.Request{
		Method:      http.MethodPost,
		Path:        uploadPath,
		RawBody:     body,
		ContentType: contentType,
		Timeout:     s.client.UploadTimeout(),
	})
}

// tooLarge reports whether the server refused the body for its size. Only a server
// response counts: transport errors carry the request URL, which may contain "413".
func tooLarge(err error) bool {
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Status == http.StatusRequestEntityTooLarge {
		return true
	}
	text := strings.ToLower(apiErr.Message)
	return strings.Contains(text, "413") || strings.Contains(text, "too large")
}
