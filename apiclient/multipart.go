package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

// FilePart is one file of a multipart form.
type FilePart struct {
	Field       string
	FileName    string
	ContentType string
	Data        []byte
}

// MultipartBody encodes fields and files as multipart/form-data. The body is fully
// buffered so it can be replayed after a token refresh.
func MultipartBody(fields map[string]string, files ...FilePart) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("[apiclient.MultipartBody] field %s: %w", k, err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.FileName))
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("[apiclient.MultipartBody] file %s: %w", f.FileName, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("[apiclient.MultipartBody] file %s: %w", f.FileName, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("[apiclient.MultipartBody] %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// PostMultipart sends a multipart form with the given timeout (the upload timeout when
// zero) and decodes the response into out.
func (c *Client) PostMultipart(ctx context.Context, path string, fields map[string]string, files []FilePart, timeout time.Duration, out any) error {
	body, contentType, err := MultipartBody(fields, files...)
	if err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = c.uploadTimeout
	}
	return c.call(ctx, &Request{
		Method:      http.MethodPost,
		Path:        path,
		RawBody:     body,
		ContentType: contentType,
		Timeout:     timeout,
	}, out)
}
