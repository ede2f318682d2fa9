package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL        = "http://localhost:3000/api"
	defaultPlatform       = "web"
	defaultLoginPath      = "/login"
	defaultRequestTimeout = 10 * time.Second
	defaultUploadTimeout  = 120 * time.Second
)

type APIConfig interface {
	GetBaseURL() string
	GetPlatform() string
	GetLoginPath() string
	GetRequestTimeout() time.Duration
	GetUploadTimeout() time.Duration
	GetRateLimit() float64
}

type API struct {
	BaseURL        string        `envconfig:"API_BASE_URL" default:"http://localhost:3000/api"`
	Platform       string        `envconfig:"PLATFORM" default:"web"`
	LoginPath      string        `envconfig:"LOGIN_PATH" default:"/login"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	UploadTimeout  time.Duration `envconfig:"UPLOAD_TIMEOUT" default:"120s"`
	RateLimit      float64       `envconfig:"RATE_LIMIT" default:"0"` // requests per second, 0 disables
}

var _ APIConfig = API{}

func (a API) GetBaseURL() string {
	return strings.TrimRight(a.BaseURL, "/")
}

func (a API) GetPlatform() string {
	return a.Platform
}

func (a API) GetLoginPath() string {
	if a.LoginPath == "" {
		return defaultLoginPath
	}
	return a.LoginPath
}

func (a API) GetRequestTimeout() time.Duration {
	if a.RequestTimeout <= 0 {
		return defaultRequestTimeout
	}
	return a.RequestTimeout
}

func (a API) GetUploadTimeout() time.Duration {
	if a.UploadTimeout <= 0 {
		return defaultUploadTimeout
	}
	return a.UploadTimeout
}

func (a API) GetRateLimit() float64 {
	return a.RateLimit
}

func (a API) validate() error {
	u, err := url.Parse(a.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid API base url %q: %w", a.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid API base url %q: scheme must be http or https", a.BaseURL)
	}
	return nil
}
