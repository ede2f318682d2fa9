package auth

import "errors"

var (
	InvalidCredentialsErr = errors.New("invalid email or password")
	MissingAccessTokenErr = errors.New("login response carried no access token")
	NotAuthenticatedErr   = errors.New("not signed in")
)
