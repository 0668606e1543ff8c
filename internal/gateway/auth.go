package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/rcliao/tripplan/internal/apperr"
	"github.com/rcliao/tripplan/internal/model"
)

var (
	loginErrors = map[int]apperr.Kind{
		http.StatusUnauthorized:        apperr.KindInvalidCredentials,
		http.StatusBadRequest:          apperr.KindValidation,
		http.StatusUnprocessableEntity: apperr.KindValidation,
	}
	registerErrors = map[int]apperr.Kind{
		http.StatusBadRequest:          apperr.KindValidation,
		http.StatusUnprocessableEntity: apperr.KindValidation,
		http.StatusConflict:            apperr.KindConflict,
	}
)

// Login exchanges email and password for a bearer token. The token endpoint
// is OAuth2 password flow: form-encoded, with the email as "username".
func (c *Client) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	const op = "login"
	if err := check(op, credentials{Email: email, Password: password}); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	resp, err := c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   "/token",
		body:   strings.NewReader(form.Encode()),
		ctype:  "application/x-www-form-urlencoded",
	})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.statusError(op, loginErrors, apperr.KindUnexpected)
	}

	var tok model.TokenResponse
	if err := resp.decode(op, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, &apperr.Error{Kind: apperr.KindUnexpected, Op: op, Status: resp.status,
			Detail: "no access token received"}
	}
	return &tok, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, email, password string) error {
	const op = "register"
	if err := check(op, credentials{Email: email, Password: password}); err != nil {
		return err
	}

	body := map[string]string{"email": email, "password": password}
	resp, err := c.doJSON(ctx, op, http.MethodPost, "/register", "", body)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return resp.statusError(op, registerErrors, apperr.KindUnexpected)
	}
	return nil
}
