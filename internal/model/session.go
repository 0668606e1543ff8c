package model

// User identifies the signed-in traveler. Only the email is known client-side.
type User struct {
	Email string `json:"email"`
}

// Session is the authenticated state: a bearer token and its user.
type Session struct {
	Token string `json:"-"`
	User  User   `json:"user"`
}

// TokenResponse is the body returned by the token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
