package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/tripplan/internal/apperr"
	"github.com/rcliao/tripplan/internal/fakeapi"
	"github.com/rcliao/tripplan/internal/model"
)

const (
	testEmail    = "traveler@example.com"
	testPassword = "hunter22"
)

func newTestClient(t *testing.T) (*Client, *fakeapi.Server) {
	t.Helper()
	api := fakeapi.New()
	api.AddUser(testEmail, testPassword)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	return c, api
}

func login(t *testing.T, c *Client) string {
	t.Helper()
	tok, err := c.Login(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	return tok.AccessToken
}

func parisRequest() model.GenerateRequest {
	return model.GenerateRequest{
		Destination: "Paris, France",
		StartDate:   model.MustParseDate("2024-06-01"),
		EndDate:     model.MustParseDate("2024-06-03"),
		Interests:   []string{"museums", "food"},
	}
}

func inputFrom(req model.GenerateRequest, p *model.Preview) model.ItineraryInput {
	return model.ItineraryInput{
		Destination:        req.Destination,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		Interests:          req.Interests,
		DaysCount:          p.DaysCount,
		GeneratedItinerary: p.Itinerary,
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
	_, err = New(Config{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	c, api := newTestClient(t)

	tok, err := c.Login(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.AccessToken)
	assert.Equal(t, "bearer", tok.TokenType)

	calls := api.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "application/x-www-form-urlencoded", calls[0].ContentType)
	assert.Empty(t, calls[0].Authorization, "login is unauthenticated")
	assert.NotEmpty(t, calls[0].RequestID)
}

func TestLoginErrors(t *testing.T) {
	c, api := newTestClient(t)
	ctx := context.Background()

	_, err := c.Login(ctx, testEmail, "wrong")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = c.Login(ctx, "not-an-email", testPassword)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Len(t, api.Calls(), 1, "malformed email is rejected before any request")

	api.FailNext(http.MethodPost, "/token", http.StatusUnprocessableEntity, "bad form")
	_, err = c.Login(ctx, testEmail, testPassword)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLoginTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url})
	require.NoError(t, err)

	_, err = c.Login(context.Background(), testEmail, testPassword)
	assert.ErrorIs(t, err, apperr.ErrTransport)
}

func TestRegister(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Register(ctx, "new@example.com", "pw"))

	err := c.Register(ctx, "new@example.com", "pw")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	var e *apperr.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, http.StatusConflict, e.Status)
	assert.Equal(t, "Email already registered", e.Detail)

	err = c.Register(ctx, "bad", "pw")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestGenerate(t *testing.T) {
	c, api := newTestClient(t)
	tok := login(t, c)

	preview, err := c.Generate(context.Background(), parisRequest(), tok)
	require.NoError(t, err)
	assert.Equal(t, 3, preview.DaysCount)
	require.Len(t, preview.Itinerary, 3)
	for i, d := range preview.Itinerary {
		assert.Equal(t, i+1, d.Day)
		assert.NotEmpty(t, d.Activities)
	}

	calls := api.Calls()
	assert.Equal(t, "Bearer "+tok, calls[len(calls)-1].Authorization)
}

func TestGenerateErrors(t *testing.T) {
	c, api := newTestClient(t)
	tok := login(t, c)
	ctx := context.Background()

	_, err := c.Generate(ctx, parisRequest(), "garbage")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	api.FailNext(http.MethodPost, "/api/itinerary/generate", http.StatusInternalServerError, "model overloaded")
	_, err = c.Generate(ctx, parisRequest(), tok)
	assert.ErrorIs(t, err, apperr.ErrGenerationFailed)
	assert.Contains(t, apperr.Message(err), "model overloaded")

	long := parisRequest()
	long.EndDate = long.StartDate.AddDays(fakeapi.MaxTripDays + 1)
	_, err = c.Generate(ctx, long, tok)
	assert.ErrorIs(t, err, apperr.ErrGenerationFailed)

	backwards := parisRequest()
	backwards.StartDate, backwards.EndDate = backwards.EndDate, backwards.StartDate
	_, err = c.Generate(ctx, backwards, tok)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "end_date must not be before start_date")
}

func TestRecordLifecycle(t *testing.T) {
	c, api := newTestClient(t)
	tok := login(t, c)
	ctx := context.Background()

	req := parisRequest()
	preview, err := c.Generate(ctx, req, tok)
	require.NoError(t, err)

	created, err := c.Create(ctx, inputFrom(req, preview), tok)
	require.NoError(t, err)
	assert.False(t, created.ID.IsZero(), "server assigns the id")
	assert.Equal(t, 3, created.DaysCount)

	list, err := c.List(ctx, tok)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, "2024-06-01", list[0].StartDate.String())

	req.Destination = "Lyon, France"
	updated, err := c.Update(ctx, created.ID, inputFrom(req, preview), tok)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Lyon, France", api.Records(testEmail)[0].Destination)

	require.NoError(t, c.Delete(ctx, created.ID, tok))
	list, err = c.List(ctx, tok)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRecordErrors(t *testing.T) {
	c, api := newTestClient(t)
	tok := login(t, c)
	ctx := context.Background()

	req := parisRequest()
	preview := fakeapi.Generate(req)
	in := inputFrom(req, &preview)

	_, err := c.Update(ctx, "999", in, tok)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = c.Delete(ctx, "999", tok)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = c.List(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	api.FailNext(http.MethodGet, "/api/itinerary", http.StatusInternalServerError, "db down")
	_, err = c.List(ctx, tok)
	assert.ErrorIs(t, err, apperr.ErrUnexpected)

	mismatched := in
	mismatched.DaysCount = 5
	_, err = c.Create(ctx, mismatched, tok)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 0, api.CallCount(http.MethodPost, "/api/itinerary"))
}

func TestRequestHonorsContext(t *testing.T) {
	c, api := newTestClient(t)
	tok := login(t, c)

	release := api.Block(http.MethodGet, "/api/itinerary")
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.List(ctx, tok)
	assert.ErrorIs(t, err, apperr.ErrTransport)
	assert.True(t, IsCanceled(err))
}

func TestDetail(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"string", `{"detail":"Email already registered"}`, "Email already registered"},
		{"list", `{"detail":[{"loc":["body","email"],"msg":"not an email"}]}`, "email: not an email"},
		{"plain", `Internal Server Error`, "Internal Server Error"},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, detail([]byte(tt.body)))
		})
	}
}
