package fakeapi

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/tripplan/internal/model"
)

func TestGenerateOneDayPerCalendarDay(t *testing.T) {
	p := Generate(model.GenerateRequest{
		Destination: "Paris, France",
		StartDate:   model.MustParseDate("2024-06-01"),
		EndDate:     model.MustParseDate("2024-06-03"),
		Interests:   []string{"museums", " ", "food"},
	})

	require.Equal(t, 3, p.DaysCount)
	require.Len(t, p.Itinerary, 3)
	for i, d := range p.Itinerary {
		assert.Equal(t, i+1, d.Day)
		assert.NotEmpty(t, d.Activities)
	}
	assert.Contains(t, p.Itinerary[0].Activities[0], "museums")
	assert.Contains(t, p.Itinerary[1].Activities[0], "food")
}

func TestGenerateWithoutInterests(t *testing.T) {
	p := Generate(model.GenerateRequest{
		Destination: "Oslo",
		StartDate:   model.MustParseDate("2024-01-01"),
		EndDate:     model.MustParseDate("2024-01-01"),
	})
	require.Len(t, p.Itinerary, 1)
	assert.Contains(t, p.Itinerary[0].Activities[0], "Oslo")
}

func TestProtectedRoutesNeedValidToken(t *testing.T) {
	now := time.Now()
	s := New(WithClock(func() time.Time { return now }))
	s.AddUser("a@example.com", "pw")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	get := func(auth string) int {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/itinerary", nil)
		require.NoError(t, err)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, get(""))
	assert.Equal(t, http.StatusUnauthorized, get("Bearer not-a-jwt"))
	assert.Equal(t, http.StatusUnauthorized, get("Bearer "+New(WithSecret([]byte("other"))).IssueToken("a@example.com", time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, get("Bearer "+s.IssueToken("ghost@example.com", time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, get("Bearer "+s.IssueToken("a@example.com", -time.Minute)))
	assert.Equal(t, http.StatusOK, get("Bearer "+s.IssueToken("a@example.com", time.Hour)))
}

func TestLoginFormAndInjectedFailure(t *testing.T) {
	s := New()
	s.AddUser("a@example.com", "pw")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	post := func(form url.Values) int {
		resp, err := http.Post(srv.URL+"/token", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	ok := url.Values{"username": {"a@example.com"}, "password": {"pw"}}
	assert.Equal(t, http.StatusOK, post(ok))
	assert.Equal(t, http.StatusUnauthorized, post(url.Values{"username": {"a@example.com"}, "password": {"nope"}}))
	assert.Equal(t, http.StatusUnprocessableEntity, post(url.Values{"username": {"a@example.com"}}))

	s.FailNext(http.MethodPost, "/token", http.StatusServiceUnavailable, "maintenance")
	assert.Equal(t, http.StatusServiceUnavailable, post(ok))
	assert.Equal(t, http.StatusOK, post(ok), "an injected failure applies once")
	assert.Equal(t, 5, s.CallCount(http.MethodPost, "/token"))
}
