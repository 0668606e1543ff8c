package workbench

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
	"github.com/rcliao/tripplan/internal/gateway"
	"github.com/rcliao/tripplan/internal/model"
	"github.com/rcliao/tripplan/internal/store"
)

const testEmail = "traveler@example.com"

type fakeSession struct {
	token   string
	expired []error
}

func (s *fakeSession) Token() (string, bool) { return s.token, s.token != "" }

func (s *fakeSession) Expire(_ context.Context, cause error) {
	if errors.Is(cause, apperr.ErrUnauthorized) {
		s.expired = append(s.expired, cause)
		s.token = ""
	}
}

type fixture struct {
	api   *fakeapi.Server
	sess  *fakeSession
	cache *store.Itineraries
	wb    *Workbench
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := fakeapi.New()
	api.AddUser(testEmail, "hunter22")
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	gw, err := gateway.New(gateway.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	sess := &fakeSession{token: api.IssueToken(testEmail, time.Hour)}
	cache := store.NewItineraries()
	wb := New(gw, sess, cache, nil)
	t.Cleanup(wb.Close)
	return &fixture{api: api, sess: sess, cache: cache, wb: wb}
}

// entered returns a fixture already in Listing with its first load applied.
func entered(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.wait(t, f.wb.Enter)
	return f
}

func (f *fixture) wait(t *testing.T, start func(context.Context) (*Op, error)) {
	t.Helper()
	ctx := context.Background()
	op, err := start(ctx)
	require.NoError(t, err)
	require.NoError(t, f.wb.Wait(ctx, op))
}

func fillParis(t *testing.T, wb *Workbench) {
	t.Helper()
	require.NoError(t, wb.SetDestination("Paris, France"))
	require.NoError(t, wb.SetStartDate(model.MustParseDate("2024-06-01")))
	require.NoError(t, wb.SetEndDate(model.MustParseDate("2024-06-03")))
	require.NoError(t, wb.SetInterest(0, "museums"))
	require.NoError(t, wb.AddInterest())
	require.NoError(t, wb.SetInterest(1, "food"))
}

func drafting(t *testing.T, wb *Workbench) *Drafting {
	t.Helper()
	d, ok := wb.State().(*Drafting)
	require.True(t, ok, "state is %s", wb.State().Name())
	return d
}

var (
	yes = ConfirmFunc(func(string) bool { return true })
	no  = ConfirmFunc(func(string) bool { return false })
)

func TestEnterLoadsList(t *testing.T) {
	f := newFixture(t)
	f.api.Seed(testEmail, model.Itinerary{Destination: "Lisbon", DaysCount: 1})
	assert.Equal(t, "signed out", f.wb.State().Name())

	ctx := context.Background()
	op, err := f.wb.Enter(ctx)
	require.NoError(t, err)
	assert.True(t, f.wb.Loading())
	require.NoError(t, f.wb.Wait(ctx, op))

	assert.False(t, f.wb.Loading())
	assert.IsType(t, Listing{}, f.wb.State())
	require.Len(t, f.wb.Itineraries(), 1)
	assert.Equal(t, "Lisbon", f.wb.Itineraries()[0].Destination)
}

func TestCreateParis(t *testing.T) {
	f := entered(t)
	require.NoError(t, f.wb.New())
	fillParis(t, f.wb)

	assert.False(t, drafting(t, f.wb).CanSave(), "save needs a preview")
	f.wait(t, f.wb.Generate)

	d := drafting(t, f.wb)
	require.NotNil(t, d.Preview)
	assert.Equal(t, 3, d.Preview.DaysCount)
	assert.Len(t, d.Preview.Itinerary, 3)
	assert.True(t, d.CanSave())
	assert.Equal(t, "Paris, France", d.Draft.Destination, "generation leaves the draft alone")

	f.wait(t, f.wb.Save)

	assert.IsType(t, Listing{}, f.wb.State())
	assert.Equal(t, 1, f.api.CallCount(http.MethodPost, "/api/itinerary"))
	records := f.wb.Itineraries()
	require.Len(t, records, 1)
	assert.Equal(t, "Paris, France", records[0].Destination)
	assert.Equal(t, []string{"museums", "food"}, records[0].Interests)
	assert.Equal(t, 3, records[0].DaysCount)

	saved, ok := f.wb.LastSaved()
	require.True(t, ok)
	assert.Equal(t, records[0].ID, saved.ID)
}

func TestSaveWithoutPreview(t *testing.T) {
	f := entered(t)
	require.NoError(t, f.wb.New())
	fillParis(t, f.wb)

	_, err := f.wb.Save(context.Background())
	assert.ErrorIs(t, err, ErrNoPreview)
	assert.Zero(t, f.api.CallCount(http.MethodPost, "/api/itinerary"))
}

func TestEditUpdatesInPlace(t *testing.T) {
	f := newFixture(t)
	var rec model.Itinerary
	for i := 0; i < 7; i++ {
		rec = f.api.Seed(testEmail, model.Itinerary{
			Destination: "Rome",
			StartDate:   model.MustParseDate("2024-09-01"),
			EndDate:     model.MustParseDate("2024-09-02"),
			DaysCount:   2,
		})
	}
	require.Equal(t, model.ID("7"), rec.ID)
	f.wait(t, f.wb.Enter)

	require.NoError(t, f.wb.Select(rec.ID))
	require.NoError(t, f.wb.Edit(""))
	d := drafting(t, f.wb)
	assert.Equal(t, rec.ID, d.Draft.EditingID)
	assert.Equal(t, []string{""}, d.Draft.Interests, "records without interests get one blank slot")

	require.NoError(t, f.wb.SetDestination("Rome, Italy"))
	f.wait(t, f.wb.Generate)
	f.wait(t, f.wb.Save)

	assert.Equal(t, 1, f.api.CallCount(http.MethodPatch, "/api/itinerary/7"))
	assert.Zero(t, f.api.CallCount(http.MethodPost, "/api/itinerary"))
	assert.Len(t, f.api.Records(testEmail), 7)

	got, ok := f.cache.Get("7")
	require.True(t, ok)
	assert.Equal(t, "Rome, Italy", got.Destination)
}

func TestGenerateWhileBusy(t *testing.T) {
	f := entered(t)
	ctx := context.Background()
	require.NoError(t, f.wb.New())
	fillParis(t, f.wb)

	release := f.api.Block(http.MethodPost, "/api/itinerary/generate")
	defer release()

	op, err := f.wb.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, BusyGenerating, drafting(t, f.wb).Busy)

	_, err = f.wb.Generate(ctx)
	assert.ErrorIs(t, err, ErrBusy)

	release()
	require.NoError(t, f.wb.Wait(ctx, op))
	assert.Equal(t, 1, f.api.CallCount(http.MethodPost, "/api/itinerary/generate"))
	assert.Equal(t, BusyNone, drafting(t, f.wb).Busy)
}

func TestSaveWhileBusy(t *testing.T) {
	f := entered(t)
	ctx := context.Background()
	require.NoError(t, f.wb.New())
	fillParis(t, f.wb)
	f.wait(t, f.wb.Generate)

	release := f.api.Block(http.MethodPost, "/api/itinerary")
	defer release()

	op, err := f.wb.Save(ctx)
	require.NoError(t, err)
	assert.False(t, drafting(t, f.wb).CanSave())

	_, err = f.wb.Save(ctx)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = f.wb.Generate(ctx)
	assert.ErrorIs(t, err, ErrBusy)

	release()
	require.NoError(t, f.wb.Wait(ctx, op))
	assert.Len(t, f.api.Records(testEmail), 1)
}

func TestGenerateFailureClearsPreview(t *testing.T) {
	f := entered(t)
	ctx := context.Background()
	require.NoError(t, f.wb.New())
	fillParis(t, f.wb)
	f.wait(t, f.wb.Generate)
	require.NotNil(t, drafting(t, f.wb).Preview)

	f.api.FailNext(http.MethodPost, "/api/itinerary/generate", http.StatusInternalServerError, "model overloaded")
	op, err := f.wb.Generate(ctx)
	require.NoError(t, err)
	err = f.wb.Wait(ctx, op)
	assert.ErrorIs(t, err, apperr.ErrGenerationFailed)

	d := drafting(t, f.wb)
	assert.Nil(t, d.Preview)
	assert.Equal(t, BusyNone, d.Busy)
	assert.Equal(t, "Paris, France", d.Draft.Destination)
}

func TestInvalidDatesFailLocally(t *testing.T) {
	f := entered(t)
	ctx := context.Background()
	require.NoError(t, f.wb.New())
	require.NoError(t, f.wb.SetDestination("Oslo"))
	require.NoError(t, f.wb.SetStartDate(model.MustParseDate("2024-06-05")))
	require.NoError(t, f.wb.SetEndDate(model.MustParseDate("2024-06-01")))

	op, err := f.wb.Generate(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, f.wb.Wait(ctx, op), apperr.ErrValidation)
	assert.Zero(t, f.api.CallCount(http.MethodPost, "/api/itinerary/generate"))
}

func TestSaveFailureKeepsPreview(t *testing.T) {
	f := entered(t)
	ctx := context.Background()
	require.NoError(t, f.wb.New())
	fillParis(t, f.wb)
	f.wait(t, f.wb.Generate)

	f.api.FailNext(http.MethodPost, "/api/itinerary", http.StatusInternalServerError, "db down")
	op, err := f.wb.Save(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, f.wb.Wait(ctx, op), apperr.ErrUnexpected)

	d := drafting(t, f.wb)
	assert.NotNil(t, d.Preview)
	assert.True(t, d.CanSave(), "the traveler can retry")
	assert.Empty(t, f.wb.Itineraries())
}

func TestCancelDropsLateGenerate(t *testing.T) {
	f := entered(t)
	ctx := context.Background()
	require.NoError(t, f.wb.New())
	fillParis(t, f.wb)

	release := f.api.Block(http.MethodPost, "/api/itinerary/generate")
	defer release()
	op, err := f.wb.Generate(ctx)
	require.NoError(t, err)

	require.NoError(t, f.wb.Cancel())
	release()

	assert.ErrorIs(t, f.wb.Wait(ctx, op), ErrSuperseded)
	assert.IsType(t, Listing{}, f.wb.State())
}

func TestNewDraftIgnoresOldPreview(t *testing.T) {
	f := entered(t)
	ctx := context.Background()
	require.NoError(t, f.wb.New())
	fillParis(t, f.wb)

	release := f.api.Block(http.MethodPost, "/api/itinerary/generate")
	defer release()
	op, err := f.wb.Generate(ctx)
	require.NoError(t, err)

	require.NoError(t, f.wb.Cancel())
	require.NoError(t, f.wb.New())
	release()

	assert.ErrorIs(t, f.wb.Wait(ctx, op), ErrSuperseded)
	d := drafting(t, f.wb)
	assert.Nil(t, d.Preview, "a preview for an abandoned draft never reaches a new one")
	assert.Empty(t, d.Draft.Destination)
}

func TestAbandonedSaveStillRefreshesList(t *testing.T) {
	f := entered(t)
	ctx := context.Background()
	require.NoError(t, f.wb.New())
	fillParis(t, f.wb)
	f.wait(t, f.wb.Generate)

	release := f.api.Block(http.MethodPost, "/api/itinerary")
	defer release()
	op, err := f.wb.Save(ctx)
	require.NoError(t, err)

	require.NoError(t, f.wb.Cancel())
	release()

	assert.ErrorIs(t, f.wb.Wait(ctx, op), ErrSuperseded)
	assert.IsType(t, Listing{}, f.wb.State())
	assert.Len(t, f.wb.Itineraries(), 1)
}

func TestDeleteWhileViewing(t *testing.T) {
	f := newFixture(t)
	rec := f.api.Seed(testEmail, model.Itinerary{Destination: "Kyoto", DaysCount: 1})
	f.wait(t, f.wb.Enter)
	require.NoError(t, f.wb.Select(rec.ID))

	ctx := context.Background()
	var prompt string
	op, err := f.wb.Delete(ctx, "", ConfirmFunc(func(p string) bool {
		prompt = p
		return true
	}))
	require.NoError(t, err)
	assert.Contains(t, prompt, "Kyoto")
	assert.True(t, f.wb.Deleting(rec.ID))

	require.NoError(t, f.wb.Wait(ctx, op))
	assert.False(t, f.wb.Deleting(rec.ID))
	assert.IsType(t, Listing{}, f.wb.State())
	assert.Empty(t, f.wb.Itineraries())
}

func TestDeleteOtherWhileViewing(t *testing.T) {
	f := newFixture(t)
	kyoto := f.api.Seed(testEmail, model.Itinerary{Destination: "Kyoto", DaysCount: 1})
	lima := f.api.Seed(testEmail, model.Itinerary{Destination: "Lima", DaysCount: 1})
	f.wait(t, f.wb.Enter)
	require.NoError(t, f.wb.Select(kyoto.ID))

	ctx := context.Background()
	op, err := f.wb.Delete(ctx, lima.ID, yes)
	require.NoError(t, err)
	require.NoError(t, f.wb.Wait(ctx, op))

	v, ok := f.wb.State().(Viewing)
	require.True(t, ok, "state is %s", f.wb.State().Name())
	assert.Equal(t, kyoto.ID, v.Record.ID)
	require.Len(t, f.wb.Itineraries(), 1)
	assert.Equal(t, kyoto.ID, f.wb.Itineraries()[0].ID)
}

func TestDeleteDeclined(t *testing.T) {
	f := newFixture(t)
	rec := f.api.Seed(testEmail, model.Itinerary{Destination: "Kyoto", DaysCount: 1})
	f.wait(t, f.wb.Enter)

	op, err := f.wb.Delete(context.Background(), rec.ID, no)
	require.NoError(t, err)
	assert.Nil(t, op)

	op, err = f.wb.Delete(context.Background(), rec.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, op, "no confirmer means no consent")

	assert.Zero(t, f.api.CallCount(http.MethodDelete, "/api/itinerary/"+rec.ID.String()))
	assert.Len(t, f.wb.Itineraries(), 1)
}

func TestDeleteMissing(t *testing.T) {
	f := entered(t)
	ctx := context.Background()

	op, err := f.wb.Delete(ctx, "99", yes)
	require.NoError(t, err)
	assert.ErrorIs(t, f.wb.Wait(ctx, op), apperr.ErrNotFound)
	assert.False(t, f.wb.Deleting("99"))
}

func TestUnauthorizedSignsOut(t *testing.T) {
	f := entered(t)
	ctx := context.Background()
	require.NoError(t, f.wb.New())
	fillParis(t, f.wb)

	f.api.FailNext(http.MethodPost, "/api/itinerary/generate", http.StatusUnauthorized, "Could not validate credentials")
	op, err := f.wb.Generate(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, f.wb.Wait(ctx, op), apperr.ErrUnauthorized)

	assert.IsType(t, SignedOut{}, f.wb.State())
	assert.Len(t, f.sess.expired, 1)
	assert.Empty(t, f.wb.Itineraries())

	err = f.wb.New()
	var te *TransitionError
	assert.ErrorAs(t, err, &te)
	_, err = f.wb.Reload(ctx)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestSignOutDropsInFlight(t *testing.T) {
	f := newFixture(t)
	f.api.Seed(testEmail, model.Itinerary{Destination: "Lima", DaysCount: 1})
	ctx := context.Background()

	release := f.api.Block(http.MethodGet, "/api/itinerary")
	defer release()
	op, err := f.wb.Enter(ctx)
	require.NoError(t, err)

	f.wb.SignOut()
	release()

	assert.ErrorIs(t, f.wb.Wait(ctx, op), ErrSuperseded)
	assert.IsType(t, SignedOut{}, f.wb.State())
	assert.Empty(t, f.wb.Itineraries())
}

func TestTransitionsOutsideTheirState(t *testing.T) {
	f := entered(t)
	ctx := context.Background()

	var te *TransitionError
	_, err := f.wb.Generate(ctx)
	assert.ErrorAs(t, err, &te)
	assert.ErrorAs(t, f.wb.CloseView(), &te)
	assert.ErrorAs(t, f.wb.Cancel(), &te)
	assert.ErrorAs(t, f.wb.SetDestination("x"), &te)
	assert.ErrorIs(t, f.wb.Select("42"), apperr.ErrNotFound)

	require.NoError(t, f.wb.New())
	assert.ErrorAs(t, f.wb.New(), &te)
	_, err = f.wb.Delete(ctx, "1", yes)
	assert.ErrorAs(t, err, &te)
}

func TestStateIsSnapshot(t *testing.T) {
	f := entered(t)
	require.NoError(t, f.wb.New())

	snap := drafting(t, f.wb)
	snap.Draft.Destination = "Nowhere"
	snap.Draft.Interests[0] = "mutated"

	d := drafting(t, f.wb)
	assert.Empty(t, d.Draft.Destination)
	assert.Equal(t, []string{""}, d.Draft.Interests)
}

func TestCompletionsChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	op, err := f.wb.Enter(ctx)
	require.NoError(t, err)

	select {
	case c := <-f.wb.Completions():
		assert.Same(t, op, c.Op())
		require.NoError(t, f.wb.Apply(ctx, c))
	case <-time.After(5 * time.Second):
		t.Fatal("no completion")
	}
	assert.False(t, f.wb.Loading())
}
