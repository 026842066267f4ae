package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atatek/internal/platform/cache"
	"atatek/internal/profile/models"
	"atatek/internal/profile/service"
	"atatek/internal/profile/store"
	"atatek/pkg/testutil"
)

type lastCode struct{ code string }

func (l *lastCode) Send(_ context.Context, _ string, code string) error {
	l.code = code
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, *lastCode) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	st := store.NewInMemory()
	st.Seed(models.Profile{ID: 7, FirstName: "Aigerim", LastName: "Sadykova", Phone: "77011234567"})
	st.Seed(models.Profile{ID: 8, FirstName: "Bolat", LastName: "Omarov", Phone: "77019876543"})
	sender := &lastCode{}
	svc := service.New(st, cache.New(client), service.WithCodeSender(sender))

	r := chi.NewRouter()
	New(svc, slog.New(slog.DiscardHandler)).Register(r)
	return r, sender
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.DoRequest(h, testutil.WithUser(testutil.NewRequest(t, method, target, body), 7))
}

func TestGetProfiles(t *testing.T) {
	h, _ := newTestRouter(t)

	w := do(t, h, http.MethodGet, "/profile/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	me := testutil.UnmarshalResponse[models.Profile](t, w)
	assert.Equal(t, int64(7), me.ID)

	w = do(t, h, http.MethodGet, "/profile/8", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"first_name":"Bolat"`)

	testutil.AssertStatusAndError(t, do(t, h, http.MethodGet, "/profile/404", ""), http.StatusNotFound, "not_found")
	testutil.AssertStatusAndError(t, do(t, h, http.MethodGet, "/profile/abc", ""), http.StatusBadRequest, "bad_request")
}

func TestUpdateName(t *testing.T) {
	h, _ := newTestRouter(t)

	w := do(t, h, http.MethodPatch, "/profile/me", `{"first_name":"Dana","last_name":"Omarova"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"first_name":"Dana"`)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPatch, "/profile/me", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPatch, "/profile/me", `{"first_name":""}`).Code)
}

func TestAssignPage(t *testing.T) {
	h, _ := newTestRouter(t)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodPut, "/profile/me/page", `{"page_id":3}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/profile/me/page", `{"page_id":0}`).Code)

	w := do(t, h, http.MethodGet, "/profile/me", "")
	assert.Contains(t, w.Body.String(), `"page_id":3`)
}

func TestVerificationFlow(t *testing.T) {
	h, sender := newTestRouter(t)

	testutil.Given(t, "a code was requested", func(t *testing.T) {
		testutil.AssertStatus(t, do(t, h, http.MethodPost, "/profile/me/code", ""), http.StatusAccepted)
		require.NotEmpty(t, sender.code)

		testutil.When(t, "a wrong code is submitted", func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/profile/me/verify", `{"code":"not-it"}`)
			testutil.Then(t, "the profile stays unverified", func(t *testing.T) {
				testutil.AssertStatus(t, w, http.StatusOK)
				assert.JSONEq(t, `{"verified":false}`, w.Body.String())
			})
		})

		testutil.When(t, "the delivered code is submitted", func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/profile/me/verify", `{"code":"`+sender.code+`"}`)
			testutil.Then(t, "the profile is verified", func(t *testing.T) {
				testutil.AssertStatus(t, w, http.StatusOK)
				assert.JSONEq(t, `{"verified":true}`, w.Body.String())
				me := testutil.UnmarshalResponse[models.Profile](t, do(t, h, http.MethodGet, "/profile/me", ""))
				assert.True(t, me.IsVerified)
			})
		})
	})

	testutil.AssertStatusAndError(t, do(t, h, http.MethodPost, "/profile/me/verify", `{}`), http.StatusBadRequest, "bad_request")
}
