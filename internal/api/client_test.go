package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/v1", u.String())

	u, err = parseBaseURL("example.com:9000/ignored?x=1#frag")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com:9000/api/v1", u.String())

	_, err = parseBaseURL("http://")
	require.Error(t, err)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := NewClient(server.URL, opts...)
	require.NoError(t, err)
	return c
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClient_AttachesBearerTokenFromSource(t *testing.T) {
	var gotAuth, gotRequestID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		assert.Equal(t, "/api/v1/profile/me", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Envelope[User]{Success: true, Data: User{ID: "u1", Name: "Ana"}})
	}, WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc"})))

	user, err := c.Profile().Me(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.Name)
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.NotEmpty(t, gotRequestID)
}

type failingSource struct{}

func (failingSource) Token() (*oauth2.Token, error) { return nil, errors.New("no token") }

func TestClient_SendsAnonymousWhenSourceFails(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(Page[Table]{})
	}, WithTokenSource(failingSource{}))

	_, err := c.Tables().List(testContext(t), PageParams{})
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClient_ExplicitTokenOverridesSource(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}, WithTokenSource(failingSource{}))

	require.NoError(t, c.Auth().Logout(testContext(t), "old-token"))
	assert.Equal(t, "Bearer old-token", gotAuth)
}

func TestClient_UnauthorizedRunsHandlerBeforeReturning(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"token expired"}`))
	}, WithUnauthorizedHandler(func() { calls.Add(1) }))

	_, err := c.Tables().Get(testContext(t), 3)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, IsUnauthenticated(err))
	assert.Equal(t, "token expired", Message(err, "fallback"))
}

func TestClient_UnauthorizedExplicitTokenSkipsHandler(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, WithUnauthorizedHandler(func() { calls.Add(1) }))

	err := c.Auth().Logout(testContext(t), "old-token")
	require.Error(t, err)
	assert.True(t, IsUnauthenticated(err))
	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_ClassifiesErrors(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		kind      Kind
		message   string
		retryable bool
	}{
		{name: "validation", status: http.StatusBadRequest, body: `{"message":"number already exists"}`, kind: KindClient, message: "number already exists"},
		{name: "forbidden", status: http.StatusForbidden, body: ``, kind: KindForbidden, message: "not authorized"},
		{name: "server", status: http.StatusInternalServerError, body: `oops`, kind: KindServer, retryable: true},
		{name: "error field", status: http.StatusConflict, body: `{"error":"conflict"}`, kind: KindClient, message: "conflict"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := c.Tables().Create(testContext(t), CreateTableInput{Number: "1"})
			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.kind, apiErr.Kind)
			assert.Equal(t, tc.status, apiErr.StatusCode)
			assert.Equal(t, tc.message, apiErr.Message)
			assert.Equal(t, tc.retryable, apiErr.Retryable())
		})
	}
}

func TestClient_TransportFailureHasGenericMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()
	c, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = c.Menu().Categories(testContext(t), PageParams{})
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Equal(t, transportMessage, Message(err, "fallback"))
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Retryable())
}

func TestClient_DecodeFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":`))
	})
	_, err := c.Menu().Item(testContext(t), 1)
	assert.Equal(t, KindDecode, KindOf(err))
}

func TestTables_UpdateStatusAndPagination(t *testing.T) {
	var gotBody UpdateTableStatusInput
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPatch && r.URL.Path == "/api/v1/tables/7/status":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			_ = json.NewEncoder(w).Encode(Envelope[Table]{Success: true, Data: Table{ID: 7, Status: gotBody.Status}})
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/tables":
			gotQuery = r.URL.RawQuery
			_ = json.NewEncoder(w).Encode(Page[Table]{
				Data:       []Table{{ID: 7, Number: "7", Status: TableAvailable}},
				Pagination: Pagination{Page: 2, Limit: 20, Total: 21, TotalPages: 2},
			})
		default:
			http.NotFound(w, r)
		}
	})
	ctx := testContext(t)

	table, err := c.Tables().UpdateStatus(ctx, 7, TableOccupied)
	require.NoError(t, err)
	assert.Equal(t, TableOccupied, gotBody.Status)
	assert.Equal(t, TableOccupied, table.Status)

	page, err := c.Tables().List(ctx, PageParams{Page: 2, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, "limit=20&page=2", gotQuery)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	require.Len(t, page.Data, 1)
}

func TestMenu_SearchAndBulkDelete(t *testing.T) {
	var gotName string
	var gotIDs map[string][]int64
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/menu/categories/search":
			gotName = r.URL.Query().Get("name")
			_ = json.NewEncoder(w).Encode(Envelope[Page[MenuCategory]]{Success: true, Data: Page[MenuCategory]{Data: []MenuCategory{{ID: 1, Name: "Drinks"}}}})
		case "/api/v1/menu/categories/bulk":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotIDs))
			_ = json.NewEncoder(w).Encode(Envelope[BulkDeleteResult]{Success: true, Data: BulkDeleteResult{DeletedCount: 2}})
		default:
			http.NotFound(w, r)
		}
	})
	ctx := testContext(t)

	page, err := c.Menu().SearchCategories(ctx, CategorySearch{Name: " drin "})
	require.NoError(t, err)
	assert.Equal(t, "drin", gotName)
	require.Len(t, page.Data, 1)

	res, err := c.Menu().BulkDeleteCategories(ctx, []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res.DeletedCount)
	assert.Equal(t, []int64{1, 2}, gotIDs["ids"])
}

func TestAuth_LoginRequiresAccessToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Envelope[AuthTokens]{Success: true})
	})
	_, err := c.Auth().Login(testContext(t), Credentials{Email: "a@b.co", Password: "x"})
	assert.Equal(t, KindDecode, KindOf(err))
}

func TestTableStatus_NextCycles(t *testing.T) {
	assert.Equal(t, TableOccupied, TableAvailable.Next())
	assert.Equal(t, TableNeedsCleaning, TableOccupied.Next())
	assert.Equal(t, TableAvailable, TableNeedsCleaning.Next())
	assert.Equal(t, TableAvailable, TableStatus("BOGUS").Next())
	assert.False(t, TableStatus("BOGUS").Valid())
}
