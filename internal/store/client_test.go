package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/meritview/cutoffd/internal/domain"
)

const testToken = "tok-123"

// newStoreStub serves the admin auth endpoint plus a canned collection list
// response, recording the last query request it saw.
func newStoreStub(t *testing.T, listStatus int, listBody string) (*httptest.Server, *atomic.Int64, *atomic.Pointer[http.Request]) {
	t.Helper()
	authCalls := &atomic.Int64{}
	lastQuery := &atomic.Pointer[http.Request]{}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/admins/auth-with-password", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		authCalls.Add(1)
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("decode credentials: %v", err)
		}
		if creds["identity"] != "admin@example.com" || creds["password"] != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": testToken})
	})
	mux.HandleFunc("/api/collections/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		lastQuery.Store(r.Clone(context.Background()))
		w.WriteHeader(listStatus)
		_, _ = w.Write([]byte(listBody))
	})
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, authCalls, lastQuery
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:  baseURL,
		Identity: "admin@example.com",
		Password: "secret",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestClient_Query(t *testing.T) {
	body := `{
		"page": 2, "perPage": 50, "totalItems": 120, "totalPages": 3,
		"items": [{
			"id": "r1",
			"college_name": "Pune Institute",
			"course_name": "Computer Engineering",
			"cutoff_score": "92.5000000",
			"last_rank": "1043",
			"total_admitted": 60
		}]
	}`
	srv, _, lastQuery := newStoreStub(t, http.StatusOK, body)
	c := newTestClient(t, srv.URL)

	page, err := c.Query(context.Background(), "cutoffs", `category = "OPEN"`, "-cutoff_score", 2, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if page.TotalItems != 120 || page.TotalPages != 3 || page.Page != 2 || page.PerPage != 50 {
		t.Errorf("unexpected pagination envelope: %+v", page)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(page.Items))
	}
	want := domain.CutoffRecord{
		ID:            "r1",
		CollegeName:   "Pune Institute",
		CourseName:    "Computer Engineering",
		CutoffScore:   "92.5000000",
		LastRank:      "1043",
		TotalAdmitted: 60,
	}
	if page.Items[0] != want {
		t.Errorf("unexpected record: %+v", page.Items[0])
	}

	req := lastQuery.Load()
	if req == nil {
		t.Fatal("store never saw the query")
	}
	q := req.URL.Query()
	if q.Get("filter") != `category = "OPEN"` {
		t.Errorf("unexpected filter param: %q", q.Get("filter"))
	}
	if q.Get("sort") != "-cutoff_score" {
		t.Errorf("unexpected sort param: %q", q.Get("sort"))
	}
	if q.Get("page") != "2" || q.Get("perPage") != "50" {
		t.Errorf("unexpected pagination params: page=%q perPage=%q", q.Get("page"), q.Get("perPage"))
	}
	if got := req.Header.Get("Authorization"); got != testToken {
		t.Errorf("expected bearer token on query, got %q", got)
	}
}

func TestClient_Query_OmitsEmptyFilterAndSort(t *testing.T) {
	srv, _, lastQuery := newStoreStub(t, http.StatusOK, `{"page":1,"perPage":25,"items":[]}`)
	c := newTestClient(t, srv.URL)

	if _, err := c.Query(context.Background(), "cutoffs", "", "", 1, 25); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q := lastQuery.Load().URL.Query()
	if q.Has("filter") || q.Has("sort") {
		t.Errorf("empty filter/sort must not be sent, got %v", q)
	}
}

func TestClient_Query_TokenReused(t *testing.T) {
	srv, authCalls, _ := newStoreStub(t, http.StatusOK, `{"page":1,"perPage":25,"items":[]}`)
	c := newTestClient(t, srv.URL)

	for i := 0; i < 3; i++ {
		if _, err := c.Query(context.Background(), "cutoffs", "", "", 1, 25); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := authCalls.Load(); got != 1 {
		t.Errorf("expected a single auth round trip, got %d", got)
	}
}

func TestClient_Query_BackendError(t *testing.T) {
	srv, _, _ := newStoreStub(t, http.StatusBadRequest, `{"message":"invalid filter"}`)
	c := newTestClient(t, srv.URL)

	_, err := c.Query(context.Background(), "cutoffs", "broken ==", "", 1, 25)
	if err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestClient_EnsureAuthenticated_WrapsFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/admins/auth-with-password", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)
	err := c.EnsureAuthenticated(context.Background())
	if !errors.Is(err, domain.ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}
}

func TestClient_Ping(t *testing.T) {
	srv, _, _ := newStoreStub(t, http.StatusOK, "{}")
	c := newTestClient(t, srv.URL)

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}
}

func TestClient_WaitForReady_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)
	if err := c.WaitForReady(context.Background(), 300*time.Millisecond); err == nil {
		t.Fatal("expected timeout waiting for unhealthy store")
	}
}
