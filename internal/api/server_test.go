package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/cortex/internal/blocker"
	"github.com/dgnsrekt/cortex/internal/metrics"
	"github.com/dgnsrekt/cortex/internal/relay"
	"github.com/dgnsrekt/cortex/internal/shell"
)

const knownTabID = "6f1c1e4a-8a9b-4c0e-9d1f-2b3c4d5e6f70"

type stubService struct {
	tabs       []shell.TabInfo
	newTabURL  string
	switched   []int
	closed     []int
	navigated  []string
	refreshErr error
	fullscreen bool
}

func (s *stubService) NewTab(ctx context.Context, url string) (int, error) {
	s.newTabURL = url
	s.tabs = append(s.tabs, shell.TabInfo{ID: len(s.tabs), URL: url})
	return len(s.tabs) - 1, nil
}
func (s *stubService) SwitchTab(ctx context.Context, index int) error {
	s.switched = append(s.switched, index)
	return nil
}
func (s *stubService) CloseTab(ctx context.Context, index int) error {
	s.closed = append(s.closed, index)
	return nil
}
func (s *stubService) ActivateTab(ctx context.Context, id shell.TabID) error {
	if id != knownTabID {
		return &shell.CodedError{Code: shell.CodeTabNotFound, Message: "no tab " + string(id)}
	}
	return nil
}
func (s *stubService) CloseTabByID(ctx context.Context, id shell.TabID) error {
	return s.ActivateTab(ctx, id)
}
func (s *stubService) Tabs(ctx context.Context) ([]shell.TabInfo, error) { return s.tabs, nil }
func (s *stubService) Navigate(ctx context.Context, input string) error {
	s.navigated = append(s.navigated, input)
	return nil
}
func (s *stubService) Back(ctx context.Context) error           { return nil }
func (s *stubService) Forward(ctx context.Context) error        { return nil }
func (s *stubService) Reload(ctx context.Context) error         { return nil }
func (s *stubService) RefreshFilters(ctx context.Context) error { return s.refreshErr }
func (s *stubService) ToggleFullscreen(ctx context.Context) (bool, error) {
	s.fullscreen = !s.fullscreen
	return s.fullscreen, nil
}
func (s *stubService) Fullscreen(ctx context.Context) (bool, error) { return s.fullscreen, nil }

type stubFilters struct{ status blocker.Status }

func (f stubFilters) Status() blocker.Status { return f.status }

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestDocsDarkMode(t *testing.T) {
	h := NewServer(&stubService{}, Options{})
	w := do(t, h, http.MethodGet, "/docs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `data-theme="dark"`) {
		t.Fatalf("docs missing dark theme marker")
	}
}

func TestNavBarPage(t *testing.T) {
	h := NewServer(&stubService{}, Options{})
	w := do(t, h, http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "/api/v1/events") {
		t.Fatalf("nav bar page does not subscribe to events")
	}
}

func TestNewTab(t *testing.T) {
	svc := &stubService{}
	h := NewServer(svc, Options{})

	w := do(t, h, http.MethodPost, "/api/v1/tabs", `{"url":"example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body)
	}
	var out struct {
		Index int `json:"index"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Index != 0 || svc.newTabURL != "example.com" {
		t.Fatalf("index = %d url = %q; want 0 example.com", out.Index, svc.newTabURL)
	}

	w = do(t, h, http.MethodPost, "/api/v1/tabs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status without body = %d, want %d: %s", w.Code, http.StatusOK, w.Body)
	}
	if svc.newTabURL != "" {
		t.Fatalf("url = %q; want empty for home page", svc.newTabURL)
	}
}

func TestListTabs(t *testing.T) {
	svc := &stubService{tabs: []shell.TabInfo{
		{ID: 0, TabID: knownTabID, URL: "https://a.test/", Active: true},
	}}
	h := NewServer(svc, Options{})
	w := do(t, h, http.MethodGet, "/api/v1/tabs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	want := `{"id":0,"tab_id":"` + knownTabID + `","url":"https://a.test/","active":true}`
	if !strings.Contains(w.Body.String(), want) {
		t.Fatalf("body = %s; want to contain %s", w.Body, want)
	}
}

func TestSwitchAndCloseByIndex(t *testing.T) {
	svc := &stubService{}
	h := NewServer(svc, Options{})

	if w := do(t, h, http.MethodPost, "/api/v1/tabs/7/switch", ""); w.Code != http.StatusOK {
		t.Fatalf("switch status = %d, want %d", w.Code, http.StatusOK)
	}
	if w := do(t, h, http.MethodDelete, "/api/v1/tabs/3", ""); w.Code != http.StatusOK {
		t.Fatalf("close status = %d, want %d", w.Code, http.StatusOK)
	}
	if len(svc.switched) != 1 || svc.switched[0] != 7 {
		t.Fatalf("switched = %v; want [7]", svc.switched)
	}
	if len(svc.closed) != 1 || svc.closed[0] != 3 {
		t.Fatalf("closed = %v; want [3]", svc.closed)
	}
}

func TestTabByID(t *testing.T) {
	h := NewServer(&stubService{}, Options{})

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodPost, "/api/v1/tabs/by-id/" + knownTabID + "/activate", http.StatusOK},
		{http.MethodPost, "/api/v1/tabs/by-id/00000000-0000-4000-8000-000000000000/activate", http.StatusNotFound},
		{http.MethodPost, "/api/v1/tabs/by-id/not-a-uuid/activate", http.StatusBadRequest},
		{http.MethodDelete, "/api/v1/tabs/by-id/" + knownTabID, http.StatusOK},
		{http.MethodDelete, "/api/v1/tabs/by-id/00000000-0000-4000-8000-000000000000", http.StatusNotFound},
	}
	for _, tt := range tests {
		if w := do(t, h, tt.method, tt.path, ""); w.Code != tt.want {
			t.Errorf("%s %s = %d; want %d", tt.method, tt.path, w.Code, tt.want)
		}
	}
}

func TestNavigate(t *testing.T) {
	svc := &stubService{}
	h := NewServer(svc, Options{})
	w := do(t, h, http.MethodPost, "/api/v1/navigate", `{"input":"hello world"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if len(svc.navigated) != 1 || svc.navigated[0] != "hello world" {
		t.Fatalf("navigated = %q; want [hello world]", svc.navigated)
	}
	for _, path := range []string{"/api/v1/back", "/api/v1/forward", "/api/v1/reload"} {
		if w := do(t, h, http.MethodPost, path, ""); w.Code != http.StatusOK {
			t.Errorf("POST %s = %d; want %d", path, w.Code, http.StatusOK)
		}
	}
}

func TestToggleFullscreen(t *testing.T) {
	h := NewServer(&stubService{}, Options{})
	w := do(t, h, http.MethodPost, "/api/v1/fullscreen/toggle", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"fullscreen":true`) {
		t.Fatalf("toggle = %d %s; want 200 fullscreen true", w.Code, w.Body)
	}
	w = do(t, h, http.MethodGet, "/api/v1/fullscreen", "")
	if !strings.Contains(w.Body.String(), `"fullscreen":true`) {
		t.Fatalf("get = %s; want fullscreen true", w.Body)
	}
}

func TestFilters(t *testing.T) {
	filters := stubFilters{status: blocker.Status{State: "ready", Rules: 42}}
	svc := &stubService{}
	h := NewServer(svc, Options{Filters: filters})

	w := do(t, h, http.MethodGet, "/api/v1/filters", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"rules":42`) {
		t.Fatalf("filters = %d %s; want 200 with 42 rules", w.Code, w.Body)
	}

	w = do(t, h, http.MethodPost, "/api/v1/filters/refresh", "")
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, want %d", w.Code, http.StatusOK)
	}

	svc.refreshErr = &shell.CodedError{Code: shell.CodeFilterFetchFailed, Message: "filter refresh failed"}
	w = do(t, h, http.MethodPost, "/api/v1/filters/refresh", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("failed refresh status = %d, want %d", w.Code, http.StatusBadGateway)
	}

	w = do(t, h, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"blocker":"ready"`) {
		t.Fatalf("health = %d %s; want ready blocker", w.Code, w.Body)
	}
}

func TestFilterRoutesAbsentWithoutBlocker(t *testing.T) {
	h := NewServer(&stubService{}, Options{})
	if w := do(t, h, http.MethodGet, "/api/v1/filters", ""); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestRateLimit(t *testing.T) {
	h := NewServer(&stubService{}, Options{RateLimit: RateLimitConfig{RequestsPerSecond: 1, Burst: 2}})
	var codes []int
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, h, http.MethodGet, "/api/v1/tabs", "").Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v; want [200 200 429]", codes)
	}
	// The nav bar page is outside the limited group.
	if w := do(t, h, http.MethodGet, "/", ""); w.Code != http.StatusOK {
		t.Fatalf("nav bar status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	h := NewServer(&stubService{}, Options{Metrics: m})
	do(t, h, http.MethodGet, "/api/v1/tabs", "")

	w := do(t, h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `cortex_http_requests_total{method="GET",status="200"} 1`) {
		t.Fatalf("metrics missing request counter:\n%s", w.Body)
	}
}

func TestMapErr(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&shell.CodedError{Code: shell.CodeValidation, Message: "bad"}, http.StatusBadRequest},
		{&shell.CodedError{Code: shell.CodeTabNotFound, Message: "gone"}, http.StatusNotFound},
		{&shell.CodedError{Code: shell.CodeEngineUnavailable, Message: "down"}, http.StatusBadGateway},
		{shell.ErrClosed, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		var se huma.StatusError
		if !errors.As(mapErr(tt.err), &se) {
			t.Fatalf("mapErr(%v) is not a huma.StatusError", tt.err)
		}
		if se.GetStatus() != tt.want {
			t.Errorf("mapErr(%v) status = %d; want %d", tt.err, se.GetStatus(), tt.want)
		}
	}
	if mapErr(nil) != nil {
		t.Fatal("mapErr(nil) != nil")
	}
}

func TestAccessRejectsForeignOrigin(t *testing.T) {
	svc := &stubService{}
	h := NewServer(svc, Options{Access: AccessConfig{Origin: "http://127.0.0.1:8190", Token: "launch-secret"}})

	for _, path := range []string{"/api/v1/fullscreen/toggle", "/api/v1/reload"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Origin", "https://evil.example")
		req.Header.Set(TokenHeader, "launch-secret")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Fatalf("POST %s from foreign origin status = %d; want %d", path, w.Code, http.StatusForbidden)
		}
	}
	if svc.fullscreen {
		t.Fatal("fullscreen toggled by a cross-origin request")
	}
}

func TestAccessRequiresToken(t *testing.T) {
	svc := &stubService{}
	h := NewServer(svc, Options{Access: AccessConfig{Origin: "http://127.0.0.1:8190", Token: "launch-secret"}})

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing", "", "", http.StatusForbidden},
		{"wrong", "guess", "", http.StatusForbidden},
		{"header", "launch-secret", "", http.StatusOK},
		{"query", "", "?token=launch-secret", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tabs"+tt.query, nil)
		req.Header.Set("Origin", "http://127.0.0.1:8190")
		if tt.header != "" {
			req.Header.Set(TokenHeader, tt.header)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Fatalf("%s token: status = %d; want %d", tt.name, w.Code, tt.want)
		}
	}

	// The bar page itself carries no secret and stays reachable.
	if w := do(t, h, http.MethodGet, "/", ""); w.Code != http.StatusOK {
		t.Fatalf("GET / status = %d; want %d", w.Code, http.StatusOK)
	}
}

func TestAccessGuardsEventStream(t *testing.T) {
	h := NewServer(&stubService{}, Options{
		Events: relay.NewBroker(nil),
		Access: AccessConfig{Origin: "http://127.0.0.1:8190", Token: "launch-secret"},
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?token=launch-secret", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("event stream from foreign origin status = %d; want %d", w.Code, http.StatusForbidden)
	}
}
