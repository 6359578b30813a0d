package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/serial9/internal/auth"
	"github.com/danmuck/serial9/internal/service"
	"github.com/danmuck/serial9/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func newTestAdmin(t *testing.T, kind service.TransportKind, start bool) (*Admin, *service.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := service.DefaultConfig()
	cfg.ID = "serial9.test"
	cfg.Transport = kind
	svc := service.New(cfg)
	if start {
		if err := svc.Start(context.Background()); err != nil {
			t.Fatalf("start service: %v", err)
		}
	}
	t.Cleanup(func() { _ = svc.Close() })

	admin := New(svc, Options{
		Node:        cfg.ID,
		CorsOrigins: []string{"http://localhost:3000"},
		Logger:      zerolog.Nop(),
	})
	return admin, svc
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	testlog.Start(t)
	admin, _ := newTestAdmin(t, service.TransportLoopback, true)

	rec := do(t, admin.Handler(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" || body["node"] != "serial9.test" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestTxThenRxOverLoopback(t *testing.T) {
	testlog.Start(t)
	admin, _ := newTestAdmin(t, service.TransportLoopback, true)
	h := admin.Handler()

	if rec := do(t, h, http.MethodPost, "/tx", `{"mode":9,"hex":"41 ff"}`); rec.Code != http.StatusOK {
		t.Fatalf("tx mode 9: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodPost, "/tx", `{"mode":8,"text":"B"}`); rec.Code != http.StatusOK {
		t.Fatalf("tx mode 8: %d %s", rec.Code, rec.Body.String())
	}

	rec := do(t, h, http.MethodGet, "/rx", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("rx: %d", rec.Code)
	}
	var body struct {
		Values []uint16 `json:"values"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode rx: %v", err)
	}
	want := []uint16{0x141, 0x1FF, 0x42}
	if len(body.Values) != len(want) {
		t.Fatalf("unexpected values: %v", body.Values)
	}
	for i := range want {
		if body.Values[i] != want[i] {
			t.Fatalf("value %d: got %#x want %#x", i, body.Values[i], want[i])
		}
	}

	rec = do(t, h, http.MethodGet, "/rx", "")
	if !strings.Contains(rec.Body.String(), `"values":[]`) {
		t.Fatalf("expected empty drain, got %s", rec.Body.String())
	}
}

func TestTxRejectsBadInput(t *testing.T) {
	testlog.Start(t)
	admin, _ := newTestAdmin(t, service.TransportLoopback, true)
	h := admin.Handler()

	cases := []struct {
		name string
		body string
	}{
		{name: "bad hex", body: `{"mode":8,"hex":"zz"}`},
		{name: "bad mode", body: `{"mode":7,"hex":"01"}`},
		{name: "bad json", body: `{"mode":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := do(t, h, http.MethodPost, "/tx", tc.body); rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestNotStartedIsUnavailable(t *testing.T) {
	testlog.Start(t)
	admin, _ := newTestAdmin(t, service.TransportLoopback, false)
	h := admin.Handler()

	if rec := do(t, h, http.MethodPost, "/tx", `{"mode":8,"hex":"01"}`); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("tx: expected 503, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/rx", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("rx: expected 503, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/baud/9600", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("baud: expected 503, got %d", rec.Code)
	}
}

func TestBaudAndStatusOverEmulator(t *testing.T) {
	testlog.Start(t)
	admin, _ := newTestAdmin(t, service.TransportEmulator, true)
	h := admin.Handler()

	if rec := do(t, h, http.MethodPost, "/baud/1234", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown rate: expected 400, got %d", rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/baud/115200", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("baud: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"code":25`) {
		t.Fatalf("unexpected baud body: %s", rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	var st service.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.ID != "serial9.test" || st.Transport != service.TransportEmulator || !st.Attached {
		t.Fatalf("unexpected status: %+v", st)
	}
	if st.State != "idle" || st.Pending != 0 {
		t.Fatalf("unexpected codec view: %+v", st)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	testlog.Start(t)
	admin, _ := newTestAdmin(t, service.TransportLoopback, true)
	h := admin.Handler()

	do(t, h, http.MethodGet, "/health", "")
	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "serial9_http_requests_total") {
		t.Fatalf("expected admin request counter in metrics output")
	}
}

func TestCorsPreflight(t *testing.T) {
	testlog.Start(t)
	admin, _ := newTestAdmin(t, service.TransportLoopback, true)

	req := httptest.NewRequest(http.MethodOptions, "/tx", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	admin.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
}

func TestStreamDeliversBatches(t *testing.T) {
	testlog.Start(t)
	admin, svc := newTestAdmin(t, service.TransportEmulator, true)
	ts := httptest.NewServer(admin.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/rx"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial stream: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for svc.Status().Subscribers == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("stream never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := svc.Send(9, []byte{0x07}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := svc.Poll(); err != nil {
		t.Fatalf("poll: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var batch service.Batch
	if err := conn.ReadJSON(&batch); err != nil {
		t.Fatalf("read batch: %v", err)
	}
	if len(batch.Values) != 1 || batch.Values[0] != 0x107 {
		t.Fatalf("unexpected batch: %+v", batch)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:3000"})
	req := httptest.NewRequest(http.MethodGet, "/ws/rx", nil)
	if !check(req) {
		t.Fatalf("expected request without origin to pass")
	}
	req.Header.Set("Origin", "http://evil.example")
	if check(req) {
		t.Fatalf("expected unknown origin to be rejected")
	}
}

func TestWriteRoutesRequireToken(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	cfg := service.DefaultConfig()
	cfg.Transport = service.TransportLoopback
	svc := service.New(cfg)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	defer svc.Close()
	h := New(svc, Options{Node: cfg.ID, Auth: auth.FromToken("s3cret"), Logger: zerolog.Nop()}).Handler()

	if rec := do(t, h, http.MethodPost, "/tx", `{"mode":8,"hex":"01"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/baud/9600", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: expected 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/tx", bytes.NewBufferString(`{"mode":8,"hex":"01"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: expected 200, got %d", rec.Code)
	}

	if rec := do(t, h, http.MethodGet, "/status", ""); rec.Code != http.StatusOK {
		t.Fatalf("read routes stay open, got %d", rec.Code)
	}
}

func TestResyncRoute(t *testing.T) {
	testlog.Start(t)
	admin, svc := newTestAdmin(t, service.TransportLoopback, true)
	h := admin.Handler()

	if rec := do(t, h, http.MethodPost, "/tx", `{"mode":8,"hex":"41"}`); rec.Code != http.StatusOK {
		t.Fatalf("tx: %d", rec.Code)
	}
	if _, err := svc.Poll(); err != nil {
		t.Fatalf("poll: %v", err)
	}
	rec := do(t, h, http.MethodPost, "/resync", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"state":"idle"`) {
		t.Fatalf("resync: %d %s", rec.Code, rec.Body.String())
	}

	stopped, _ := newTestAdmin(t, service.TransportLoopback, false)
	if rec := do(t, stopped.Handler(), http.MethodPost, "/resync", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("resync before start: expected 503, got %d", rec.Code)
	}
}
