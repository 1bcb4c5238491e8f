package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/HorusvsSet08/EspHorusWeb3/internal/telemetry"
)

type testEnv struct {
	mapper *telemetry.Mapper
	board  *Board
	mux    *http.ServeMux
}

func newTestEnv(t *testing.T, api *APIClient) *testEnv {
	t.Helper()

	reg, err := telemetry.NewRegistry(telemetry.DefaultChannels(""))
	if err != nil {
		t.Fatal(err)
	}
	logger := quietLogger()
	hub := NewHub(logger, nil)
	board := NewBoard(reg.Targets(), hub)
	mapper := telemetry.NewMapper(reg, board, logger)

	h, err := NewWebHandler(mapper, board, hub, &MemoryThemeStore{}, api, logger)
	if err != nil {
		t.Fatalf("NewWebHandler: %v", err)
	}
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return &testEnv{mapper: mapper, board: board, mux: mux}
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

// textByID returns the text content of the element with the given id.
func textByID(n *html.Node, id string) string {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				var sb strings.Builder
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.TextNode {
						sb.WriteString(c.Data)
					}
				}
				return strings.TrimSpace(sb.String())
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if s := textByID(c, id); s != "" {
			return s
		}
	}
	return ""
}

func TestHandleIndex(t *testing.T) {
	env := newTestEnv(t, nil)
	env.mapper.OnMessage("horus/vvb/temperatura", []byte("21.3"))

	rec := env.do(http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	for id, want := range map[string]string{
		"temp":   "21.3 °C",
		"wind":   "--",
		"status": "disconnected",
	} {
		if got := textByID(doc, id); got != want {
			t.Errorf("#%s = %q, want %q", id, got, want)
		}
	}
	for _, want := range []string{`<body class="light-mode">`, `class="particles"`} {
		if !strings.Contains(body, want) {
			t.Errorf("index page lacks %q", want)
		}
	}
	if strings.Contains(body, "HORUS_THEME") {
		t.Error("index page emits the unused HORUS_THEME global")
	}
	if strings.Contains(body, "/channel/temp") {
		t.Error("history links rendered without home-api")
	}
}

func TestHandleStatus(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/api/status", "")
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode %s: %v", rec.Body, err)
	}
	if got["status"] != "disconnected" || got["last_message"] != nil || got["staleness_ms"] != nil {
		t.Errorf("status = %v", got)
	}
	if got["clients"] != float64(0) {
		t.Errorf("clients = %v", got["clients"])
	}

	env.mapper.OnMessage("horus/vvb/humedad", []byte("55"))
	rec = env.do(http.MethodGet, "/api/status", "")
	got = nil
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got["last_message"] == nil || got["staleness_ms"] == nil {
		t.Errorf("after a message status = %v", got)
	}
}

func TestHandleValues(t *testing.T) {
	env := newTestEnv(t, nil)
	env.mapper.OnMessage("horus/vvb/wind_speed", []byte("12"))

	var got map[string]string
	json.Unmarshal(env.do(http.MethodGet, "/api/values", "").Body.Bytes(), &got)
	if got["wind"] != "12 km/h" || len(got) != 1 {
		t.Errorf("values = %v", got)
	}
}

func TestThemeToggle(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, body := range []string{"", "{", `{"mode":"dark"}`} {
		if rec := env.do(http.MethodPut, "/api/theme", body); rec.Code != http.StatusBadRequest {
			t.Errorf("PUT %q = %d, want 400", body, rec.Code)
		}
	}

	rec := env.do(http.MethodPut, "/api/theme", `{"dark":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT dark = %d", rec.Code)
	}
	var view ThemeView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if !view.Dark || view.Mode != "dark-mode" || view.Effects.Kind != "rain" || len(view.Effects.Elements) != raindropCount {
		t.Errorf("view = %s %s %d", view.Mode, view.Effects.Kind, len(view.Effects.Elements))
	}

	if body := env.do(http.MethodGet, "/", "").Body.String(); !strings.Contains(body, `<body class="dark-mode">`) {
		t.Error("page does not use the saved theme")
	}
}

func TestHandleDetail(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"t":"2026-01-02T10:00:00Z","v":21.5}]`))
	}))
	defer api.Close()

	if rec := newTestEnv(t, nil).do(http.MethodGet, "/channel/temp", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("without home-api = %d, want 503", rec.Code)
	}

	env := newTestEnv(t, NewAPIClient(api.URL))
	tests := []struct {
		target string
		code   int
	}{
		{"/channel/temp", http.StatusOK},
		{"/channel/temp?range=6h", http.StatusOK},
		{"/channel/temp?range=yesterday", http.StatusBadRequest},
		{"/channel/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		if rec := env.do(http.MethodGet, tt.target, ""); rec.Code != tt.code {
			t.Errorf("GET %s = %d, want %d", tt.target, rec.Code, tt.code)
		}
	}

	body := env.do(http.MethodGet, "/channel/temp", "").Body.String()
	if !strings.Contains(body, `id="chart"`) || !strings.Contains(body, "21.5") {
		t.Error("detail page lacks the chart data")
	}
	if !strings.Contains(body, `class="active">24h`) {
		t.Error("default range is not highlighted")
	}
}

func TestHealthAndStatic(t *testing.T) {
	env := newTestEnv(t, nil)

	if rec := env.do(http.MethodGet, "/health", ""); rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("health = %d %q", rec.Code, rec.Body)
	}
	if rec := env.do(http.MethodGet, "/static/app.js", ""); rec.Code != http.StatusOK {
		t.Errorf("static = %d", rec.Code)
	}
}
