package stats

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danmuck/renderframe/internal/config"
	"github.com/danmuck/renderframe/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
)

func newCollector(t *testing.T, formats ...string) *Collector {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c := Appear(config.StatsConfig{Name: "stats-test", Formats: formats, History: 2})
	c.RegisterRoutes()
	return c
}

func do(c *Collector, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	c.HTTPRouter().ServeHTTP(rr, req)
	return rr
}

func TestTimingBeaconRecorded(t *testing.T) {
	testlog.Start(t)
	c := newCollector(t, "mermaid")

	rr := do(c, http.MethodPost, "/stats/timing/local/mermaid/", `{"constructor":1000,"ready":1400}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d body=%s", rr.Code, rr.Body.String())
	}
	summaries := c.Recorder.Summaries()
	if len(summaries) != 1 || summaries[0].Reports["local"] != 1 {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}
	if got := summaries[0].Recent[0].Timing["ready"]; got != 1400 {
		t.Fatalf("unexpected timing: %v", got)
	}
}

func TestTimingBeaconRejections(t *testing.T) {
	testlog.Start(t)
	c := newCollector(t, "mermaid")

	cases := []struct {
		path string
		body string
		want int
	}{
		{path: "/stats/timing/elsewhere/mermaid/", body: `{"a":1}`, want: http.StatusBadRequest},
		{path: "/stats/timing/local/geojson/", body: `{"a":1}`, want: http.StatusNotFound},
		{path: "/stats/timing/remote/mermaid/", body: `{}`, want: http.StatusBadRequest},
		{path: "/stats/timing/remote/mermaid/", body: `{"a":"soon"}`, want: http.StatusBadRequest},
		{path: "/stats/timing/remote/mermaid/", body: ``, want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		if rr := do(c, http.MethodPost, tc.path, tc.body); rr.Code != tc.want {
			t.Fatalf("%s %q: expected %d, got %d", tc.path, tc.body, tc.want, rr.Code)
		}
	}
	if len(c.Recorder.Summaries()) != 0 {
		t.Fatalf("rejected beacons were recorded")
	}
}

func TestGiveUpBeacon(t *testing.T) {
	testlog.Start(t)
	c := newCollector(t)

	for i := 0; i < 2; i++ {
		if rr := do(c, http.MethodPost, "/stats/mermaid/gave_up", ""); rr.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rr.Code)
		}
	}
	rr := do(c, http.MethodGet, "/stats", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body struct {
		Formats []Summary `json:"formats"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Formats) != 1 || body.Formats[0].GaveUp != 2 {
		t.Fatalf("unexpected summary: %+v", body.Formats)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	testlog.Start(t)
	c := newCollector(t)
	if rr := do(c, http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Fatalf("health: %d", rr.Code)
	}
	do(c, http.MethodPost, "/stats/svg/gave_up", "")
	rr := do(c, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "renderframe_stats_gave_up_total") {
		t.Fatalf("metrics missing give-up counter")
	}
}

func TestRecorderKeepsBoundedHistory(t *testing.T) {
	testlog.Start(t)
	r := NewRecorder(2)
	for i := 1; i <= 3; i++ {
		r.RecordTiming(Report{Origin: "local", Format: "mermaid", Timing: map[string]float64{"n": float64(i)}})
	}
	s := r.Summaries()[0]
	if s.Reports["local"] != 3 || len(s.Recent) != 2 || s.Recent[0].Timing["n"] != 2 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}
