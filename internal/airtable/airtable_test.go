package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct{ calls atomic.Int32 }

func (f *fakeToken) Token(context.Context) (string, error) {
	n := f.calls.Add(1)
	return "tok-" + string(rune('0'+n)), nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_PaginatesAndSendsQuery(t *testing.T) {
	var auths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/app1/Rendering Reports", r.URL.Path)
		assert.Equal(t, "Grid view", r.URL.Query().Get("view"))
		auths = append(auths, r.Header.Get("Authorization"))
		if r.URL.Query().Get("offset") == "" {
			writeJSON(w, map[string]any{
				"records": []map[string]any{{"id": "rec1", "fields": map[string]any{"Company": "Acme"}}},
				"offset":  "page2",
			})
			return
		}
		assert.Equal(t, "page2", r.URL.Query().Get("offset"))
		writeJSON(w, map[string]any{
			"records": []map[string]any{{"id": "rec2", "fields": map[string]any{"Company": "Globex"}}},
		})
	}))
	defer srv.Close()

	tokens := &fakeToken{}
	c := NewClient(srv.URL, tokens, WithDefaultView("Grid view"))
	records, err := c.List(context.Background(), "app1", TableRenderingReports, ListOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "rec2", records[1].ID)
	assert.Equal(t, []string{"Bearer tok-1", "Bearer tok-2"}, auths, "token is fetched per request")
}

func TestClient_MaxRecordsSortAndFormula(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("maxRecords"))
		assert.Equal(t, "_createdTime", q.Get("sort[0][field]"))
		assert.Equal(t, "desc", q.Get("sort[0][direction]"))
		assert.Equal(t, `{Brands} = "x"`, q.Get("filterByFormula"))
		assert.Empty(t, q.Get("view"))
		writeJSON(w, map[string]any{"records": []map[string]any{{"id": "a"}, {"id": "b"}, {"id": "c"}}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("k"))
	records, err := c.List(context.Background(), "app", "T", ListOptions{
		MaxRecords:      2,
		Sort:            []SortField{{Field: "_createdTime", Direction: "desc"}},
		FilterByFormula: `{Brands} = "x"`,
	})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"type":"INVALID_PERMISSIONS","message":"nope"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("k"), WithRetries(0, time.Millisecond))
	_, err := c.List(context.Background(), "app", "T", ListOptions{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "INVALID_PERMISSIONS", apiErr.Type)
}

func TestStaticToken_Empty(t *testing.T) {
	_, err := StaticToken("").Token(context.Background())
	assert.Error(t, err)
}

type countingLimiter struct{ keys []string }

func (l *countingLimiter) Wait(_ context.Context, key string) error {
	l.keys = append(l.keys, key)
	return nil
}

func TestSource_NewsJoinsMonitorRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/news/News Scores":
			assert.Equal(t, "4", r.URL.Query().Get("maxRecords"))
			assert.Contains(t, r.URL.Query().Get("filterByFormula"), `FIND("recBrand", ARRAYJOIN({Brands}))`)
			writeJSON(w, map[string]any{"records": []map[string]any{{
				"id":          "recScore",
				"createdTime": "2026-01-02T00:00:00.000Z",
				"fields": map[string]any{
					"Title":           "Launch",
					"Sentiment Score": 0.756,
					"TotalScore":      "0.5",
					"News Monitor":    []any{"recMon"},
					"Brands":          []any{"recBrand"},
					"Reach":           1200,
				},
			}}})
		case "/news/News Monitor":
			assert.Equal(t, "OR(RECORD_ID() = 'recMon')", r.URL.Query().Get("filterByFormula"))
			writeJSON(w, map[string]any{"records": []map[string]any{{
				"id":     "recMon",
				"fields": map[string]any{"URL": "https://example.com/a", "Publication date": "2026-01-01"},
			}}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	limiter := &countingLimiter{}
	src := NewSource(NewClient(srv.URL, StaticToken("k"), WithLimiter(limiter)), "main", "news")
	items, err := src.News(context.Background(), "recBrand")
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "Launch", item.Title)
	assert.Equal(t, 76, item.SentimentScore)
	assert.Equal(t, 50, item.TotalScore)
	assert.Equal(t, "https://example.com/a", item.ArticleURL)
	assert.Equal(t, "2026-01-01", item.PublicationDate)
	assert.Equal(t, "recBrand", item.BrandID)
	assert.Equal(t, "2026-01-02T00:00:00.000Z", item.CreatedTime)
	assert.Equal(t, map[string]any{"Reach": float64(1200)}, item.Extra)
	assert.Equal(t, []string{"news", "news"}, limiter.keys)
}

func TestMapRenderingReport(t *testing.T) {
	r := mapRenderingReport(Record{ID: "rec1", Fields: map[string]any{
		"Company Name":     "Units Lab",
		"client_traffic":   float64(1500),
		"competitorScores": `[{"name":"Rival","score":80}]`,
		"Notes":            "keep",
	}})
	assert.Equal(t, "Units Lab", r.CompanyName)
	assert.Equal(t, "1500", r.ClientTraffic)
	require.Len(t, r.CompetitorScores, 1)
	assert.Equal(t, map[string]any{"Notes": "keep"}, r.Extra)

	bad := mapRenderingReport(Record{ID: "rec2", Fields: map[string]any{"competitorScores": "not json"}})
	assert.Empty(t, bad.CompetitorScores)
	assert.Nil(t, bad.Extra)

	single := mapRenderingReport(Record{ID: "rec3", Fields: map[string]any{"competitorScores": map[string]any{"name": "X"}}})
	assert.Len(t, single.CompetitorScores, 1)
}

func TestMapCompetitiveAnalysis(t *testing.T) {
	ok := mapCompetitiveAnalysis(Record{ID: "a", Fields: map[string]any{
		"Company Name":      "Acme",
		"Raw JSON Response": `{"competitors":[]}`,
		"Owner":             "sam",
	}})
	assert.JSONEq(t, `{"competitors":[]}`, string(ok.CompetitorAnalysis))
	assert.Equal(t, map[string]any{"Owner": "sam"}, ok.Extra)

	broken := mapCompetitiveAnalysis(Record{ID: "b", Fields: map[string]any{"Raw JSON Response": "{oops"}})
	assert.Nil(t, broken.CompetitorAnalysis)
	assert.Equal(t, "{oops", broken.RawData)
	assert.NotEmpty(t, broken.Error)

	empty := mapCompetitiveAnalysis(Record{ID: "c"})
	assert.Nil(t, empty.CompetitorAnalysis)
	assert.Empty(t, empty.Error)
}

func TestMapCompanyDefaults(t *testing.T) {
	c := mapCompany(Record{ID: "rec", Fields: map[string]any{"Name": "Acme", "Zip Code": "12345", "Tier": "gold"}})
	assert.Equal(t, "client", c.Type)
	assert.Equal(t, "active", c.Status)
	assert.Equal(t, "12345", c.ZipCode)
	assert.Equal(t, map[string]any{"Tier": "gold"}, c.Extra)
}

func TestMatchCompanyName(t *testing.T) {
	cases := []struct {
		got, want string
		match     bool
	}{
		{"Units Lab", "units lab", true},
		{"Units-Lab!", "Units Lab", true},
		{"UnitsLab", "Units Lab", true},
		{"Units Lab AI", "Units Lab", true},
		{"The Acme Widget Company", "Acme Widgets Inc", true},
		{"Globex", "Initech", false},
		{"ab", "cd", false},
		{"", "Acme", false},
		{"!!!", "Acme", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.match, MatchCompanyName(tc.got, tc.want), "%q vs %q", tc.got, tc.want)
	}
}

func TestSameCompany(t *testing.T) {
	cases := []struct {
		got, want string
		same      bool
	}{
		{"Units Lab", "units lab", true},
		{"Units-Lab!", "Units Lab", true},
		{"UnitsLab", "Units Lab", true},
		{"Units Lab AI", "Units Lab", false},
		{"Units Global Holdings", "Units Lab", false},
		{"Lab Partners Corp", "Units Lab", false},
		{"Costco", "Co", false},
		{"Co", "Costco", false},
		{"", "", false},
		{"!!!", "???", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.same, SameCompany(tc.got, tc.want), "%q vs %q", tc.got, tc.want)
	}
}

func TestEscapeFormula(t *testing.T) {
	assert.Equal(t, `OR(FIND("a\"b", ARRAYJOIN({Brands})), {Brands} = "a\"b")`, BrandFormula(`a"b`))
}
