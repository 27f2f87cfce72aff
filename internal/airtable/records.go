package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Table names in the agency bases.
const (
	TableCompanies           = "Companies"
	TableRenderingReports    = "Rendering Reports"
	TableCompetitiveAnalysis = "Competitive Analysis"
	TableBrands              = "Brands"
	TableNewsScores          = "News Scores"
	TableNewsMonitor         = "News Monitor"
)

// LatestNewsLimit is how many scored articles the news feed returns.
const LatestNewsLimit = 4

// Company is a row of the Companies table. Unmapped columns land in Extra.
type Company struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Type         string         `json:"type"`
	Status       string         `json:"status"`
	Website      string         `json:"website,omitempty"`
	Industry     string         `json:"industry,omitempty"`
	ContactEmail string         `json:"contactEmail,omitempty"`
	ContactPhone string         `json:"contactPhone,omitempty"`
	Address      string         `json:"address,omitempty"`
	City         string         `json:"city,omitempty"`
	State        string         `json:"state,omitempty"`
	ZipCode      string         `json:"zipCode,omitempty"`
	Country      string         `json:"country,omitempty"`
	CreatedTime  string         `json:"createdTime"`
	Extra        map[string]any `json:"extra,omitempty"`
}

type RenderingReport struct {
	ID               string         `json:"id"`
	CompanyName      string         `json:"companyName"`
	ClientTraffic    string         `json:"clientTraffic"`
	ClientKeywords   string         `json:"clientKeywords"`
	ClientBacklinks  string         `json:"clientBacklinks"`
	CompetitorScores []any          `json:"competitorScores"`
	CreatedTime      string         `json:"createdTime"`
	Extra            map[string]any `json:"extra,omitempty"`
}

// CompetitiveAnalysis carries the parsed "Raw JSON Response" column. When
// parsing fails the raw text is kept and Error is set.
type CompetitiveAnalysis struct {
	ID                 string          `json:"id"`
	CompanyName        string          `json:"companyName"`
	CompetitorAnalysis json.RawMessage `json:"competitorAnalysis"`
	Error              string          `json:"error,omitempty"`
	RawData            string          `json:"rawData,omitempty"`
	CreatedTime        string          `json:"createdTime"`
	Extra              map[string]any  `json:"extra,omitempty"`
}

type Brand struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Extra map[string]any `json:"extra,omitempty"`
}

// NewsItem is a News Scores row joined with its linked News Monitor
// article. Scores are percentages.
type NewsItem struct {
	ID                   string         `json:"id"`
	Title                string         `json:"title"`
	URL                  string         `json:"url"`
	Category             string         `json:"category"`
	SentimentScore       int            `json:"sentimentScore"`
	RelevanceScore       int            `json:"relevanceScore"`
	SourceAuthorityScore int            `json:"sourceAuthorityScore"`
	EngagementScore      int            `json:"engagementScore"`
	TotalScore           int            `json:"totalScore"`
	WeeklyTrendTag       string         `json:"weeklyTrendTag"`
	RecommendedActions   string         `json:"recommendedActions"`
	ContentType          string         `json:"contentType"`
	CreatedTime          string         `json:"createdTime"`
	ArticleURL           string         `json:"articleUrl"`
	PublicationDate      string         `json:"publicationDate"`
	BrandID              string         `json:"brandId,omitempty"`
	BrandName            string         `json:"brandName,omitempty"`
	Extra                map[string]any `json:"extra,omitempty"`
}

// Source reads the typed tables from the main and news bases.
type Source struct {
	client     *Client
	baseID     string
	newsBaseID string
}

func NewSource(client *Client, baseID, newsBaseID string) *Source {
	if newsBaseID == "" {
		newsBaseID = baseID
	}
	return &Source{client: client, baseID: baseID, newsBaseID: newsBaseID}
}

func (s *Source) Companies(ctx context.Context) ([]Company, error) {
	records, err := s.client.List(ctx, s.baseID, TableCompanies, ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch companies from Airtable: %w", err)
	}
	out := make([]Company, 0, len(records))
	for _, r := range records {
		out = append(out, mapCompany(r))
	}
	return out, nil
}

func mapCompany(r Record) Company {
	f := fields(r.Fields)
	c := Company{
		ID:           r.ID,
		Name:         f.str("Name"),
		Type:         f.str("Type"),
		Status:       f.str("Status"),
		Website:      f.str("Website"),
		Industry:     f.str("Industry"),
		ContactEmail: f.str("Contact Email"),
		ContactPhone: f.str("Contact Phone"),
		Address:      f.str("Address"),
		City:         f.str("City"),
		State:        f.str("State"),
		ZipCode:      f.str("Zip Code"),
		Country:      f.str("Country"),
		CreatedTime:  createdTime(r),
		Extra: f.extra("Name", "Type", "Status", "Website", "Industry", "Contact Email",
			"Contact Phone", "Address", "City", "State", "Zip Code", "Country", "_createdTime"),
	}
	if c.Type == "" {
		c.Type = "client"
	}
	if c.Status == "" {
		c.Status = "active"
	}
	return c
}

func (s *Source) RenderingReports(ctx context.Context) ([]RenderingReport, error) {
	records, err := s.client.List(ctx, s.baseID, TableRenderingReports, ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rendering reports from Airtable: %w", err)
	}
	out := make([]RenderingReport, 0, len(records))
	for _, r := range records {
		out = append(out, mapRenderingReport(r))
	}
	return out, nil
}

func mapRenderingReport(r Record) RenderingReport {
	f := fields(r.Fields)
	return RenderingReport{
		ID:               r.ID,
		CompanyName:      f.str("Company", "company_name", "Company Name"),
		ClientTraffic:    f.str("client_traffic", "Client Traffic"),
		ClientKeywords:   f.str("client_keywords", "Client Keywords"),
		ClientBacklinks:  f.str("client_backlinks", "Client Backlinks"),
		CompetitorScores: competitorScores(f["competitorScores"]),
		CreatedTime:      createdTime(r),
		Extra: f.extra("Company", "company_name", "Company Name", "client_traffic", "Client Traffic",
			"client_keywords", "Client Keywords", "client_backlinks", "Client Backlinks",
			"competitorScores", "_createdTime"),
	}
}

// competitorScores accepts a JSON-encoded string, a list, or a single
// object. Anything unparsable becomes an empty list.
func competitorScores(v any) []any {
	switch t := v.(type) {
	case string:
		var parsed any
		if err := json.Unmarshal([]byte(t), &parsed); err != nil {
			return []any{}
		}
		return competitorScores(parsed)
	case []any:
		return t
	case map[string]any:
		return []any{t}
	default:
		return []any{}
	}
}

func (s *Source) CompetitiveAnalysis(ctx context.Context) ([]CompetitiveAnalysis, error) {
	records, err := s.client.List(ctx, s.baseID, TableCompetitiveAnalysis, ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch competitive analysis from Airtable: %w", err)
	}
	out := make([]CompetitiveAnalysis, 0, len(records))
	for _, r := range records {
		out = append(out, mapCompetitiveAnalysis(r))
	}
	return out, nil
}

func mapCompetitiveAnalysis(r Record) CompetitiveAnalysis {
	f := fields(r.Fields)
	a := CompetitiveAnalysis{
		ID:          r.ID,
		CompanyName: f.str("Company Name"),
		CreatedTime: createdTime(r),
	}
	raw := f.str("Raw JSON Response")
	if raw == "" {
		return a
	}
	if !json.Valid([]byte(raw)) {
		a.Error = "Failed to parse competitive analysis data"
		a.RawData = raw
		return a
	}
	a.CompetitorAnalysis = json.RawMessage(raw)
	a.Extra = f.extra("Raw JSON Response", "Company Name", "_createdTime")
	return a
}

func (s *Source) Brands(ctx context.Context) ([]Brand, error) {
	records, err := s.client.List(ctx, s.newsBaseID, TableBrands, ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch brands from Airtable: %w", err)
	}
	out := make([]Brand, 0, len(records))
	for _, r := range records {
		f := fields(r.Fields)
		out = append(out, Brand{
			ID:    r.ID,
			Name:  f.str("Name"),
			Extra: f.extra("Name", "_createdTime"),
		})
	}
	return out, nil
}

// News returns the latest scored articles, optionally for one brand, with
// article URL and publication date pulled from the linked monitor rows.
func (s *Source) News(ctx context.Context, brandID string) ([]NewsItem, error) {
	opts := ListOptions{
		MaxRecords: LatestNewsLimit,
		Sort:       []SortField{{Field: "_createdTime", Direction: "desc"}},
	}
	if brandID != "" {
		opts.FilterByFormula = BrandFormula(brandID)
	}
	scores, err := s.client.List(ctx, s.newsBaseID, TableNewsScores, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news scores from Airtable: %w", err)
	}

	var monitorIDs []string
	for _, r := range scores {
		monitorIDs = append(monitorIDs, fields(r.Fields).links("News Monitor")...)
	}
	articles := map[string]Record{}
	if len(monitorIDs) > 0 {
		monitors, err := s.client.List(ctx, s.newsBaseID, TableNewsMonitor, ListOptions{
			FilterByFormula: RecordIDFormula(monitorIDs),
			SkipView:        true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch news monitor from Airtable: %w", err)
		}
		for _, m := range monitors {
			articles[m.ID] = m
		}
	}

	out := make([]NewsItem, 0, len(scores))
	for _, r := range scores {
		out = append(out, mapNewsItem(r, articles))
	}
	return out, nil
}

func mapNewsItem(r Record, articles map[string]Record) NewsItem {
	f := fields(r.Fields)
	item := NewsItem{
		ID:                   r.ID,
		Title:                f.str("Title"),
		URL:                  f.str("URL"),
		Category:             f.str("Category"),
		SentimentScore:       percent(f.num("Sentiment Score")),
		RelevanceScore:       percent(f.num("Relevance Score")),
		SourceAuthorityScore: percent(f.num("SourceAuthorityScore")),
		EngagementScore:      percent(f.num("EngagementScore")),
		TotalScore:           percent(f.num("TotalScore")),
		WeeklyTrendTag:       f.str("WeeklyTrendTag"),
		RecommendedActions:   f.str("RecommendedActions"),
		ContentType:          f.str("Content Type"),
		CreatedTime:          createdTime(r),
		BrandName:            f.str("Brand Name"),
		Extra: f.extra("Title", "URL", "Category", "Sentiment Score", "Relevance Score",
			"SourceAuthorityScore", "EngagementScore", "TotalScore", "WeeklyTrendTag",
			"RecommendedActions", "Content Type", "_createdTime", "News Monitor", "Brands", "Brand Name"),
	}
	if brands := f.links("Brands"); len(brands) > 0 {
		item.BrandID = brands[0]
	}
	if links := f.links("News Monitor"); len(links) > 0 {
		if m, ok := articles[links[0]]; ok {
			mf := fields(m.Fields)
			item.ArticleURL = mf.str("Article URL", "URL")
			item.PublicationDate = mf.str("Publication Date", "Publication date", "Created Date", "_createdTime")
		}
	}
	return item
}

// percent turns a 0..1 score into a rounded percentage.
func percent(v float64) int {
	return int(math.Round(v * 100))
}

// BrandFormula matches News Scores rows linked to brandID.
func BrandFormula(brandID string) string {
	id := escapeFormula(brandID)
	return fmt.Sprintf(`OR(FIND("%s", ARRAYJOIN({Brands})), {Brands} = "%s")`, id, id)
}

// RecordIDFormula matches any of ids.
func RecordIDFormula(ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("RECORD_ID() = '%s'", escapeFormula(id))
	}
	return "OR(" + strings.Join(parts, ", ") + ")"
}

var formulaEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `'`, `\'`)

func escapeFormula(s string) string {
	return formulaEscaper.Replace(s)
}
