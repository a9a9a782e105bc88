// Package vertexsearch queries a Vertex AI Search (Discovery Engine) app over REST.
package vertexsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

type Config struct {
	Project  string        `envconfig:"PROJECT" split_words:"true" required:"true"`
	Location string        `envconfig:"LOCATION" split_words:"true" default:"global"`
	EngineID string        `envconfig:"ENGINE_ID" split_words:"true" required:"true"`
	PageSize int           `envconfig:"PAGE_SIZE" split_words:"true" default:"5"`
	Endpoint string        `envconfig:"ENDPOINT" split_words:"true"`
	Timeout  time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Project) == "" {
		return errors.New("search project is required")
	}
	if strings.TrimSpace(c.EngineID) == "" {
		return errors.New("search engine id is required")
	}
	return nil
}

func (c Config) searchURL() string {
	location := strings.TrimSpace(c.Location)
	if location == "" {
		location = "global"
	}
	base := strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")
	if base == "" {
		host := "discoveryengine.googleapis.com"
		if location != "global" {
			host = location + "-" + host
		}
		base = "https://" + host
	}
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s/collections/default_collection/engines/%s/servingConfigs/default_search:search",
		base, c.Project, location, c.EngineID)
}

type Result struct {
	Title    string
	Link     string
	Snippets []string
	Image    string
}

type Response struct {
	Summary string
	Results []Result
}

type Client struct {
	httpClient *http.Client
	url        string
	pageSize   int
}

// NewClient authenticates with application default credentials.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hc, err := google.DefaultClient(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("vertexsearch: default credentials: %w", err)
	}
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}
	return NewClientWith(hc, cfg), nil
}

func NewClientWith(hc *http.Client, cfg Config) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 5
	}
	return &Client{httpClient: hc, url: cfg.searchURL(), pageSize: pageSize}
}

type searchRequest struct {
	Query             string            `json:"query"`
	PageSize          int               `json:"pageSize"`
	ContentSearchSpec contentSearchSpec `json:"contentSearchSpec"`
}

type contentSearchSpec struct {
	SnippetSpec struct {
		ReturnSnippet bool `json:"returnSnippet"`
	} `json:"snippetSpec"`
	SummarySpec struct {
		SummaryResultCount int  `json:"summaryResultCount"`
		IncludeCitations   bool `json:"includeCitations"`
		IgnoreAdversarial  bool `json:"ignoreAdversarialQuery"`
	} `json:"summarySpec"`
}

type searchResponse struct {
	Results []struct {
		Document struct {
			DerivedStructData struct {
				Title       string `json:"title"`
				Link        string `json:"link"`
				ContextLink string `json:"contextLink"`
				Snippets    []struct {
					Snippet string `json:"snippet"`
				} `json:"snippets"`
				Pagemap struct {
					CSEImage []struct {
						Src string `json:"src"`
					} `json:"cse_image"`
				} `json:"pagemap"`
			} `json:"derivedStructData"`
		} `json:"document"`
	} `json:"results"`
	Summary struct {
		SummaryText string `json:"summaryText"`
	} `json:"summary"`
}

func (c *Client) Search(ctx context.Context, query string) (Response, error) {
	reqBody := searchRequest{Query: query, PageSize: c.pageSize}
	reqBody.ContentSearchSpec.SnippetSpec.ReturnSnippet = true
	reqBody.ContentSearchSpec.SummarySpec.SummaryResultCount = c.pageSize
	reqBody.ContentSearchSpec.SummarySpec.IgnoreAdversarial = true

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Response{}, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("execute search request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Response{}, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Response{}, fmt.Errorf("search http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{}, fmt.Errorf("decode search response: %w", err)
	}

	out := Response{Summary: strings.TrimSpace(parsed.Summary.SummaryText)}
	for _, r := range parsed.Results {
		d := r.Document.DerivedStructData
		link := d.Link
		if link == "" {
			link = d.ContextLink
		}
		res := Result{Title: d.Title, Link: link}
		for _, s := range d.Snippets {
			if t := strings.TrimSpace(s.Snippet); t != "" {
				res.Snippets = append(res.Snippets, t)
			}
		}
		if len(d.Pagemap.CSEImage) > 0 {
			res.Image = d.Pagemap.CSEImage[0].Src
		}
		out.Results = append(out.Results, res)
	}
	return out, nil
}
