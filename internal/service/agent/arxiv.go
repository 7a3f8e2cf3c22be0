package agent

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
)

const arxivQueryURL = "http://export.arxiv.org/api/query"

type arxivRequest struct {
	Query string `json:"query" jsonschema:"description=Search phrase for academic papers on arXiv"`
}

type arxivPaper struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Published string `json:"published"`
	URL       string `json:"url"`
}

type arxivResponse struct {
	Results []arxivPaper `json:"results"`
}

// newArxivTool exposes the public arXiv Atom API as an invokable agent tool.
func newArxivTool(maxResults, maxChars int) (tool.InvokableTool, error) {
	client := &http.Client{Timeout: 20 * time.Second}

	search := func(ctx context.Context, req arxivRequest) (arxivResponse, error) {
		query := strings.TrimSpace(req.Query)
		if query == "" {
			return arxivResponse{}, fmt.Errorf("arxiv query must not be empty")
		}

		params := url.Values{}
		params.Set("search_query", "all:"+query)
		params.Set("max_results", fmt.Sprintf("%d", maxResults))
		params.Set("sortBy", "relevance")

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivQueryURL+"?"+params.Encode(), nil)
		if err != nil {
			return arxivResponse{}, fmt.Errorf("build arxiv request: %w", err)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return arxivResponse{}, fmt.Errorf("query arxiv: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return arxivResponse{}, fmt.Errorf("arxiv returned status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return arxivResponse{}, fmt.Errorf("read arxiv response: %w", err)
		}

		papers, err := parseArxivFeed(body, maxChars)
		if err != nil {
			return arxivResponse{}, err
		}
		return arxivResponse{Results: papers}, nil
	}

	return utils.InferTool(
		"arxiv_search",
		"Search academic papers on arXiv",
		search,
	)
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Summary   string     `xml:"summary"`
	Published string     `xml:"published"`
	Links     []atomLink `xml:"link"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

// parseArxivFeed extracts papers from an arXiv Atom feed, truncating each
// summary to maxChars runes.
func parseArxivFeed(raw []byte, maxChars int) ([]arxivPaper, error) {
	var feed atomFeed
	if err := xml.Unmarshal(raw, &feed); err != nil {
		return nil, fmt.Errorf("parse arxiv feed: %w", err)
	}

	papers := make([]arxivPaper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		summary := strings.Join(strings.Fields(entry.Summary), " ")
		if maxChars > 0 {
			if runes := []rune(summary); len(runes) > maxChars {
				summary = string(runes[:maxChars]) + "..."
			}
		}

		link := ""
		for _, l := range entry.Links {
			if l.Rel == "" || l.Rel == "alternate" {
				link = l.Href
				break
			}
		}

		papers = append(papers, arxivPaper{
			Title:     strings.TrimSpace(entry.Title),
			Summary:   summary,
			Published: strings.TrimSpace(entry.Published),
			URL:       link,
		})
	}
	return papers, nil
}
