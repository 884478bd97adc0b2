package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/PaesslerAG/jsonpath"
)

// Lighthouse categories requested from PageSpeed Insights, in request order.
var psiCategories = []string{"PERFORMANCE", "ACCESSIBILITY", "BEST_PRACTICES", "SEO"}

// psiResponse is the subset of a runPagespeed response we read. Scores are
// pointers so an absent category can be told apart from a zero score.
type psiResponse struct {
	LighthouseResult struct {
		Categories struct {
			Performance   psiCategory `json:"performance"`
			Accessibility psiCategory `json:"accessibility"`
			BestPractices psiCategory `json:"best-practices"`
			SEO           psiCategory `json:"seo"`
		} `json:"categories"`
	} `json:"lighthouseResult"`
}

type psiCategory struct {
	Score *float64 `json:"score"`
}

// psiResult holds the parsed outcome of one PageSpeed run.
type psiResult struct {
	Performance   float64
	Accessibility float64
	BestPractices float64
	SEO           float64

	// TotalBytes is the page weight, or 0 when the audit did not report it.
	TotalBytes float64
}

type pageSpeed struct {
	endpoint       string
	key            string
	strategy       string
	byteWeightPath string
	client         *http.Client
}

// requestURL builds the runPagespeed query for target.
func (p *pageSpeed) requestURL(target string) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("url", target)
	q.Set("key", p.key)
	for _, c := range psiCategories {
		q.Add("category", c)
	}
	q.Set("strategy", p.strategy)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (p *pageSpeed) run(ctx context.Context, target string) (*psiResult, error) {
	reqURL, err := p.requestURL(target)
	if err != nil {
		return nil, err
	}
	body, err := getJSON(ctx, p.client, reqURL)
	if err != nil {
		return nil, err
	}
	return parsePageSpeed(body, p.byteWeightPath)
}

// parsePageSpeed extracts the four category scores (scaled to 0..100) and
// the page weight found at byteWeightPath.
func parsePageSpeed(body []byte, byteWeightPath string) (*psiResult, error) {
	var r psiResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode pagespeed response: %w", err)
	}

	cats := r.LighthouseResult.Categories
	var missing []string
	for _, c := range []struct {
		name string
		cat  psiCategory
	}{
		{"performance", cats.Performance},
		{"accessibility", cats.Accessibility},
		{"best-practices", cats.BestPractices},
		{"seo", cats.SEO},
	} {
		if c.cat.Score == nil {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("invalid pagespeed response: missing category scores %v", missing)
	}

	return &psiResult{
		Performance:   *cats.Performance.Score * 100,
		Accessibility: *cats.Accessibility.Score * 100,
		BestPractices: *cats.BestPractices.Score * 100,
		SEO:           *cats.SEO.Score * 100,
		TotalBytes:    byteWeight(body, byteWeightPath),
	}, nil
}

// byteWeight evaluates path against the raw response. Anything other than a
// positive number yields 0.
func byteWeight(body []byte, path string) float64 {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return 0
	}
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return 0
	}
	n, ok := v.(float64)
	if !ok || n <= 0 {
		return 0
	}
	return n
}
