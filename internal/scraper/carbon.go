package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// carbonResponse is the subset of a Website Carbon /data response we read.
// Either field may be missing independently.
type carbonResponse struct {
	GCO2e       *float64 `json:"gco2e"`
	CleanerThan *float64 `json:"cleanerThan"`
}

// carbonResult holds a carbon estimate. CleanerThanPercent is on 0..100.
type carbonResult struct {
	GramsPerView       *float64
	CleanerThanPercent *float64
}

type carbonEstimator struct {
	endpoint string
	client   *http.Client
}

func (c *carbonEstimator) requestURL(bytes float64) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("bytes", strconv.FormatFloat(bytes, 'f', -1, 64))
	q.Set("green", "0")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// estimate asks Website Carbon for the per-view footprint of a page weighing
// bytes, assuming non-green hosting.
func (c *carbonEstimator) estimate(ctx context.Context, bytes float64) (*carbonResult, error) {
	reqURL, err := c.requestURL(bytes)
	if err != nil {
		return nil, err
	}
	body, err := getJSON(ctx, c.client, reqURL)
	if err != nil {
		return nil, err
	}

	var r carbonResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode carbon response: %w", err)
	}
	res := &carbonResult{GramsPerView: r.GCO2e}
	if r.CleanerThan != nil {
		pct := *r.CleanerThan * 100
		res.CleanerThanPercent = &pct
	}
	return res, nil
}
