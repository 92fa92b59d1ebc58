package svi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// RankedQuery is one row of a related-queries result: a query string
// ranked by relative interest, with an upstream link to explore it
// further.
type RankedQuery struct {
	Query string
	Value int
	Link  string
}

// RelatedResult holds the top and rising related queries for a single
// keyword.
type RelatedResult struct {
	Top    []RankedQuery
	Rising []RankedQuery
}

// RelatedQueries fetches the top/rising related-queries lists for up
// to MaxComparisonSize queries sharing one window. This reuses the
// explore handshake but targets the RELATED_QUERIES widget(s) instead
// of TIMESERIES; it runs no tournament and performs no normalization -
// the upstream already returns a ranked list, not a raw magnitude.
func (c *Client) RelatedQueries(ctx context.Context, queries []Query, window Window, category int) (map[string]RelatedResult, error) {
	if len(queries) == 0 {
		return nil, validationErr("CLIENT.RelatedQueries", "no queries given")
	}
	if len(queries) > MaxComparisonSize {
		return nil, validationErr("CLIENT.RelatedQueries", "too many queries (%d > %d)", len(queries), MaxComparisonSize)
	}

	fragments := make([]Fragment, len(queries))
	for i, q := range queries {
		fragments[i] = Fragment{Query: q, Window: window}
	}

	widgets, err := c.Explore(ctx, fragments, category, Day)
	if err != nil {
		return nil, err
	}

	widgetNames := make([]string, len(queries))
	if len(queries) == 1 {
		widgetNames[0] = "RELATED_QUERIES"
	} else {
		for i := range queries {
			widgetNames[i] = fmt.Sprintf("RELATED_QUERIES_%d", i)
		}
	}

	results := make(map[string]RelatedResult, len(queries))
	for i, q := range queries {
		payload, ok := widgets[widgetNames[i]]
		if !ok {
			return nil, protocolErr("CLIENT.RelatedQueries", fmt.Errorf("no %s widget in explore response", widgetNames[i]))
		}
		result, err := c.relatedQuery(ctx, payload)
		if err != nil {
			return nil, err
		}
		results[queryKey(q)] = result
	}
	return results, nil
}

func (c *Client) relatedQuery(ctx context.Context, payload widgetPayload) (RelatedResult, error) {
	params := url.Values{
		"hl":    {c.language},
		"tz":    {strconv.Itoa(c.timezone)},
		"req":   {string(payload.Request)},
		"token": {payload.Token},
	}

	raw, err := c.get(ctx, c.endpointRelated, params)
	if err != nil {
		return RelatedResult{}, err
	}

	var decoded struct {
		Default struct {
			RankedList []struct {
				RankedKeyword []struct {
					Query string `json:"query"`
					Value int    `json:"value"`
					Link  string `json:"link"`
				} `json:"rankedKeyword"`
			} `json:"rankedList"`
		} `json:"default"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return RelatedResult{}, protocolErr("CLIENT.RelatedQueries", err)
	}
	if len(decoded.Default.RankedList) < 2 {
		return RelatedResult{}, protocolErr("CLIENT.RelatedQueries", fmt.Errorf("expected 2 ranked lists (top, rising), got %d", len(decoded.Default.RankedList)))
	}

	toRanked := func(rows []struct {
		Query string `json:"query"`
		Value int    `json:"value"`
		Link  string `json:"link"`
	}) []RankedQuery {
		out := make([]RankedQuery, len(rows))
		for i, r := range rows {
			out[i] = RankedQuery{Query: r.Query, Value: r.Value, Link: r.Link}
		}
		return out
	}

	return RelatedResult{
		Top:    toRanked(decoded.Default.RankedList[0].RankedKeyword),
		Rising: toRanked(decoded.Default.RankedList[1].RankedKeyword),
	}, nil
}
