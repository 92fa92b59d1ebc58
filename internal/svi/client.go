package svi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/svidx/svi-fetch/pkg/log"
)

const (
	urlBase      = "https://trends.google.com/"
	urlExplore   = "https://trends.google.com/trends/api/explore"
	urlSingle    = "https://trends.google.com/trends/api/widgetdata/multiline"
	urlMulti     = "https://trends.google.com/trends/api/widgetdata/multirange"
	urlRelated   = "https://trends.google.com/trends/api/widgetdata/relatedsearches"
	guardBytes   = 5
	timeseriesID = "TIMESERIES"
)

// mode selects which timeseries widget endpoint a ComparisonRequest's
// fragments require: SINGLE when every fragment shares one window
// (including the 1-fragment case), MULTI otherwise.
type mode int

const (
	single mode = iota
	multi
)

// Client is the minimal upstream client: one session, two operations
// (Explore, Timeseries) plus the RelatedQueries sibling operation.
// It is safe for concurrent use because the underlying http.Client and
// its cookie jar are. Client does not serialize requests: it holds no
// lock of its own and takes no Pacer, so concurrent callers can have
// requests in flight at the same time.
type Client struct {
	language string
	timezone int
	http     *http.Client
	verbose  bool

	// endpoint* default to the real upstream URLs; tests override them
	// to point at an httptest.Server fixture.
	endpointBase    string
	endpointExplore string
	endpointSingle  string
	endpointMulti   string
	endpointRelated string
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

func WithLanguage(lang string) ClientOption {
	return func(c *Client) { c.language = lang }
}

func WithTimezone(minutes int) ClientOption {
	return func(c *Client) { c.timezone = minutes }
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// WithVerbose logs the constructed request URL at Debug level before
// every GET, mirroring the original connection's verbose flag.
func WithVerbose(v bool) ClientOption {
	return func(c *Client) { c.verbose = v }
}

// NewClient opens a session against the upstream (a GET against its
// root to obtain the session cookie jar) and returns a ready Client.
func NewClient(ctx context.Context, opts ...ClientOption) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, transportErr("CLIENT.Open", err)
	}

	c := &Client{
		language:        "en-US",
		timezone:        0,
		http:            &http.Client{Jar: jar, Timeout: 5 * time.Second},
		endpointBase:    urlBase,
		endpointExplore: urlExplore,
		endpointSingle:  urlSingle,
		endpointMulti:   urlMulti,
		endpointRelated: urlRelated,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.open(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) open(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpointBase, nil)
	if err != nil {
		return transportErr("CLIENT.Open", err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return transportErr("CLIENT.Open", err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)
	if res.StatusCode/100 != 2 {
		return transportErr("CLIENT.Open", fmt.Errorf("unexpected status: %s", res.Status))
	}
	return nil
}

// widgetPayload is one widget's {request, token} pair from the explore
// response, kept as raw JSON so it can be re-serialized verbatim into
// the follow-up timeseries request.
type widgetPayload struct {
	Request json.RawMessage
	Token   string
}

// Explore exchanges a comparison-item list for per-widget request/token
// pairs. Returns a map keyed by widget id; the widget id used for
// normalization always starts with "TIMESERIES".
func (c *Client) Explore(ctx context.Context, fragments []Fragment, category int, gran Granularity) (map[string]widgetPayload, error) {
	if len(fragments) == 0 {
		return nil, validationErr("CLIENT.Explore", "no fragments given")
	}
	if len(fragments) > MaxComparisonSize {
		return nil, validationErr("CLIENT.Explore", "too many fragments (%d > %d)", len(fragments), MaxComparisonSize)
	}

	type comparisonItem struct {
		Keyword string `json:"keyword"`
		Time    string `json:"time"`
		Geo     string `json:"geo"`
	}
	items := make([]comparisonItem, len(fragments))
	for i, f := range fragments {
		items[i] = comparisonItem{
			Keyword: f.Query.Keyword,
			Time:    encodeWindow(f.Window, gran),
			Geo:     strings.ToUpper(f.Query.Geo),
		}
	}

	reqBody, err := json.Marshal(struct {
		ComparisonItem []comparisonItem `json:"comparisonItem"`
		Category       int              `json:"category"`
		Property       string           `json:"property"`
	}{items, category, ""})
	if err != nil {
		return nil, protocolErr("CLIENT.Explore", err)
	}

	params := url.Values{
		"hl":  {c.language},
		"tz":  {strconv.Itoa(c.timezone)},
		"req": {string(reqBody)},
	}

	raw, err := c.get(ctx, c.endpointExplore, params)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Widgets []struct {
			ID      string          `json:"id"`
			Request json.RawMessage `json:"request"`
			Token   string          `json:"token"`
		} `json:"widgets"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, protocolErr("CLIENT.Explore", err)
	}

	widgets := make(map[string]widgetPayload, len(decoded.Widgets))
	for _, w := range decoded.Widgets {
		widgets[w.ID] = widgetPayload{Request: w.Request, Token: w.Token}
	}
	return widgets, nil
}

// Timeseries exchanges a widget payload for `n` Series, one per
// fragment that went into the originating Explore call, in order.
func (c *Client) Timeseries(ctx context.Context, payload widgetPayload, n int, m mode) ([]Series, error) {
	if payload.Token == "" {
		return nil, protocolErr("CLIENT.Timeseries", fmt.Errorf("missing widget token"))
	}

	endpoint := c.endpointSingle
	if m == multi {
		endpoint = c.endpointMulti
	}

	params := url.Values{
		"hl":    {c.language},
		"tz":    {strconv.Itoa(c.timezone)},
		"req":   {string(payload.Request)},
		"token": {payload.Token},
	}

	raw, err := c.get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Default struct {
			TimelineData []json.RawMessage `json:"timelineData"`
		} `json:"default"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, protocolErr("CLIENT.Timeseries", err)
	}

	// pointAt builds a Point from a possibly-null value, setting Missing
	// when the upstream omitted a value rather than sending a real 0.
	pointAt := func(at time.Time, v *float64) Point {
		if v == nil {
			return Point{At: at, Missing: true}
		}
		return Point{At: at, Value: *v}
	}

	series := make([]Series, n)
	if m == single {
		type row struct {
			Time  string     `json:"time"`
			Value []*float64 `json:"value"`
		}
		for _, rawRow := range decoded.Default.TimelineData {
			var r row
			if err := json.Unmarshal(rawRow, &r); err != nil {
				return nil, protocolErr("CLIENT.Timeseries", err)
			}
			at, err := parseUnixSeconds(r.Time)
			if err != nil {
				return nil, protocolErr("CLIENT.Timeseries", err)
			}
			for i := 0; i < n && i < len(r.Value); i++ {
				series[i].Points = append(series[i].Points, pointAt(at, r.Value[i]))
			}
		}
	} else {
		type column struct {
			Time  string   `json:"time"`
			Value *float64 `json:"value"`
		}
		type row struct {
			ColumnData []column `json:"columnData"`
		}
		for _, rawRow := range decoded.Default.TimelineData {
			var r row
			if err := json.Unmarshal(rawRow, &r); err != nil {
				return nil, protocolErr("CLIENT.Timeseries", err)
			}
			for i := 0; i < n && i < len(r.ColumnData); i++ {
				at, err := parseUnixSeconds(r.ColumnData[i].Time)
				if err != nil {
					return nil, protocolErr("CLIENT.Timeseries", err)
				}
				series[i].Points = append(series[i].Points, pointAt(at, r.ColumnData[i].Value))
			}
		}
	}
	return series, nil
}

// Compare is the combined Explore+Timeseries round trip the rest of
// the package drives: it picks SINGLE vs MULTI based on whether all
// fragments share one window, and returns exactly len(fragments)
// series in fragment order.
func (c *Client) Compare(ctx context.Context, req ComparisonRequest) ([]Series, error) {
	if len(req.Fragments) == 0 {
		return nil, validationErr("CLIENT.Compare", "empty comparison request")
	}
	if len(req.Fragments) > MaxComparisonSize {
		return nil, validationErr("CLIENT.Compare", "too many fragments (%d > %d)", len(req.Fragments), MaxComparisonSize)
	}

	widgets, err := c.Explore(ctx, req.Fragments, req.Category, req.Gran)
	if err != nil {
		return nil, err
	}

	var payload widgetPayload
	found := false
	for id, w := range widgets {
		if strings.HasPrefix(id, timeseriesID) {
			payload, found = w, true
			break
		}
	}
	if !found {
		return nil, protocolErr("CLIENT.Compare", fmt.Errorf("no %s widget in explore response", timeseriesID))
	}

	m := comparisonMode(req.Fragments)
	return c.Timeseries(ctx, payload, len(req.Fragments), m)
}

func comparisonMode(fragments []Fragment) mode {
	if len(fragments) == 1 {
		return single
	}
	first := fragments[0].Window
	for _, f := range fragments[1:] {
		if f.Window != first {
			return multi
		}
	}
	return single
}

func (c *Client) get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	u := rawURL + "?" + params.Encode()
	if c.verbose {
		log.Debugf("SVI/CLIENT > GET %s", u)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, transportErr("CLIENT.get", err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, transportErr("CLIENT.get", err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		io.Copy(io.Discard, res.Body)
		return nil, transportErr("CLIENT.get", fmt.Errorf("'%s': HTTP status %s", rawURL, res.Status))
	}

	body, err := io.ReadAll(bufio.NewReader(res.Body))
	if err != nil {
		return nil, transportErr("CLIENT.get", err)
	}
	if len(body) < guardBytes {
		return nil, protocolErr("CLIENT.get", fmt.Errorf("response shorter than guard prefix (%d bytes)", len(body)))
	}
	return body[guardBytes:], nil
}

func encodeWindow(w Window, gran Granularity) string {
	layout := "2006-01-02"
	if gran == Hour {
		layout = "2006-01-02T15"
	}
	return w.Lower.UTC().Format(layout) + " " + w.Upper.UTC().Format(layout)
}

func parseUnixSeconds(s string) (time.Time, error) {
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse unix timestamp %q: %w", s, err)
	}
	return time.Unix(secs, 0).UTC(), nil
}
