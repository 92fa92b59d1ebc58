package svi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// tournamentFixture fakes the upstream for findWinner/normalize/
// Container tests: whichever comparisonItem appears first in a
// request always "wins" (peaks at 100), every other item peaks lower.
// This makes the tournament's outcome deterministic and verifiable:
// the global winner is always the fragment placed first overall. Each
// item's two rows are stamped at the start of its own window and one
// day later, so a series' peak lies inside the window it was asked for.
func tournamentFixture(t *testing.T) *Client {
	t.Helper()

	type item struct {
		Keyword string `json:"keyword"`
		Time    string `json:"time"`
		Geo     string `json:"geo"`
	}

	decodeItems := func(r *http.Request) []item {
		req := r.URL.Query().Get("req")
		var decoded struct {
			Items []item `json:"items"`
		}
		require.NoError(t, json.Unmarshal([]byte(req), &decoded))
		return decoded.Items
	}

	// windowStart parses the lower edge of an item's encoded window
	// ("YYYY-MM-DD YYYY-MM-DD", or "YYYY-MM-DDTHH ..." for HOUR).
	windowStart := func(it item) time.Time {
		lower := strings.Fields(it.Time)[0]
		at, err := time.Parse("2006-01-02", lower)
		if err != nil {
			at, err = time.Parse("2006-01-02T15", lower)
		}
		require.NoError(t, err)
		return at
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/explore", func(w http.ResponseWriter, r *http.Request) {
		reqParam := r.URL.Query().Get("req")
		var decoded struct {
			ComparisonItem []item `json:"comparisonItem"`
		}
		require.NoError(t, json.Unmarshal([]byte(reqParam), &decoded))

		inner, err := json.Marshal(struct {
			Items []item `json:"items"`
		}{decoded.ComparisonItem})
		require.NoError(t, err)

		fmt.Fprintf(w, guardPrefix+`{"widgets":[{"id":"TIMESERIES","request":%s,"token":"tok"}]}`, inner)
	})

	respond := func(w http.ResponseWriter, items []item) {
		n := len(items)
		rows := make([]string, 2)
		for row := 0; row < 2; row++ {
			cols := make([]string, n)
			for i := range items {
				value := 40
				if i == 0 {
					value = 100
				}
				cols[i] = fmt.Sprintf(`{"time":"%d","value":%d}`, windowStart(items[i]).AddDate(0, 0, row).Unix(), value)
			}
			rows[row] = "[" + joinStrings(cols, ",") + "]"
		}
		fmt.Fprintf(w, guardPrefix+`{"default":{"timelineData":[{"columnData":%s},{"columnData":%s}]}}`, rows[0], rows[1])
	}

	mux.HandleFunc("/multirange", func(w http.ResponseWriter, r *http.Request) {
		respond(w, decodeItems(r))
	})
	mux.HandleFunc("/multiline", func(w http.ResponseWriter, r *http.Request) {
		items := decodeItems(r)
		n := len(items)
		row := func(rowIdx int) string {
			values := make([]string, n)
			for i := range items {
				value := 40
				if i == 0 {
					value = 100
				}
				values[i] = fmt.Sprintf("%d", value)
			}
			return fmt.Sprintf(`{"time":"%d","value":[%s]}`, windowStart(items[0]).AddDate(0, 0, rowIdx).Unix(), joinStrings(values, ","))
		}
		fmt.Fprintf(w, guardPrefix+`{"default":{"timelineData":[%s,%s]}}`, row(0), row(1))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), WithTimeout(2*time.Second))
	require.NoError(t, err)
	client.endpointBase = server.URL + "/"
	client.endpointExplore = server.URL + "/explore"
	client.endpointSingle = server.URL + "/multiline"
	client.endpointMulti = server.URL + "/multirange"
	require.NoError(t, client.open(context.Background()))

	return client
}

func joinStrings(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}
