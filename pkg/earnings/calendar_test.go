package earnings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calendarMarkup = `<html><body><table><tbody>
<tr>
  <td aria-label="Symbol">NVDA</td>
  <td aria-label="Company">NVIDIA Corporation</td>
  <td aria-label="Earnings Call Time">AMC</td>
  <td aria-label="EPS Estimate">0.85</td>
</tr>
<tr>
  <td>CRM</td>
  <td>Salesforce Inc</td>
  <td>AMC</td>
  <td>2.44</td>
</tr>
<tr>
  <td aria-label="Symbol"></td>
  <td aria-label="Company">Row without a symbol</td>
  <td aria-label="Earnings Call Time">BMO</td>
  <td aria-label="EPS Estimate">-</td>
</tr>
</tbody></table></body></html>`

func TestForDateScrapesEntries(t *testing.T) {
	var requestedDay string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedDay = r.URL.Query().Get("day")
		w.Write([]byte(calendarMarkup))
	}))
	defer server.Close()

	calendar := NewCalendar(5*time.Second, nil, zerolog.Nop())
	calendar.baseURL = server.URL

	date := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	entries, err := calendar.ForDate(context.Background(), date)
	require.NoError(t, err)

	assert.Equal(t, "2026-08-24", requestedDay)
	require.Len(t, entries, 2)

	assert.Equal(t, "NVDA", entries[0].Ticker)
	assert.Equal(t, "NVIDIA Corporation", entries[0].Company)
	assert.Equal(t, "AMC", entries[0].CallTime)
	assert.InDelta(t, 0.85, entries[0].EPSEstimate, 0.001)

	// Positional fallback for the unlabelled row.
	assert.Equal(t, "CRM", entries[1].Ticker)
	assert.InDelta(t, 2.44, entries[1].EPSEstimate, 0.001)
}

func TestForDateHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream sad", http.StatusBadGateway)
	}))
	defer server.Close()

	calendar := NewCalendar(5*time.Second, nil, zerolog.Nop())
	calendar.baseURL = server.URL

	_, err := calendar.ForDate(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestParseEstimate(t *testing.T) {
	assert.InDelta(t, 1.25, parseEstimate(" 1.25 "), 0.001)
	assert.Zero(t, parseEstimate("-"))
	assert.Zero(t, parseEstimate(""))
	assert.InDelta(t, -0.12, parseEstimate("-0.12"), 0.001)
}
