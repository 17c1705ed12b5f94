package instagram

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaInsightsImageFirstSet(t *testing.T) {
	var gotMetrics []string
	client := newTestClient(t, 10, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/m1/insights", req.URL.Path)
		gotMetrics = append(gotMetrics, req.URL.Query().Get("metric"))
		return newResponse(http.StatusOK, `{
			"data": [
				{"name": "reach", "values": [{"value": 500}]},
				{"name": "impressions", "values": [{"value": 620}]},
				{"name": "likes", "values": [{"value": 48}]},
				{"name": "saved", "values": [{"value": 7}]}
			]
		}`), nil
	})

	insights, err := client.MediaInsights(context.Background(), "m1", MediaTypeImage)
	require.NoError(t, err)

	require.Len(t, gotMetrics, 1)
	assert.Equal(t, imageMetricSets[0], gotMetrics[0])

	assert.Equal(t, 500, insights["reach"])
	assert.Equal(t, 620, insights["impressions"])
	assert.Equal(t, 48, insights["likes"])

	// "saved" is renamed to "saves".
	assert.Equal(t, 7, insights["saves"])
	_, hasSaved := insights["saved"]
	assert.False(t, hasSaved)

	// Requested but unreturned metrics default to 0.
	assert.Equal(t, 0, insights["comments"])
	assert.Equal(t, 0, insights["shares"])
	assert.Equal(t, 0, insights["total_interactions"])

	// Image media never carries plays.
	_, hasPlays := insights["plays"]
	assert.False(t, hasPlays)
}

func TestMediaInsightsVideoMetricSet(t *testing.T) {
	var gotMetrics []string
	client := newTestClient(t, 10, func(req *http.Request) (*http.Response, error) {
		gotMetrics = append(gotMetrics, req.URL.Query().Get("metric"))
		return newResponse(http.StatusOK, `{
			"data": [
				{"name": "reach", "values": [{"value": 900}]},
				{"name": "plays", "values": [{"value": 1500}]}
			]
		}`), nil
	})

	insights, err := client.MediaInsights(context.Background(), "v1", MediaTypeReel)
	require.NoError(t, err)

	require.Len(t, gotMetrics, 1)
	assert.Equal(t, videoMetricSets[0], gotMetrics[0])

	assert.Equal(t, 1500, insights["plays"])

	// Video sets never request impressions.
	_, hasImpressions := insights["impressions"]
	assert.False(t, hasImpressions)
}

func TestMediaInsightsFallsBackAcrossSets(t *testing.T) {
	var gotMetrics []string
	client := newTestClient(t, 10, func(req *http.Request) (*http.Response, error) {
		gotMetrics = append(gotMetrics, req.URL.Query().Get("metric"))
		if len(gotMetrics) < 3 {
			return newResponse(http.StatusBadRequest,
				`{"error":{"message":"Invalid metric","code":100}}`), nil
		}
		return newResponse(http.StatusOK, `{
			"data": [{"name": "reach", "values": [{"value": 70}]}]
		}`), nil
	})

	insights, err := client.MediaInsights(context.Background(), "v2", MediaTypeVideo)
	require.NoError(t, err)

	assert.Equal(t, videoMetricSets, gotMetrics)
	assert.Equal(t, 70, insights["reach"])

	// Only the accepted set's metrics appear.
	assert.Equal(t, 0, insights["plays"])
	_, hasLikes := insights["likes"]
	assert.False(t, hasLikes)
}

func TestMediaInsightsExhaustionIsSoftSkip(t *testing.T) {
	calls := 0
	client := newTestClient(t, 10, func(req *http.Request) (*http.Response, error) {
		calls++
		return newResponse(http.StatusBadRequest,
			`{"error":{"message":"Invalid metric","code":100}}`), nil
	})

	insights, err := client.MediaInsights(context.Background(), "m1", MediaTypeImage)
	require.NoError(t, err)
	assert.Nil(t, insights)
	assert.Equal(t, len(imageMetricSets), calls)
}

func TestMediaInsightsNonSchemaErrorAborts(t *testing.T) {
	calls := 0
	client := newTestClient(t, 10, func(req *http.Request) (*http.Response, error) {
		calls++
		return newResponse(http.StatusInternalServerError, `{}`), nil
	})

	_, err := client.MediaInsights(context.Background(), "m1", MediaTypeImage)
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestMediaInsightsRateLimitAborts(t *testing.T) {
	calls := 0
	client := newTestClient(t, 1, func(req *http.Request) (*http.Response, error) {
		calls++
		return newResponse(http.StatusBadRequest,
			`{"error":{"message":"Invalid metric","code":100}}`), nil
	})

	// First candidate consumes the whole budget; the second fails the
	// pre-check and must not be swallowed as a schema rejection.
	_, err := client.MediaInsights(context.Background(), "m1", MediaTypeImage)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestNormalizeInsights(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		envelope  insightEnvelope
		want      map[string]int
	}{
		{
			name:      "empty envelope defaults everything",
			requested: "reach,saved,shares",
			envelope:  insightEnvelope{},
			want:      map[string]int{"reach": 0, "saves": 0, "shares": 0},
		},
		{
			name:      "metric without values defaults to zero",
			requested: "reach,plays",
			envelope: insightEnvelope{Data: []insightMetric{
				{Name: "reach"},
				{Name: "plays", Values: []insightValue{{Value: insightNumberOrMap{Number: 12}}}},
			}},
			want: map[string]int{"reach": 0, "plays": 12},
		},
		{
			name:      "saved renamed in both requested and returned",
			requested: "saved",
			envelope: insightEnvelope{Data: []insightMetric{
				{Name: "saved", Values: []insightValue{{Value: insightNumberOrMap{Number: 3}}}},
			}},
			want: map[string]int{"saves": 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeInsights(tt.requested, tt.envelope))
		})
	}
}

func TestInsightValueDecodesNumbersAndBuckets(t *testing.T) {
	for i, tc := range []struct {
		raw        string
		wantNumber int
		wantBucket map[string]int
	}{
		{raw: `{"value": 42}`, wantNumber: 42},
		{raw: `{"value": {"US": 10, "DE": 5}}`, wantBucket: map[string]int{"US": 10, "DE": 5}},
		{raw: `{"value": null}`},
	} {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			var v insightValue
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &v))
			assert.Equal(t, tc.wantNumber, v.Value.Number)
			assert.Equal(t, tc.wantBucket, v.Value.Buckets)
		})
	}
}
