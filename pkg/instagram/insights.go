package instagram

import (
	"context"
	"net/url"
	"strings"
)

// Per-media insight metric sets, most to least complete. The provider's
// metric surface differs by media class and shifts across API versions:
// video-like media (VIDEO, REEL) has plays but no impressions, image-like
// media (IMAGE, CAROUSEL_ALBUM) the reverse. A schema rejection of one set
// falls through to the next.
var (
	videoMetricSets = []string{
		"reach,likes,comments,saved,shares,plays,total_interactions",
		"reach,likes,saved,shares,plays",
		"reach,plays",
	}
	imageMetricSets = []string{
		"reach,impressions,likes,comments,saved,shares,total_interactions",
		"reach,likes,saved,shares,total_interactions",
		"reach,saved,shares",
	}
)

// MediaInsights fetches per-media metrics, negotiating the metric set with
// the provider. It returns a flat map of normalized metric name to value.
//
// Every metric of the accepted set is present in the result, defaulting to
// 0, and the provider's "saved" is renamed to "saves". When the provider
// rejects every candidate set as invalid, the result is (nil, nil): the
// caller treats missing insights as a soft skip, not a failure. Any
// non-schema error aborts immediately.
func (c *Client) MediaInsights(ctx context.Context, mediaID, mediaType string) (map[string]int, error) {
	metricSets := imageMetricSets
	if mediaType == MediaTypeVideo || mediaType == MediaTypeReel {
		metricSets = videoMetricSets
	}

	for _, metrics := range metricSets {
		params := url.Values{}
		params.Set("metric", metrics)

		var envelope insightEnvelope
		err := c.get(ctx, MediaInsightsEndpoint(mediaID), params, &envelope)
		if err != nil {
			if IsSchemaRejection(err) {
				c.logger.DebugWithFields("metric set rejected, trying next", map[string]interface{}{
					"media_id": mediaID,
					"metrics":  metrics,
				})
				continue
			}
			return nil, err
		}

		return normalizeInsights(metrics, envelope), nil
	}

	c.logger.WarnWithFields("insights unavailable for media", map[string]interface{}{
		"media_id":   mediaID,
		"media_type": mediaType,
	})
	return nil, nil
}

// normalizeInsights flattens an insight envelope into metric name to value,
// mapping "saved" to "saves" and defaulting every requested metric to 0.
func normalizeInsights(requested string, envelope insightEnvelope) map[string]int {
	insights := make(map[string]int)
	for _, name := range strings.Split(requested, ",") {
		insights[normalizeMetricName(name)] = 0
	}
	for _, metric := range envelope.Data {
		value := 0
		if len(metric.Values) > 0 {
			value = metric.Values[0].Value.Number
		}
		insights[normalizeMetricName(metric.Name)] = value
	}
	return insights
}

func normalizeMetricName(name string) string {
	if name == "saved" {
		return "saves"
	}
	return name
}
