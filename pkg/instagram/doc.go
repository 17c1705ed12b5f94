// Package instagram provides a rate-limited client for the Instagram
// Graph API.
//
// This package includes:
//   - A request primitive that gates every call through the rolling-window
//     rate tracker and resolves the access token from the account config
//   - Typed models for profile, media, insight and demographic responses
//   - Per-media insight retrieval that negotiates the metric set across
//     media classes and API versions
//   - Typed errors carrying the provider's status and error code
//
// Example usage:
//
//	client := instagram.NewClient("", 30*time.Second, configStore, tracker, log)
//
//	profile, err := client.GetProfile(ctx)
//	if err != nil {
//	    var limitErr *ratelimit.LimitError
//	    var apiErr *instagram.APIError
//	    switch {
//	    case errors.As(err, &limitErr):
//	        // out of budget until limitErr.ResetAt
//	    case errors.As(err, &apiErr):
//	        // provider rejected the request
//	    }
//	}
package instagram
