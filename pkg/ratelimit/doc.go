// Package ratelimit tracks Graph API call usage in a rolling one-hour
// window so the dashboard stays under the provider's call budget.
//
// The window state (call count + window start) lives in a pluggable
// StateStore and survives process restarts; the quota is deliberately set
// below the provider's real ceiling as a safety margin.
//
// Usage:
//
//	tracker := ratelimit.NewTracker(store, ratelimit.DefaultLimit, ratelimit.DefaultWindow)
//
//	if err := tracker.Check(); err != nil {
//	    // a *LimitError carries calls used and the window reset time
//	    return err
//	}
//	// ... perform the HTTP request ...
//	tracker.Record()
package ratelimit
