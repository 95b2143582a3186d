// Package http provides the HTTP client used to fetch cover art given as a
// URL in the settings.
//
//	client := http.NewClient()
//	data, err := client.Get(ctx, settings.CoverArt)
package http
