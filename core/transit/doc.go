// Package transit turns a transit search result page into a travel time
// estimate. Fetching the page is left to an infra adapter implementing
// Fetcher.
package transit
