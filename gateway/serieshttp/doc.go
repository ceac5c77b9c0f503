// Package serieshttp exposes the series ingestion and read endpoints over
// HTTP.
//
// Three routes are served, all credential-checked through the series
// metadata cache:
//
//	POST /{user}/events/{eventID}/series   write a flatJSON point matrix
//	GET  /{user}/events/{eventID}/series   read points within a time range
//	POST /{user}/series/batch              write a multi-event seriesBatch
//
// Errors serialize as {"error": {"id", "message", "data"}} with the HTTP
// status derived from the error id.
package serieshttp
