// Package anthropic is a minimal client for the Anthropic Messages API,
// covering exactly what the enrichment stages need: text completions with
// the server-side web-search tool, request throttling, and exponential
// backoff on rate limits. It is not a general SDK.
package anthropic
