// Package remote implements driven.InvoiceService against the invoice
// repository's HTTP+JSON API.
//
// Each environment (test, demo, prod) may have its own base URL. Requests
// carry the session's access token as a bearer token. A 429 response is
// reported as *domain.RateLimitError carrying the server's Retry-After delay,
// and a 401 as domain.ErrAuthExpired.
package remote
