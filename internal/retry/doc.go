// Package retry runs an operation repeatedly with exponential backoff
// scheduled by github.com/cenkalti/backoff/v4.
//
// Every error is retried the same way: there is no jitter, no circuit
// breaker and no classification of errors. When all attempts fail the last
// error is returned to the caller unchanged in identity (errors.Is and
// errors.As still match it).
package retry
