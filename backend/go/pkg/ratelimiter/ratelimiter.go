package ratelimiter

// RateLimiter decides whether an incoming request may proceed.
type RateLimiter interface {
	// Allow reports whether the current request is within the limit.
	Allow() bool
}
