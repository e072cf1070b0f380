// Package ratelimit keeps calls to the photo service under its hourly quota.
//
// TokenBucket refills continuously, one token per interval, so a quota of
// 3600 requests per hour admits roughly one request per second after the
// initial burst is spent.
package ratelimit
