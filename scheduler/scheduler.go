package scheduler

// Package scheduler provides scheduled job management for the crypto
// analysis backend. It handles:
// - Periodic quote syncs from CoinMarketCap
// - Daily historical data backfills
// - Technical indicator calculations
// - Daily report generation
// - User alert monitoring
// - Periodic data cleanup
//
// The main scheduler is implemented in jobs.go
