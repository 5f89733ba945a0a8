// Package rate enforces attempt budgets for auto-login and refresh
// operations using Redis counters with cooldown TTLs. Brute-forcing series
// identifiers or replaying refresh tokens is otherwise free.
package rate
