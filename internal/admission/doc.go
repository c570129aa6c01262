// Package admission maintains the IP status list that drives request
// admission: which clients are trusted to bypass security checks,
// which are blocked outright, and which get the normal pipeline.
//
// Statuses live in one logical table keyed by IP. The Store interface
// deliberately splits failure handling by direction: writes surface
// ErrStorage so operators learn their update did not land, while reads
// swallow every failure into StatusNone or an empty map. A storage
// outage therefore never blocks traffic; it only widens admission back
// to the default pipeline until the backend recovers.
//
// RedisStore is the production implementation (a single Redis hash,
// one command per operation, circuit breaker around the client).
// MemoryStore mirrors the semantics in process for tests and
// Redis-less deployments.
package admission
