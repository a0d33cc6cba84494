// Package lock brokers deterministic, cross-process mutual exclusion for
// device pool management. A pool lock's identity is derived purely from the
// pool's name (Unicode-normalized, then hashed under a frozen label), so
// unrelated processes agree on the same lock without any out-of-band
// coordination. A single well-known identity serializes driver installation
// across all pools.
//
// The Broker resolves identities and delegates ownership to a Backend: the
// OS backend (kernel-arbitrated, released automatically when the holder
// dies), a native Windows backend scoped inside the isolation namespace, a
// Redis backend for fleet-wide coordination, or an in-memory backend for
// tests and embedding.
package lock
