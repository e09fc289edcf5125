// Package store persists board documents, labels, and push subscriptions in
// SQLite. All state-changing operations are single statements or short
// transactions; no multi-row transactional guarantee is offered beyond that.
package store
