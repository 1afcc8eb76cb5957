// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (key material, ratchet state, wire envelopes) and
// contracts (stores, services, relay client) only.
package domain
