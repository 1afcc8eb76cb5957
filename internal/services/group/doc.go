// Package group implements sender-key group messaging: creating a group's
// sending chain, distributing it to members over pairwise sessions, fan-out
// sending, and opening inbound group envelopes.
package group
