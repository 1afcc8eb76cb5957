// Package message moves payloads over pairwise ratchet sessions and drives
// the inbound pipeline: session bootstrap from a handshake header, decrypting
// direct traffic, and routing group envelopes and sender-key distributions to
// the group handler.
package message
