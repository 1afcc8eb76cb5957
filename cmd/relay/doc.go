// Package main runs the development relay: a bundle directory plus a
// store-and-forward mailbox with websocket push. It never sees plaintext or
// private keys; it only stores ciphertext and public bundles.
//
// HTTP API
//
//	POST /register
//	    Store a user's public prekey bundle.
//
//	GET /bundle/{user}
//	    Return the latest published bundle for {user}.
//
//	POST /msg/{user}
//	    Deliver an Envelope to {user}: pushed immediately if a watcher is
//	    connected, queued otherwise.
//
//	GET /msg/{user}?limit=N
//	    Return up to N queued Envelopes for {user}. If limit is absent or
//	    greater than the queue length, all queued envelopes are returned.
//
//	POST /msg/{user}/ack { "count": N }
//	    Drop the first N queued envelopes for {user}. If N exceeds the queue
//	    length, the queue is cleared.
//
//	GET /ws/{user}
//	    Upgrade to a websocket; subsequent envelopes for {user} are pushed as
//	    JSON frames instead of queued.
//
// Behaviour
//
//   - The bundle directory always lives in memory. The mailbox is in-memory by
//     default; pass -redis to queue envelopes in Redis lists instead so they
//     survive restarts.
//   - Responses are JSON. Non-2xx statuses carry a short error message.
//   - The default listen address is localhost:9090.
package main
