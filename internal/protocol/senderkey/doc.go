// Package senderkey implements the per-(group, sender) symmetric ratchet used
// for one-to-many group encryption.
//
// Each group member generates one chain locally and distributes it to every
// other member inside a pairwise Double-Ratchet-encrypted envelope. A group
// message is then encrypted once under the sender's chain instead of once per
// recipient. The chain ratchets on every message; receivers fast-forward and
// cache skipped step keys (bounded, oldest evicted) for unordered delivery.
//
// Concurrency: SenderKeyState is NOT safe for concurrent use. Callers must
// serialise access per (group, sender) and persist after every call.
package senderkey
