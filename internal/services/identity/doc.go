// Package identity manages the device identity: generation, passphrase-sealed
// storage, and the human-verifiable fingerprint and safety number derived from
// identity publics.
package identity
