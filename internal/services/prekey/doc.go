// Package prekey generates the device's prekey bundle, stores the private
// halves sealed under the passphrase, and publishes the public halves to the
// relay directory.
package prekey
