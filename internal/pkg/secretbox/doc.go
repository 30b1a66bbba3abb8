// Package secretbox seals authenticator secrets at rest with AES-256-GCM.
//
// Every ciphertext is bound to a Scope through the GCM additional data, so a
// sealed secret copied to another user or another row fails to open. Keys
// come from a Keyring; the key id travels in the ciphertext header which lets
// old rows open after the current key is rotated.
package secretbox
