// Package password provides Argon2id hashing with PHC-formatted output for
// the credential checks performed ahead of session issuance. It sets no
// policy beyond minimum cost parameters.
package password
