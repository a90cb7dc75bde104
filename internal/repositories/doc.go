// package repositories provides the persistence layer for credential records.
//
// [CredentialRepository] stores one row per user in SQLite. Refresh tokens
// arrive already encrypted; this layer never sees plaintext tokens.
package repositories
