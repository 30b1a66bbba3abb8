// Package jwt issues and verifies the short lived access tokens used by the
// HTTP API. Tokens are HS512 signed and carry the user id, username and role.
package jwt
