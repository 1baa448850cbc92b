// Package token issues and verifies compact HMAC-signed bearer tokens.
//
// A token is base64url(payload JSON) + "." + base64url(HMAC-SHA256 prefix).
// The payload is authenticated, not encrypted: put identifiers and random
// nonces in it, never secrets. Parsing verifies the signature in constant
// time before the payload is decoded, so malformed or forged tokens are
// rejected without touching storage.
//
// The trusted-device ledger uses this for its bypass credential: the payload
// carries a high-entropy random nonce and the signature makes the token
// self-authenticating, while the server stores nothing about the token
// itself.
package token
