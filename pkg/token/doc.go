// Package token generates and verifies pixelsync admin tokens.
//
// Token format:
//
//   - Prefix: pxadm_ (6 characters)
//   - Body: 43 characters of Base64 RawURL encoded random bytes
//   - Total: 49 characters
//
// The server never stores a token, only its bcrypt hash
// (security.admin_token_hash). Tokens without the prefix are accepted so
// operators can choose their own secrets.
package token
