// Package auth implements local accounts and session tokens.
//
// Accounts are username/password logins hashed with bcrypt. Once the holder authorizes Spotify, the
// account is linked to the Spotify [models.User] it connected. Sessions are HS256 JWTs carried in a
// cookie; the token subject is the account ID.
package auth
