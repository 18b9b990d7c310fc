// Package common contains shared constants and sentinel errors used across
// TamteKlipy client components.
package common

// AuthorizationHeaderName is the HTTP header that carries the bearer token
// on outbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix is prepended to the access token in the Authorization header.
const BearerPrefix = "Bearer "
