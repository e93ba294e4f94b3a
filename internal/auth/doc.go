// Package auth provides API-key authentication for the gRPC and HTTP servers.
//
// APIKeyInterceptor(mode, header, key) returns a gRPC UnaryServerInterceptor
// that validates the API key from the named gRPC metadata header.
// Middleware(mode, header, key, open...) does the same for HTTP handlers,
// reading the header or the api_key query parameter.
//
// When mode != "apikey" or key == "", all calls pass through (useful for local
// development with auth disabled). When the key is incorrect or absent,
// gRPC calls fail with codes.Unauthenticated and HTTP requests get 401.
package auth
