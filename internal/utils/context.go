// Package utils provides general-purpose helper utilities
// used across different parts of the application.
// Includes tools for working with context, type-safe keys,
// HTTP response writing, HTTP client initialization, JWT token generation
// and validation, and other common operations.
package utils

import (
	"context"
)

// contextKey is a private type for context keys.
// Using a dedicated type instead of a plain string prevents key collisions
// with other packages that may use string-based keys in the context.
type contextKey string

// String returns the string representation of the context key.
// Implements the fmt.Stringer interface.
func (c contextKey) String() string {
	return string(c)
}

// OwnerIDCtxKey is the key used to store the authenticated record owner in
// the context. Used together with GetOwnerIDFromContext for type-safe
// retrieval of the owner ID from context.Context.
//
// Example of writing a value to the context:
//
//	ctx := context.WithValue(ctx, utils.OwnerIDCtxKey, int64(42))
var OwnerIDCtxKey = contextKey("ownerID")

// SessionIDCtxKey is the key used to store the device session identifier
// (the X-Session-ID request header) in the context. The broadcast hub uses
// it to exclude the originating session from fan-out.
var SessionIDCtxKey = contextKey("sessionID")

// GetOwnerIDFromContext retrieves the record owner identifier from the context.
//
// Returns the owner ID of type int64 and an ok flag:
//   - ok == true  — value is found and has the correct int64 type
//   - ok == false — value is missing or has an unexpected type
//
// Example usage:
//
//	ownerID, ok := utils.GetOwnerIDFromContext(ctx)
//	if !ok {
//	    // handle missing owner in context
//	}
func GetOwnerIDFromContext(ctx context.Context) (int64, bool) {
	ownerID, ok := ctx.Value(OwnerIDCtxKey).(int64)
	return ownerID, ok
}

// GetSessionIDFromContext retrieves the device session identifier from the
// context. An empty string with ok == false means the request did not carry
// a session header; fan-out then reaches every session of the owner.
func GetSessionIDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(SessionIDCtxKey).(string)
	return sessionID, ok
}
