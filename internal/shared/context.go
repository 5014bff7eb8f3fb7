// Package shared holds cross-cutting helpers used by every feature package.
package shared

import "context"

// StaffIdentity is the authenticated staff member attached to a request.
type StaffIdentity struct {
	ID   int64
	Role string
}

type staffContextKey struct{}

// ContextWithStaff stores the authenticated identity in context.
func ContextWithStaff(ctx context.Context, ident StaffIdentity) context.Context {
	return context.WithValue(ctx, staffContextKey{}, ident)
}

// StaffFromContext extracts the authenticated identity from context.
func StaffFromContext(ctx context.Context) (StaffIdentity, bool) {
	ident, ok := ctx.Value(staffContextKey{}).(StaffIdentity)
	return ident, ok
}
