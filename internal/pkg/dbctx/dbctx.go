// Package dbctx threads a request context and an optional transaction
// through the repo layer with one argument.
package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
// Repos fall back to their base pool when Tx is nil; services that need
// atomicity (the envelope version bump, conflict resolution) pass a Tx so
// every touched row commits or rolls back together.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}
