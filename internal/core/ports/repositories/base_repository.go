package repositories

import (
	"context"
)

// TransactionManager runs a unit of work inside one store transaction.
type TransactionManager interface {
	// WithinTx runs fn with a transaction bound to the context it receives.
	// Repository calls made with that context join the transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RepositoryWithTx is a marker interface for repositories that support transactions
type RepositoryWithTx interface {
	TransactionManager
}
