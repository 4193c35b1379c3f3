package fetcher

import (
	"context"

	"github.com/shopspring/decimal"
)

// Source is one external price provider. FetchCurrent resolves current
// prices for the requested canonical symbols; symbols the provider cannot
// serve are simply absent from the result. Provider-specific identifiers
// never leak past the adapter boundary.
type Source interface {
	Name() string
	FetchCurrent(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}
