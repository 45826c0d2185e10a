package workers

import "context"

// Runner finalizes one call. services.FinalizeService satisfies it.
type Runner interface {
	Run(ctx context.Context, callID string) error
}
