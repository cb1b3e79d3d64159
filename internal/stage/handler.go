package stage

import (
	"context"

	"podnotes/internal/ledger"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *ledger.Episode) error
	Execute(context.Context, *ledger.Episode) error
	HealthCheck(context.Context) Health
}
