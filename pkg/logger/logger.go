// Package logger builds the structured logger threaded through every silo
// subsystem, from the top-level Open call down into the store and
// compactor.
package logger

import (
	"go.uber.org/zap"
)

// New builds a production zap logger tagged with the given service name
// and returns it pre-sugared, matching the *zap.SugaredLogger type every
// subsystem Config struct expects.
//
// If the production logger cannot be built (which in practice only
// happens under misconfigured zap encoder options), a no-op logger is
// returned instead of panicking — a logging failure should never prevent
// the store itself from opening.
func New(service string) *zap.SugaredLogger {
	base, err := zap.NewProduction()
	if err != nil {
		base = zap.NewNop()
	}
	return base.Sugar().With("service", service)
}
