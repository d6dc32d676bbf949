package llm

import (
	"context"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/ports"
)

var _ ports.TextGenerator = Disabled{}

// Disabled is the generator used when no provider is configured.
// Every call fails, so analyses carry the templated summary.
type Disabled struct{}

// Name identifies the provider.
func (Disabled) Name() string { return "none" }

// Generate always returns ErrDisabled.
func (Disabled) Generate(context.Context, string, ports.GenerationParams) (string, error) {
	return "", ErrDisabled
}
