package http

import (
	"github.com/aretw0/pdasim/internal/testutils"
	"github.com/aretw0/pdasim/pkg/adapters/memory"
)

func newLoader() (*memory.Loader, error) {
	return memory.NewFromDefinitions(testutils.BalancedDefinition("aabb"))
}
