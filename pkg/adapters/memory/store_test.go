package memory_test

import (
	"testing"

	"github.com/aretw0/pdasim/pkg/adapters/memory"
	contract "github.com/aretw0/pdasim/pkg/ports/tests"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	contract.RunStoreContract(t, store)
}
