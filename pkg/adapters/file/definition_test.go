package file_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/pdasim/internal/testutils"
	"github.com/aretw0/pdasim/pkg/adapters/file"
	"github.com/aretw0/pdasim/pkg/automaton"
	"github.com/aretw0/pdasim/pkg/domain"
	contract "github.com/aretw0/pdasim/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadDefinition(t *testing.T) {
	dir := t.TempDir()
	def := testutils.BalancedDefinition("aabb")

	for _, name := range []string{"balanced.json", "balanced.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, file.WriteDefinition(path, def))

			got, err := file.ReadDefinition(path)
			require.NoError(t, err)
			assert.Equal(t, def, *got)
		})
	}
}

func TestReadDefinition_NameFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anbn.yml")
	doc := `
states: [q0, q1, q2]
alphabet: [a, b]
stack_symbols: [Z, A]
initial_state: q0
initial_stack_symbol: Z
accept_states: [q2]
input_string: aabb
rules: |
  q0,a,Z→q0,AZ
  q0,a,A→q0,AA
  q0,b,A→q1,ε
  q1,b,A→q1,ε
  q1,ε,Z→q2,Z
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	def, err := file.ReadDefinition(path)
	require.NoError(t, err)
	assert.Equal(t, "anbn", def.Name)
	assert.Equal(t, testutils.BalancedDefinition("").Transitions, def.Transitions)

	_, err = automaton.FromDefinition(*def)
	require.NoError(t, err)

	_, err = file.ReadDefinition(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestFileLoader_Contract(t *testing.T) {
	dir := t.TempDir()
	balanced := testutils.BalancedDefinition("aabb")
	palindrome := testutils.PalindromeDefinition("abba")
	require.NoError(t, file.WriteDefinition(filepath.Join(dir, "balanced.json"), balanced))
	require.NoError(t, file.WriteDefinition(filepath.Join(dir, "palindrome.yaml"), palindrome))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# not a definition"), 0644))

	contract.DefinitionLoaderContract(t, file.NewLoader(dir), map[string]domain.Definition{
		"balanced":   balanced,
		"palindrome": palindrome,
	})
}
