package contractAbi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const artifact = `{
	"contractName": "AutocompoundLP",
	"abi": [
		{"type": "function", "name": "totalAssetsSync", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "uint256"}]}
	],
	"bytecode": "0x6080",
	"metadata": {}
}`

func Test_ParseArtifact(t *testing.T) {
	t.Run("Parses the abi field of an artifact", func(t *testing.T) {
		a, err := ParseArtifact([]byte(artifact))
		require.NoError(t, err)

		method, ok := a.Methods["totalAssetsSync"]
		require.True(t, ok)
		assert.Len(t, method.Outputs, 1)
		assert.True(t, method.IsConstant())
	})
	t.Run("Missing abi field", func(t *testing.T) {
		_, err := ParseArtifact([]byte(`{"bytecode": "0x"}`))
		assert.ErrorIs(t, err, ErrArtifactInvalid)
	})
	t.Run("abi field is not an array", func(t *testing.T) {
		_, err := ParseArtifact([]byte(`{"abi": {"type": "function"}}`))
		assert.ErrorIs(t, err, ErrArtifactInvalid)

		_, err = ParseArtifact([]byte(`{"abi": "[]"}`))
		assert.ErrorIs(t, err, ErrArtifactInvalid)
	})
	t.Run("Not a JSON object", func(t *testing.T) {
		_, err := ParseArtifact([]byte(`[]`))
		assert.ErrorIs(t, err, ErrArtifactInvalid)
	})
}

func Test_LoadArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "AutocompoundLP.json")
	require.NoError(t, os.WriteFile(path, []byte(artifact), 0600))

	a, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Contains(t, a.Methods, "totalAssetsSync")

	_, err = LoadArtifact(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrArtifactInvalid)
}
