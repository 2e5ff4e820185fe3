package contractAbi

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"
)

var ErrArtifactInvalid = errors.New("artifact invalid")

// LoadArtifact reads a compiler artifact (hardhat, foundry, truffle) from disk and parses its abi field.
func LoadArtifact(path string) (*abi.ABI, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read artifact '%s'", path)
	}
	a, err := ParseArtifact(contents)
	if err != nil {
		return nil, errors.Wrapf(err, "artifact '%s'", path)
	}
	return a, nil
}

// ParseArtifact expects a JSON object with an "abi" array; every other field is ignored.
func ParseArtifact(contents []byte) (*abi.ABI, error) {
	artifact := map[string]json.RawMessage{}
	if err := json.Unmarshal(contents, &artifact); err != nil {
		return nil, errors.Wrap(ErrArtifactInvalid, err.Error())
	}

	abiField, ok := artifact["abi"]
	if !ok {
		return nil, errors.Wrap(ErrArtifactInvalid, "missing abi field")
	}
	if trimmed := bytes.TrimSpace(abiField); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.Wrap(ErrArtifactInvalid, "abi field is not an array")
	}

	parsed, err := abi.JSON(bytes.NewReader(abiField))
	if err != nil {
		return nil, errors.Wrap(ErrArtifactInvalid, err.Error())
	}
	return &parsed, nil
}
