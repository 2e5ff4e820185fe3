package sink

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Layr-Labs/state-sampler/pkg/sampler"
	"github.com/Layr-Labs/state-sampler/pkg/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fixtureScan() *Scan {
	return &Scan{
		FunctionName: "totalAssets",
		Result: &sampler.ScanResult{
			Samples: []sampler.Sample{
				{BlockNumber: 100, Values: []values.Value{values.NewUint64(42)}},
				{BlockNumber: 200, Values: []values.Value{values.NewUint64(43)}},
			},
		},
	}
}

type failingSink struct{ calls int }

func (f *failingSink) Write(ctx context.Context, scan *Scan) error {
	f.calls++
	return errors.New("disk full")
}

func Test_FileSink(t *testing.T) {
	t.Run("Writes the table to a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "samples.csv")
		fs := NewFileSink(path, nil, zap.NewNop())

		require.NoError(t, fs.Write(context.Background(), fixtureScan()))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "100,42\n200,43\n", string(data))
	})
	t.Run("Dash writes to stdout", func(t *testing.T) {
		var buf bytes.Buffer
		fs := NewFileSink(Stdout, nil, zap.NewNop())
		fs.stdout = &buf

		require.NoError(t, fs.Write(context.Background(), fixtureScan()))
		assert.Equal(t, "100,42\n200,43\n", buf.String())
	})
	t.Run("Missing directories are an error", func(t *testing.T) {
		fs := NewFileSink(filepath.Join(t.TempDir(), "missing", "samples.csv"), nil, zap.NewNop())
		assert.Error(t, fs.Write(context.Background(), fixtureScan()))
	})
	t.Run("WriteAll stops at the first failure", func(t *testing.T) {
		first, second := &failingSink{}, &failingSink{}
		err := WriteAll(context.Background(), fixtureScan(), first, second)
		assert.Error(t, err)
		assert.Equal(t, 1, first.calls)
		assert.Equal(t, 0, second.calls)
	})
}
