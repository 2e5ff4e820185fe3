// Package table renders scan results as CSV text, one row per sampled block.
package table

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/Layr-Labs/state-sampler/pkg/sampler"
	"github.com/Layr-Labs/state-sampler/pkg/values"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/gocarina/gocsv"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type Layout string

const (
	// Layout_Wide writes one row per block: the block number followed by every output.
	Layout_Wide Layout = "wide"
	// Layout_Long writes one row per output: block, output index, output name, value.
	Layout_Long Layout = "long"
)

type Options struct {
	Layout Layout
	// Header adds a header row. Output names come from Outputs.
	Header  bool
	Outputs abi.Arguments
	// Decimals scales integer values by 10^-Decimals when non zero.
	Decimals int32
}

// LongRow is one output value of one sample in the long layout.
type LongRow struct {
	Block uint64 `csv:"block"`
	Index int    `csv:"index"`
	Name  string `csv:"name"`
	Value string `csv:"value"`
}

// Serialize renders samples in the wide layout without a header.
func Serialize(samples []sampler.Sample) string {
	var buf bytes.Buffer
	// writes to a bytes.Buffer do not fail
	_ = Write(&buf, samples, nil)
	return buf.String()
}

// Write renders samples to w.
func Write(w io.Writer, samples []sampler.Sample, opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}
	if opts.Layout == Layout_Long {
		return writeLong(w, samples, opts)
	}
	return writeWide(w, samples, opts)
}

// Row formats a single sample as wide-layout fields.
func Row(sample sampler.Sample, decimals int32) []string {
	row := make([]string, 0, len(sample.Values)+1)
	row = append(row, strconv.FormatUint(sample.BlockNumber, 10))
	for _, v := range sample.Values {
		row = append(row, formatValue(v, decimals))
	}
	return row
}

func formatValue(v values.Value, decimals int32) string {
	if decimals != 0 {
		return values.FormatScaled(v, decimals)
	}
	return values.Format(v)
}

func writeWide(w io.Writer, samples []sampler.Sample, opts *Options) error {
	writer := gocsv.DefaultCSVWriter(w)
	if opts.Header {
		header := append([]string{"block"}, OutputNames(opts.Outputs)...)
		if err := writer.Write(header); err != nil {
			return err
		}
	}
	for _, sample := range samples {
		if err := writer.Write(Row(sample, opts.Decimals)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeLong(w io.Writer, samples []sampler.Sample, opts *Options) error {
	names := OutputNames(opts.Outputs)
	rows := make([]*LongRow, 0, len(samples))
	for _, sample := range samples {
		for i, v := range sample.Values {
			name := fmt.Sprintf("output_%d", i)
			if i < len(names) {
				name = names[i]
			}
			rows = append(rows, &LongRow{
				Block: sample.BlockNumber,
				Index: i,
				Name:  name,
				Value: formatValue(v, opts.Decimals),
			})
		}
	}

	writer := gocsv.DefaultCSVWriter(w)
	if opts.Header {
		return gocsv.MarshalCSV(rows, writer)
	}
	return gocsv.MarshalCSVWithoutHeaders(rows, writer)
}

// OutputNames returns one unique column name per output. Unnamed outputs are called
// output_<index>, repeated names get a numeric suffix.
func OutputNames(outputs abi.Arguments) []string {
	seen := orderedmap.New[string, int]()
	for i, output := range outputs {
		name := output.Name
		if name == "" {
			name = fmt.Sprintf("output_%d", i)
		}
		candidate := name
		for n := 1; ; n++ {
			if _, exists := seen.Get(candidate); !exists {
				break
			}
			candidate = fmt.Sprintf("%s_%d", name, n)
		}
		seen.Set(candidate, i)
	}

	names := make([]string, 0, seen.Len())
	for pair := seen.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}
