// Package sampleStore defines how finished scans are persisted.
package sampleStore

import (
	"time"

	"github.com/lib/pq"
)

type HistoricalSample struct {
	ScanId          string
	ContractAddress string
	FunctionName    string
	BlockNumber     uint64
	ValueIndex      int
	Value           string
	CreatedAt       time.Time `gorm:"->"`
}

func (HistoricalSample) TableName() string {
	return "historical_samples"
}

type SampleScan struct {
	ScanId           string `gorm:"primaryKey"`
	ContractAddress  string
	FunctionName     string
	ResolvedEndBlock uint64
	SampleCount      int
	SkippedBlocks    pq.Int64Array `gorm:"type:bigint[]"`
	Digest           string
	CreatedAt        time.Time `gorm:"->"`
}

func (SampleScan) TableName() string {
	return "sample_scans"
}

type SampleStore interface {
	GetScan(scanId string) (*SampleScan, error)
	GetSamplesForScan(scanId string) ([]*HistoricalSample, error)
}
