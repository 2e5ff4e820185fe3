package _202610150900_historicalSamples

import (
	"database/sql"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB) error {
	queries := []string{
		`create table if not exists historical_samples (
			scan_id uuid not null,
			contract_address varchar not null,
			function_name varchar not null,
			block_number bigint not null,
			value_index integer not null,
			value text not null,
			created_at timestamp with time zone default current_timestamp,
			unique(scan_id, block_number, value_index)
		)`,
		`create index if not exists idx_historical_samples_contract_block on historical_samples (contract_address, function_name, block_number)`,
	}

	for _, query := range queries {
		if res := grm.Exec(query); res.Error != nil {
			return errors.Wrapf(res.Error, "failed to execute query: %s", query)
		}
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202610150900_historicalSamples"
}
