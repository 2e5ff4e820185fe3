package _202610150930_sampleScans

import (
	"database/sql"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB) error {
	queries := []string{
		`create table if not exists sample_scans (
			scan_id uuid primary key,
			contract_address varchar not null,
			function_name varchar not null,
			resolved_end_block bigint not null,
			sample_count integer not null,
			skipped_blocks bigint[] not null default '{}',
			digest varchar not null,
			created_at timestamp with time zone default current_timestamp
		)`,
	}

	for _, query := range queries {
		if res := grm.Exec(query); res.Error != nil {
			return errors.Wrapf(res.Error, "failed to execute query: %s", query)
		}
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202610150930_sampleScans"
}
