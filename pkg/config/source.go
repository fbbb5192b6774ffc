package config

import (
	"context"
	"fmt"

	"github.com/tunogya/twin/pkg/data"
	"github.com/tunogya/twin/pkg/store/duckdb"
	"github.com/tunogya/twin/pkg/store/sqlite"
)

// Source is an opened data provider. DuckDB is set only for the duckdb
// provider, which is also the only one that stores presets.
type Source struct {
	Provider data.Provider
	DuckDB   *duckdb.Store
	close    func() error
}

// Close releases the underlying store
func (s *Source) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenSource opens the provider selected by c.Provider
func (c *Config) OpenSource(ctx context.Context) (*Source, error) {
	switch c.Provider {
	case ProviderDuckDB:
		st, err := duckdb.Open(ctx, c.DuckDB.Path)
		if err != nil {
			return nil, err
		}
		return &Source{Provider: st, DuckDB: st, close: st.Close}, nil
	case ProviderSQLite:
		st, err := sqlite.Open(c.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return &Source{Provider: st, close: st.Close}, nil
	case ProviderCSV:
		return &Source{Provider: data.NewCSVProvider(c.CSV.Snapshots, c.CSV.Prices)}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", c.Provider)
	}
}
