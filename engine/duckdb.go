// Package engine runs deferred frames on DuckDB and returns Arrow tables.
// It uses duckdb.Arrow, so builds need the duckdb_arrow tag.
package engine

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/duckdb/duckdb-go/v2"

	"github.com/hugr-lab/planbridge/bridgeerr"
	"github.com/hugr-lab/planbridge/table"
	"github.com/hugr-lab/planbridge/translate"
)

// seedStream is the transient Arrow view the seed is copied out of.
const seedStream = translate.SeedRelation + "_stream"

// Options configures the embedded database.
type Options struct {
	// Threads caps DuckDB worker threads. Zero keeps the DuckDB default.
	Threads int

	// MemoryLimit is a DuckDB size string such as "2GB". Empty keeps the default.
	MemoryLimit string

	// Allocator backs result tables. Defaults to memory.DefaultAllocator.
	Allocator memory.Allocator
}

// DuckDB is an in-memory DuckDB instance. Each Collect runs on its own
// connection so seed relations never leak between calls.
type DuckDB struct {
	connector *duckdb.Connector
	db        *sql.DB
	mem       memory.Allocator
}

// Open creates an in-memory database.
func Open(opts Options) (*DuckDB, error) {
	connector, err := duckdb.NewConnector(dsn(opts), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	mem := opts.Allocator
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &DuckDB{
		connector: connector,
		db:        sql.OpenDB(connector),
		mem:       mem,
	}, nil
}

func dsn(opts Options) string {
	q := url.Values{}
	if opts.Threads > 0 {
		q.Set("threads", strconv.Itoa(opts.Threads))
	}
	if opts.MemoryLimit != "" {
		q.Set("memory_limit", opts.MemoryLimit)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// Close shuts the database down.
func (d *DuckDB) Close() error {
	return d.db.Close()
}

// Version returns the DuckDB library version, e.g. "v1.4.1".
func (d *DuckDB) Version(ctx context.Context) (string, error) {
	return queryVersion(ctx, d.db)
}

func queryVersion(ctx context.Context, db *sql.DB) (string, error) {
	var version string
	if err := db.QueryRowContext(ctx, "SELECT library_version FROM pragma_version()").Scan(&version); err != nil {
		return "", fmt.Errorf("failed to query engine version: %w", err)
	}
	return version, nil
}

// Collect renders f and executes it once, materializing a single-batch table.
func (d *DuckDB) Collect(ctx context.Context, f *translate.Frame) (*table.Table, error) {
	var out *table.Table
	err := d.withSession(ctx, f, func(s *session) error {
		query, err := f.Render(ctx, s)
		if err != nil {
			return err
		}
		rdr, err := s.arrow.QueryContext(ctx, query)
		if err != nil {
			return executionError(f, err)
		}
		defer rdr.Release()

		out, err = table.FromReader(d.mem, rdr)
		if err != nil {
			return executionError(f, err)
		}
		return nil
	})
	return out, err
}

// Schema binds f without producing rows and returns its result schema.
func (d *DuckDB) Schema(ctx context.Context, f *translate.Frame) (*arrow.Schema, error) {
	var schema *arrow.Schema
	err := d.withSession(ctx, f, func(s *session) error {
		query, err := f.Render(ctx, s)
		if err != nil {
			return err
		}
		schema, err = s.schema(ctx, query)
		if err != nil {
			return executionError(f, err)
		}
		return nil
	})
	return schema, err
}

// session is one connection with the frame's seed registered.
type session struct {
	conn  driver.Conn
	arrow *duckdb.Arrow
}

// Columns implements translate.ColumnResolver.
func (s *session) Columns(ctx context.Context, query string) ([]string, error) {
	schema, err := s.schema(ctx, query)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.ExecutionCode, err, "failed to resolve columns")
	}
	names := make([]string, schema.NumFields())
	for i, f := range schema.Fields() {
		names[i] = f.Name
	}
	return names, nil
}

func (s *session) schema(ctx context.Context, query string) (*arrow.Schema, error) {
	rdr, err := s.arrow.QueryContext(ctx, "SELECT * FROM ("+query+") AS q LIMIT 0")
	if err != nil {
		return nil, err
	}
	defer rdr.Release()
	return rdr.Schema(), nil
}

func (s *session) exec(ctx context.Context, query string) error {
	execer, ok := s.conn.(driver.ExecerContext)
	if !ok {
		return fmt.Errorf("duckdb connection does not support exec")
	}
	_, err := execer.ExecContext(ctx, query, nil)
	return err
}

func (d *DuckDB) withSession(ctx context.Context, f *translate.Frame, fn func(*session) error) error {
	conn, err := d.connector.Connect(ctx)
	if err != nil {
		return bridgeerr.Wrap(bridgeerr.ExecutionCode, err, "failed to connect to engine")
	}
	defer conn.Close()

	ar, err := duckdb.NewArrowFromConn(conn)
	if err != nil {
		return bridgeerr.Wrap(bridgeerr.ExecutionCode, err, "failed to open arrow interface")
	}
	s := &session{conn: conn, arrow: ar}

	if seed := f.Seed(); seed != nil {
		if err := s.registerSeed(ctx, seed); err != nil {
			return err
		}
	}
	return fn(s)
}

// registerSeed copies the seed into a connection-local temp table. An Arrow
// view over a stream can only be scanned once, and rendering may bind the
// seed several times before the final query runs.
func (s *session) registerSeed(ctx context.Context, seed *table.Table) error {
	rdr, err := array.NewRecordReader(seed.Schema(), []arrow.RecordBatch{seed.Record()})
	if err != nil {
		return bridgeerr.Wrap(bridgeerr.ArrowImportCode, err, "failed to read input table")
	}
	defer rdr.Release()

	release, err := s.arrow.RegisterView(rdr, seedStream)
	if err != nil {
		return bridgeerr.Wrap(bridgeerr.ArrowImportCode, err, "failed to register input table")
	}
	defer release()

	create := "CREATE TEMP TABLE " + quoteIdent(translate.SeedRelation) +
		" AS SELECT * FROM " + quoteIdent(seedStream)
	if err := s.exec(ctx, create); err != nil {
		return bridgeerr.Wrap(bridgeerr.ArrowImportCode, err, "failed to load input table")
	}
	if err := s.exec(ctx, "DROP VIEW IF EXISTS "+quoteIdent(seedStream)); err != nil {
		return bridgeerr.Wrap(bridgeerr.ExecutionCode, err, "failed to drop input stream")
	}
	return nil
}

func executionError(f *translate.Frame, err error) error {
	if sources := f.Sources(); len(sources) > 0 {
		return bridgeerr.Executionf("failed to collect query over '%s': %v", strings.Join(sources, "', '"), err)
	}
	return bridgeerr.Wrap(bridgeerr.ExecutionCode, err, "failed to collect query")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
