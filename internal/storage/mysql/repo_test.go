package mysql_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"testing"
	"time"

	mysqlrepo "seminargo/internal/storage/mysql"
)

// rowDriver serves a fixed result set for every query, so the scan path can
// be exercised without a running MySQL server.
type rowDriver struct {
	cols []string
	rows [][]driver.Value
}

func (d *rowDriver) Open(string) (driver.Conn, error) { return &rowConn{d: d}, nil }

type rowConn struct{ d *rowDriver }

func (c *rowConn) Prepare(string) (driver.Stmt, error) { return &rowStmt{d: c.d}, nil }
func (c *rowConn) Close() error                        { return nil }
func (c *rowConn) Begin() (driver.Tx, error)           { return nil, driver.ErrSkip }

type rowStmt struct{ d *rowDriver }

func (s *rowStmt) Close() error  { return nil }
func (s *rowStmt) NumInput() int { return -1 }

func (s *rowStmt) Exec([]driver.Value) (driver.Result, error) {
	return driver.ResultNoRows, nil
}

func (s *rowStmt) Query([]driver.Value) (driver.Rows, error) {
	return &rowSet{cols: s.d.cols, rows: s.d.rows}, nil
}

type rowSet struct {
	cols []string
	rows [][]driver.Value
	i    int
}

func (r *rowSet) Columns() []string { return r.cols }
func (r *rowSet) Close() error      { return nil }

func (r *rowSet) Next(dest []driver.Value) error {
	if r.i >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.i])
	r.i++
	return nil
}

var hotelCols = []string{
	"id", "external_id", "reference_code", "title", "business_name",
	"address1", "address2", "address3", "address4",
	"zip", "city", "country", "email", "full_address",
	"latitude", "longitude", "distance_airport", "distance_rail",
	"rating", "stars", "capacity", "meeting_room_count",
	"texts", "attributes", "amenities", "meeting_rooms", "cancellation_rules", "media",
	"status", "updated_at",
}

func hotelRow() []driver.Value {
	return []driver.Value{
		int64(1), "7", "SEM-7", "Hotel Alpenblick", "Alpenblick GmbH",
		"Seestrasse 1", "", "", "",
		"6047", "Kastanienbaum", "CH", "info@alpenblick.example", "Seestrasse 1, 6047 Kastanienbaum",
		47.0, 8.33, 54.2, 3.1,
		8.4, 4.0, int64(120), int64(2),
		[]byte(`{"description":"Seehotel"}`), []byte(`[]`), []byte(`{"wellness":["sauna"]}`),
		[]byte(`[{"name":"Rigi","capacity":60}]`), nil, []byte(`["https://img.example/1.jpg"]`),
		"active", time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Find and GetHotel go through QueryRowContext, which forbids sql.RawBytes
// destinations; this guards the single-row scan path end to end.
func TestFind_ScansSingleRow(t *testing.T) {
	sql.Register("hotelrow", &rowDriver{cols: hotelCols, rows: [][]driver.Value{hotelRow()}})
	db, err := sql.Open("hotelrow", "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	repo := mysqlrepo.New(db)
	ctx := context.Background()

	h, err := repo.Find(ctx, "7", "SEM-7")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if h == nil {
		t.Fatal("expected a record")
	}
	if h.ExternalID != "7" || h.Title != "Hotel Alpenblick" || h.Capacity != 120 {
		t.Fatalf("unexpected record: %+v", h)
	}
	if string(h.Texts) != `{"description":"Seehotel"}` {
		t.Fatalf("texts blob not scanned: %q", h.Texts)
	}
	if string(h.MeetingRooms) != `[{"name":"Rigi","capacity":60}]` {
		t.Fatalf("meeting rooms blob not scanned: %q", h.MeetingRooms)
	}
	if h.CancellationRules != nil {
		t.Fatalf("NULL column should scan as nil, got %q", h.CancellationRules)
	}

	got, err := repo.GetHotel(ctx, "7")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RowID != 1 || string(got.Amenities) != `{"wellness":["sauna"]}` {
		t.Fatalf("unexpected record: %+v", got)
	}
}
