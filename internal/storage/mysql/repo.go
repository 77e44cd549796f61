package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"seminargo/internal/domain"
)

func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

type rowScanner interface{ Scan(dest ...any) error }

func scanHotel(row rowScanner) (domain.HotelRecord, error) {
	var h domain.HotelRecord
	var status string
	// plain []byte destinations: Scan copies, and unlike sql.RawBytes they
	// are legal on Row.Scan too
	err := row.Scan(
		&h.RowID, &h.ExternalID, &h.ReferenceCode, &h.Title, &h.BusinessName,
		&h.Address1, &h.Address2, &h.Address3, &h.Address4,
		&h.Zip, &h.City, &h.Country, &h.Email, &h.FullAddress,
		&h.Latitude, &h.Longitude, &h.DistanceAirport, &h.DistanceRail,
		&h.Rating, &h.Stars,
		&h.Capacity, &h.MeetingRoomCount,
		&h.Texts, &h.Attributes, &h.Amenities, &h.MeetingRooms, &h.CancellationRules, &h.Media,
		&status, &h.UpdatedAt,
	)
	if err != nil {
		return domain.HotelRecord{}, err
	}
	h.Status = domain.HotelStatus(status)
	return h, nil
}

func (r *Repo) Find(ctx context.Context, externalID, referenceCode string) (*domain.HotelRecord, error) {
	row := r.db.QueryRowContext(ctx, findHotelSQL, externalID, referenceCode, referenceCode, externalID)
	h, err := scanHotel(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find hotel %s: %w", externalID, err)
	}
	return &h, nil
}

func (r *Repo) Insert(ctx context.Context, h domain.HotelRecord) error {
	_, err := r.db.ExecContext(ctx, insertHotelSQL,
		h.ExternalID, h.ReferenceCode, h.Title, h.BusinessName,
		h.Address1, h.Address2, h.Address3, h.Address4,
		h.Zip, h.City, h.Country, h.Email, h.FullAddress,
		h.Latitude, h.Longitude, h.DistanceAirport, h.DistanceRail,
		h.Rating, h.Stars,
		h.Capacity, h.MeetingRoomCount,
		valJSON(h.Texts), valJSON(h.Attributes), valJSON(h.Amenities),
		valJSON(h.MeetingRooms), valJSON(h.CancellationRules), valJSON(h.Media),
	)
	if err != nil {
		return fmt.Errorf("insert hotel %s: %w", h.ExternalID, err)
	}
	return nil
}

// UpdateFields writes only the given columns (keys must come from
// domain.FieldKinds) and forces the record back to active.
func (r *Repo) UpdateFields(ctx context.Context, rowID int64, cols map[string]any) error {
	if len(cols) == 0 {
		cols = map[string]any{}
	}
	names := make([]string, 0, len(cols))
	for k := range cols {
		if _, ok := domain.FieldKinds[k]; !ok {
			return fmt.Errorf("update hotel row %d: unknown field %q", rowID, k)
		}
		names = append(names, k)
	}
	sort.Strings(names)

	var sb strings.Builder
	args := make([]any, 0, len(names)+1)
	sb.WriteString("UPDATE hotels SET ")
	for _, n := range names {
		sb.WriteString(n)
		sb.WriteString(" = ?, ")
		args = append(args, cols[n])
	}
	sb.WriteString("status = 'active', updated_at = CURRENT_TIMESTAMP WHERE id = ?")
	args = append(args, rowID)

	if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("update hotel row %d: %w", rowID, err)
	}
	return nil
}

func (r *Repo) RepairExternalID(ctx context.Context, rowID int64, externalID string) error {
	if _, err := r.db.ExecContext(ctx, repairExternalIDSQL, externalID, rowID); err != nil {
		return fmt.Errorf("repair external id on row %d: %w", rowID, err)
	}
	return nil
}

func (r *Repo) MarkWithdrawn(ctx context.Context, externalID string) error {
	if _, err := r.db.ExecContext(ctx, markWithdrawnSQL, externalID); err != nil {
		return fmt.Errorf("withdraw hotel %s: %w", externalID, err)
	}
	return nil
}

func (r *Repo) ListActiveIDs(ctx context.Context) ([]string, error) {
	return r.listStrings(ctx, listActiveIDsSQL)
}

func (r *Repo) DuplicateExternalIDs(ctx context.Context) ([]string, error) {
	return r.listStrings(ctx, duplicateExternalIDsSQL)
}

func (r *Repo) DuplicateReferenceCodes(ctx context.Context) ([]string, error) {
	return r.listStrings(ctx, duplicateReferenceCodesSQL)
}

func (r *Repo) listStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) ListByExternalID(ctx context.Context, externalID string) ([]domain.HotelRecord, error) {
	return r.listHotels(ctx, listByExternalIDSQL, externalID)
}

func (r *Repo) ListByReferenceCode(ctx context.Context, referenceCode string) ([]domain.HotelRecord, error) {
	return r.listHotels(ctx, listByReferenceCodeSQL, referenceCode)
}

func (r *Repo) listHotels(ctx context.Context, query string, args ...any) ([]domain.HotelRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.HotelRecord
	for rows.Next() {
		h, err := scanHotel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *Repo) Trash(ctx context.Context, rowID int64) error {
	if _, err := r.db.ExecContext(ctx, trashSQL, rowID); err != nil {
		return fmt.Errorf("trash hotel row %d: %w", rowID, err)
	}
	return nil
}

func (r *Repo) GetHotel(ctx context.Context, externalID string) (domain.HotelRecord, error) {
	row := r.db.QueryRowContext(ctx, getHotelSQL, externalID)
	h, err := scanHotel(row)
	if err == sql.ErrNoRows {
		return domain.HotelRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.HotelRecord{}, fmt.Errorf("get hotel %s: %w", externalID, err)
	}
	return h, nil
}

func (r *Repo) ListHotels(ctx context.Context, limit int) ([]domain.HotelRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return r.listHotels(ctx, listHotelsSQL, limit)
}
