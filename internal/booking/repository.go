package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/item-rental-backend/internal/item"
	"github.com/nekogravitycat/item-rental-backend/internal/user"
)

// Repository is the booking record store. It persists and queries; it does not
// enforce business rules beyond the status compare-and-set.
type Repository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id int64) (*Booking, error)

	// UpdateStatus moves a booking from one status to another atomically.
	// It returns ErrAlreadyDecided when the stored status no longer equals from.
	UpdateStatus(ctx context.Context, id int64, from, to Status) error

	// List runs a booker- or owner-scoped query ordered by start descending.
	List(ctx context.Context, filter Filter) (*Page, error)

	// FindRentalWindow returns the item's bookings that ended before now (start descending)
	// and its approved bookings starting after now (start ascending).
	FindRentalWindow(ctx context.Context, itemID int64, now time.Time) (last, next []*Booking, err error)

	FindByItemAndBooker(ctx context.Context, itemID, bookerID int64) ([]*Booking, error)

	// HasOverlap checks if a non-rejected booking of the item intersects [start, end).
	HasOverlap(ctx context.Context, itemID int64, start, end time.Time) (bool, error)
}

const bookingsFrom = "public.bookings b"

var bookingColumns = []string{
	"b.id", "b.item_id", "i.name", "i.owner_id", "b.booker_id", "u.name",
	"b.start_time", "b.end_time", "b.status", "b.created_at", "b.updated_at",
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func psql() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func selectBookings(extra ...string) squirrel.SelectBuilder {
	cols := append(append([]string{}, bookingColumns...), extra...)
	return psql().Select(cols...).
		From(bookingsFrom).
		Join("public.items i ON b.item_id = i.id").
		Join("public.users u ON b.booker_id = u.id")
}

func (r *pgxRepository) Create(ctx context.Context, b *Booking) error {
	query, args, err := psql().Insert("public.bookings").
		Columns("item_id", "booker_id", "start_time", "end_time", "status").
		Values(b.ItemID, b.BookerID, b.Start, b.End, b.Status.String()).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		var e *pgconn.PgError
		if errors.As(err, &e) && e.Code == pgerrcode.ForeignKeyViolation {
			if e.ConstraintName == "bookings_item_id_fkey" {
				return item.ErrNotFound
			}
			return user.ErrNotFound
		}
		return fmt.Errorf("create booking failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id int64) (*Booking, error) {
	query, args, err := selectBookings().
		Where(squirrel.Eq{"b.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	query, args, err := psql().Update("public.bookings").
		Set("status", to.String()).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "status": from.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking status query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update booking status failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		// Distinguish a missing row from a lost race on the status guard.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyDecided
	}
	return nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) (*Page, error) {
	where, err := listConditions(filter)
	if err != nil {
		return nil, err
	}

	page := normalizePage(filter)
	query := selectBookings("count(*) OVER() AS total_count").
		Where(where).
		OrderBy("b.start_time DESC", "b.id DESC").
		Limit(uint64(page.Size)).
		Offset(uint64(page.Index * page.Size))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b Booking
		var status string
		if err := rows.Scan(
			&b.ID, &b.ItemID, &b.ItemName, &b.ItemOwnerID, &b.BookerID, &b.BookerName,
			&b.Start, &b.End, &status, &b.CreatedAt, &b.UpdatedAt, &page.Total,
		); err != nil {
			return nil, fmt.Errorf("scan booking failed: %w", err)
		}
		if b.Status, err = decodeStoredStatus(status); err != nil {
			return nil, err
		}
		page.Items = append(page.Items, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookings failed: %w", err)
	}

	// The window count is only carried by returned rows.
	if len(page.Items) == 0 && page.Index > 0 {
		if page.Total, err = r.count(ctx, where); err != nil {
			return nil, err
		}
	}

	return page, nil
}

func (r *pgxRepository) count(ctx context.Context, where squirrel.And) (int, error) {
	sql, args, err := psql().Select("count(*)").
		From(bookingsFrom).
		Join("public.items i ON b.item_id = i.id").
		Where(where).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count bookings query failed: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count bookings failed: %w", err)
	}
	return total, nil
}

// listConditions translates a scoped filter into WHERE predicates.
func listConditions(filter Filter) (squirrel.And, error) {
	var where squirrel.And

	switch {
	case filter.BookerID != 0:
		where = append(where, squirrel.Eq{"b.booker_id": filter.BookerID})
	case filter.OwnerID != 0:
		where = append(where, squirrel.Eq{"i.owner_id": filter.OwnerID})
	default:
		return nil, fmt.Errorf("list bookings: filter has no booker or owner scope")
	}

	if filter.Status != nil {
		where = append(where, squirrel.Eq{"b.status": filter.Status.String()})
	}
	if filter.EndBefore != nil {
		where = append(where, squirrel.Lt{"b.end_time": *filter.EndBefore})
	}
	if filter.StartAfter != nil {
		where = append(where, squirrel.Gt{"b.start_time": *filter.StartAfter})
	}
	if filter.ActiveAt != nil {
		where = append(where,
			squirrel.LtOrEq{"b.start_time": *filter.ActiveAt},
			squirrel.GtOrEq{"b.end_time": *filter.ActiveAt},
		)
	}
	return where, nil
}

func (r *pgxRepository) FindRentalWindow(ctx context.Context, itemID int64, now time.Time) ([]*Booking, []*Booking, error) {
	lastQuery := selectBookings().
		Where(squirrel.Eq{"b.item_id": itemID}).
		Where(squirrel.Lt{"b.end_time": now}).
		OrderBy("b.start_time DESC")
	last, err := r.query(ctx, lastQuery)
	if err != nil {
		return nil, nil, fmt.Errorf("find last bookings failed: %w", err)
	}

	nextQuery := selectBookings().
		Where(squirrel.Eq{"b.item_id": itemID, "b.status": StatusApproved.String()}).
		Where(squirrel.Gt{"b.start_time": now}).
		OrderBy("b.start_time ASC")
	next, err := r.query(ctx, nextQuery)
	if err != nil {
		return nil, nil, fmt.Errorf("find next bookings failed: %w", err)
	}

	return last, next, nil
}

func (r *pgxRepository) FindByItemAndBooker(ctx context.Context, itemID, bookerID int64) ([]*Booking, error) {
	q := selectBookings().
		Where(squirrel.Eq{"b.item_id": itemID, "b.booker_id": bookerID}).
		OrderBy("b.start_time DESC")
	bookings, err := r.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find bookings by item and booker failed: %w", err)
	}
	return bookings, nil
}

func (r *pgxRepository) HasOverlap(ctx context.Context, itemID int64, start, end time.Time) (bool, error) {
	// Time overlaps: (NewStart < ExistingEnd) AND (NewEnd > ExistingStart)
	subQuery := psql().Select("1").
		From("public.bookings").
		Where(squirrel.Eq{"item_id": itemID}).
		Where(squirrel.NotEq{"status": StatusRejected.String()}).
		Where(squirrel.Lt{"start_time": end}).
		Where(squirrel.Gt{"end_time": start})

	sql, args, err := subQuery.ToSql()
	if err != nil {
		return false, fmt.Errorf("build check overlap query failed: %w", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS ("+sql+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check overlap failed: %w", err)
	}
	return exists, nil
}

func (r *pgxRepository) query(ctx context.Context, q squirrel.SelectBuilder) ([]*Booking, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var status string
	if err := row.Scan(
		&b.ID, &b.ItemID, &b.ItemName, &b.ItemOwnerID, &b.BookerID, &b.BookerName,
		&b.Start, &b.End, &status, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s, err := decodeStoredStatus(status)
	if err != nil {
		return nil, err
	}
	b.Status = s
	return &b, nil
}

// decodeStoredStatus parses a persisted status. A bad value is a storage fault and renders as 500.
func decodeStoredStatus(raw string) (Status, error) {
	s, err := ParseStatus(raw)
	if err != nil {
		return 0, fmt.Errorf("corrupt booking status %q in store", raw)
	}
	return s, nil
}

// normalizePage returns an empty page carrying the effective index and size.
func normalizePage(filter Filter) *Page {
	size := filter.PageSize
	if size < 1 {
		size = 10
	}
	index := filter.Page
	if index < 0 {
		index = 0
	}
	return &Page{Index: index, Size: size}
}
