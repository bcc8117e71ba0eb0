package event

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/bjzgcai/calendar/internal/tracing"
)

// PostgresRepository implements Repository over PostgreSQL via
// database/sql and lib/pq.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a Postgres-backed event repository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const eventColumns = `id, title, content, image_url, link, location,
	start_time, end_time, organizer, organization_type, event_type, tags,
	recurrence_rule, recurrence_end_date, date_precision, approximate_month,
	required_attendees, creator_id, created_at, updated_at`

// Create stores a new event and returns the row as persisted.
func (r *PostgresRepository) Create(ctx context.Context, e *Event) (created *Event, err error) {
	ctx, end := tracing.StartDBSpan(ctx, "events", tracing.DBOperationInsert)
	defer func() { end(err) }()

	query := `
		INSERT INTO events (
			title, content, image_url, link, location,
			start_time, end_time, organizer, organization_type, event_type,
			tags, recurrence_rule, recurrence_end_date, date_precision,
			approximate_month, required_attendees, creator_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, NOW(), NOW())
		RETURNING ` + eventColumns

	row := r.db.QueryRowContext(ctx, query,
		e.Title, nullString(e.Content), nullString(e.ImageURL),
		nullString(e.Link), nullString(e.Location),
		e.StartTime, e.EndTime,
		nullString(e.Organizer), string(e.OrganizationType),
		nullString(e.EventType), e.Tags,
		string(e.RecurrenceRule), e.RecurrenceEndDate,
		string(e.DatePrecision), nullString(e.ApproximateMonth),
		nullString(e.RequiredAttendees), e.CreatorID,
	)
	created, err = scanEvent(row)
	return created, err
}

// GetByID retrieves one event.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (e *Event, err error) {
	ctx, end := tracing.StartDBSpan(ctx, "events", tracing.DBOperationQuery)
	defer func() { end(err) }()

	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err = scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	return e, err
}

// Update replaces the event's mutable fields and bumps updated_at.
// Last write wins; there is no version column.
func (r *PostgresRepository) Update(ctx context.Context, id int64, e *Event) (updated *Event, err error) {
	ctx, end := tracing.StartDBSpan(ctx, "events", tracing.DBOperationUpdate)
	defer func() { end(err) }()

	query := `
		UPDATE events SET
			title = $2, content = $3, image_url = $4, link = $5,
			location = $6, start_time = $7, end_time = $8, organizer = $9,
			organization_type = $10, event_type = $11, tags = $12,
			recurrence_rule = $13, recurrence_end_date = $14,
			date_precision = $15, approximate_month = $16,
			required_attendees = $17, creator_id = $18, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + eventColumns

	row := r.db.QueryRowContext(ctx, query, id,
		e.Title, nullString(e.Content), nullString(e.ImageURL),
		nullString(e.Link), nullString(e.Location),
		e.StartTime, e.EndTime,
		nullString(e.Organizer), string(e.OrganizationType),
		nullString(e.EventType), e.Tags,
		string(e.RecurrenceRule), e.RecurrenceEndDate,
		string(e.DatePrecision), nullString(e.ApproximateMonth),
		nullString(e.RequiredAttendees), e.CreatorID,
	)
	updated, err = scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	return updated, err
}

// Delete hard-deletes an event.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (deleted bool, err error) {
	ctx, end := tracing.StartDBSpan(ctx, "events", tracing.DBOperationDelete)
	defer func() { end(err) }()

	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete event: %w", err)
	}
	return n > 0, nil
}

// List compiles the filter into SQL conditions. The clauses mirror
// Filter.Matches exactly: closed-interval time containment, OR'd LIKE
// matches for event types and organizers, AND'd LIKE matches for tags,
// and the tri-state creator clause.
func (r *PostgresRepository) List(ctx context.Context, f Filter, p Pagination) (events []*Event, err error) {
	ctx, end := tracing.StartDBSpan(ctx, "events", tracing.DBOperationQuery)
	defer func() { end(err) }()

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.StartDate != nil {
		conds = append(conds, "start_time >= "+arg(*f.StartDate))
	}
	if f.EndDate != nil {
		conds = append(conds, "end_time <= "+arg(*f.EndDate))
	}
	if tokens := SplitList(f.EventTypes); len(tokens) > 0 {
		ors := make([]string, 0, len(tokens))
		for _, t := range tokens {
			ors = append(ors, "event_type LIKE "+arg("%"+t+"%"))
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}
	if tokens := SplitList(f.Organizers); len(tokens) > 0 {
		ors := make([]string, 0, len(tokens))
		for _, t := range tokens {
			ors = append(ors, "organizer LIKE "+arg("%"+t+"%"))
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}
	for _, t := range SplitList(f.Tags) {
		conds = append(conds, "tags LIKE "+arg("%"+t+"%"))
	}
	if f.Creator != nil {
		if f.Creator.ID == nil {
			conds = append(conds, "creator_id IS NULL")
		} else {
			conds = append(conds, "creator_id = "+arg(*f.Creator.ID))
		}
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	p = p.Normalize()
	query += " ORDER BY start_time ASC, id ASC"
	query += " LIMIT " + arg(p.Limit) + " OFFSET " + arg(p.Skip)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events = make([]*Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DistinctOrganizers returns the sorted set of stored organizer strings.
func (r *PostgresRepository) DistinctOrganizers(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT organizer FROM events
		 WHERE organizer IS NOT NULL AND organizer <> ''
		 ORDER BY organizer`)
	if err != nil {
		return nil, fmt.Errorf("distinct organizers: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("distinct organizers: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// TagsWithCounts scans all tag strings and aggregates in memory; the
// #tag# tokens live inside a single text column, so extraction happens
// application-side with the shared tag parser.
func (r *PostgresRepository) TagsWithCounts(ctx context.Context) ([]TagCount, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tags FROM events`)
	if err != nil {
		return nil, fmt.Errorf("tags with counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var tags string
		if err := rows.Scan(&tags); err != nil {
			return nil, fmt.Errorf("tags with counts: %w", err)
		}
		for _, t := range ParseTags(tags) {
			counts[t]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]TagCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, TagCount{Name: name, Count: count})
	}
	// Highest usage first, name as tie-breaker for stable output.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Name < out[j].Name
		}
		return out[i].Count > out[j].Count
	})
	return out, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanEvent.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*Event, error) {
	var (
		e                 Event
		content           sql.NullString
		imageURL          sql.NullString
		link              sql.NullString
		location          sql.NullString
		organizer         sql.NullString
		orgType           sql.NullString
		eventType         sql.NullString
		recurrenceEnd     sql.NullTime
		approximateMonth  sql.NullString
		requiredAttendees sql.NullString
		creatorID         sql.NullInt64
	)

	err := s.Scan(
		&e.ID, &e.Title, &content, &imageURL, &link, &location,
		&e.StartTime, &e.EndTime, &organizer, &orgType, &eventType,
		&e.Tags, &e.RecurrenceRule, &recurrenceEnd, &e.DatePrecision,
		&approximateMonth, &requiredAttendees, &creatorID,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Content = content.String
	e.ImageURL = imageURL.String
	e.Link = link.String
	e.Location = location.String
	e.Organizer = organizer.String
	e.OrganizationType = OrganizationType(orgType.String)
	e.EventType = eventType.String
	e.ApproximateMonth = approximateMonth.String
	e.RequiredAttendees = requiredAttendees.String
	if recurrenceEnd.Valid {
		t := recurrenceEnd.Time
		e.RecurrenceEndDate = &t
	}
	if creatorID.Valid {
		id := creatorID.Int64
		e.CreatorID = &id
	}
	return &e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
