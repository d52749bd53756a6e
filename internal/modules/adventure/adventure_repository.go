package adventure

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syonosuke743/portfolio/internal/models"
)

// LocationUpdate holds the fields the resolver overwrites on a waypoint.
type LocationUpdate struct {
	Latitude     float64
	Longitude    float64
	Address      *string
	LocationName *string
	POISourceID  *string
}

// RepositoryInterface defines the contract for the adventure repository.
type RepositoryInterface interface {
	CreateWithWaypoints(ctx context.Context, adv *models.Adventure, waypoints []models.Waypoint) (*models.Adventure, error)
	FindByID(ctx context.Context, adventureID string) (*models.Adventure, error)
	ListByUserID(ctx context.Context, userID string) ([]*models.Adventure, error)
	ListWaypoints(ctx context.Context, adventureID string) ([]models.Waypoint, error)
	UpdateWaypointLocation(ctx context.Context, waypointID string, loc LocationUpdate) error
	InjectDestination(ctx context.Context, adventureID string, wp *models.Waypoint) error
	CreateRoute(ctx context.Context, route *models.Route) error
	ListRoutes(ctx context.Context, adventureID string) ([]models.Route, error)
	UpdateStatus(ctx context.Context, adventureID string, status models.AdventureStatus, failureReason *string) error
	Delete(ctx context.Context, adventureID string) error
	Stats(ctx context.Context, userID string) (*models.AdventureStats, error)
}

// Repository implements the RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new adventure repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const adventureColumns = `id, user_id, status, failure_reason, planned_distance_meters, waypoint_count, created_at`

const waypointColumns = `id, adventure_id, sequence, waypoint_type, poi_category, latitude, longitude,
	location_name, poi_source_id, poi_source, address, created_at`

const routeColumns = `r.id, r.adventure_id, r.from_waypoint_id, r.to_waypoint_id, r.route_json, r.polyline,
	r.distance_meters, r.duration_minutes, r.transportation_mode, r.created_at`

// mapPgError translates constraint violations into model errors.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", models.ErrConflict, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", models.ErrNotFound, pgErr.ConstraintName)
		case "22P02": // malformed uuid
			return models.ErrNotFound
		}
	}
	return err
}

// CreateWithWaypoints inserts an adventure and all of its waypoints in one
// transaction. IDs and timestamps are filled in on the returned value.
func (r *Repository) CreateWithWaypoints(ctx context.Context, adv *models.Adventure, waypoints []models.Waypoint) (*models.Adventure, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository.CreateWithWaypoints.Begin: %w", err)
	}
	defer tx.Rollback(ctx)

	adv.ID = uuid.NewString()
	err = tx.QueryRow(ctx, `
		INSERT INTO adventures (id, user_id, status, planned_distance_meters, waypoint_count)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		adv.ID, adv.UserID, adv.Status, adv.PlannedDistanceMeters, len(waypoints),
	).Scan(&adv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("repository.CreateWithWaypoints.InsertAdventure: %w", mapPgError(err))
	}

	created := make([]models.Waypoint, len(waypoints))
	for i, wp := range waypoints {
		wp.ID = uuid.NewString()
		wp.AdventureID = adv.ID
		if err := insertWaypoint(ctx, tx, &wp); err != nil {
			return nil, fmt.Errorf("repository.CreateWithWaypoints.InsertWaypoint: %w", err)
		}
		created[i] = wp
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("repository.CreateWithWaypoints.Commit: %w", err)
	}

	adv.WaypointCount = len(created)
	adv.Waypoints = created
	return adv, nil
}

func insertWaypoint(ctx context.Context, tx pgx.Tx, wp *models.Waypoint) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO adventure_waypoints
			(id, adventure_id, sequence, waypoint_type, poi_category, latitude, longitude,
			 location_name, poi_source_id, poi_source, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`,
		wp.ID, wp.AdventureID, wp.Sequence, wp.WaypointType, wp.POICategory, wp.Latitude, wp.Longitude,
		wp.LocationName, wp.POISourceID, wp.POISource, wp.Address,
	).Scan(&wp.CreatedAt)
	return mapPgError(err)
}

func scanAdventure(row pgx.Row) (*models.Adventure, error) {
	var adv models.Adventure
	err := row.Scan(
		&adv.ID,
		&adv.UserID,
		&adv.Status,
		&adv.FailureReason,
		&adv.PlannedDistanceMeters,
		&adv.WaypointCount,
		&adv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan adventure: %w", mapPgError(err))
	}
	return &adv, nil
}

func scanWaypoint(row pgx.Row) (models.Waypoint, error) {
	var wp models.Waypoint
	err := row.Scan(
		&wp.ID,
		&wp.AdventureID,
		&wp.Sequence,
		&wp.WaypointType,
		&wp.POICategory,
		&wp.Latitude,
		&wp.Longitude,
		&wp.LocationName,
		&wp.POISourceID,
		&wp.POISource,
		&wp.Address,
		&wp.CreatedAt,
	)
	return wp, err
}

func scanRoute(row pgx.Row) (models.Route, error) {
	var rt models.Route
	err := row.Scan(
		&rt.ID,
		&rt.AdventureID,
		&rt.FromWaypointID,
		&rt.ToWaypointID,
		&rt.RouteJSON,
		&rt.Polyline,
		&rt.DistanceMeters,
		&rt.DurationMinutes,
		&rt.TransportationMode,
		&rt.CreatedAt,
	)
	return rt, err
}

// FindByID retrieves a single adventure without its children.
func (r *Repository) FindByID(ctx context.Context, adventureID string) (*models.Adventure, error) {
	row := r.db.QueryRow(ctx, `SELECT `+adventureColumns+` FROM adventures WHERE id = $1`, adventureID)
	adv, err := scanAdventure(row)
	if err != nil {
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return adv, nil
}

// ListByUserID retrieves all adventures of a user, newest first.
func (r *Repository) ListByUserID(ctx context.Context, userID string) ([]*models.Adventure, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+adventureColumns+`
		FROM adventures
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListByUserID.Query: %w", err)
	}
	defer rows.Close()

	var adventures []*models.Adventure
	for rows.Next() {
		adv, err := scanAdventure(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.ListByUserID.scanAdventure: %w", err)
		}
		adventures = append(adventures, adv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListByUserID.Rows: %w", err)
	}
	return adventures, nil
}

// ListWaypoints returns the waypoints of an adventure ordered by sequence.
func (r *Repository) ListWaypoints(ctx context.Context, adventureID string) ([]models.Waypoint, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+waypointColumns+`
		FROM adventure_waypoints
		WHERE adventure_id = $1
		ORDER BY sequence ASC`, adventureID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListWaypoints.Query: %w", err)
	}
	defer rows.Close()

	var waypoints []models.Waypoint
	for rows.Next() {
		wp, err := scanWaypoint(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.ListWaypoints.scanWaypoint: %w", err)
		}
		waypoints = append(waypoints, wp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListWaypoints.Rows: %w", err)
	}
	return waypoints, nil
}

// UpdateWaypointLocation overwrites the resolved location of a waypoint.
func (r *Repository) UpdateWaypointLocation(ctx context.Context, waypointID string, loc LocationUpdate) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE adventure_waypoints
		SET latitude = $2, longitude = $3, address = $4, location_name = $5,
		    poi_source_id = COALESCE($6, poi_source_id)
		WHERE id = $1`,
		waypointID, loc.Latitude, loc.Longitude, loc.Address, loc.LocationName, loc.POISourceID)
	if err != nil {
		return fmt.Errorf("repository.UpdateWaypointLocation: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// InjectDestination makes wp the only DESTINATION of the adventure: existing
// destinations become INTERMEDIATE, wp is appended after the highest
// sequence and waypoint_count is recomputed. All in one transaction.
func (r *Repository) InjectDestination(ctx context.Context, adventureID string, wp *models.Waypoint) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository.InjectDestination.Begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the adventure so concurrent injections serialize on sequence.
	var lockedID string
	err = tx.QueryRow(ctx, `SELECT id FROM adventures WHERE id = $1 FOR UPDATE`, adventureID).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrNotFound
		}
		return fmt.Errorf("repository.InjectDestination.Lock: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE adventure_waypoints
		SET waypoint_type = $2
		WHERE adventure_id = $1 AND waypoint_type = $3`,
		adventureID, models.WaypointIntermediate, models.WaypointDestination)
	if err != nil {
		return fmt.Errorf("repository.InjectDestination.Retype: %w", err)
	}

	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(sequence), -1) + 1 FROM adventure_waypoints WHERE adventure_id = $1`,
		adventureID).Scan(&wp.Sequence)
	if err != nil {
		return fmt.Errorf("repository.InjectDestination.NextSequence: %w", err)
	}

	wp.ID = uuid.NewString()
	wp.AdventureID = adventureID
	wp.WaypointType = models.WaypointDestination
	if err := insertWaypoint(ctx, tx, wp); err != nil {
		return fmt.Errorf("repository.InjectDestination.Insert: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE adventures
		SET waypoint_count = (SELECT COUNT(*) FROM adventure_waypoints WHERE adventure_id = $1)
		WHERE id = $1`, adventureID)
	if err != nil {
		return fmt.Errorf("repository.InjectDestination.Count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository.InjectDestination.Commit: %w", err)
	}
	return nil
}

// CreateRoute inserts a computed route.
func (r *Repository) CreateRoute(ctx context.Context, route *models.Route) error {
	route.ID = uuid.NewString()
	err := r.db.QueryRow(ctx, `
		INSERT INTO routes
			(id, adventure_id, from_waypoint_id, to_waypoint_id, route_json, polyline,
			 distance_meters, duration_minutes, transportation_mode)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		route.ID, route.AdventureID, route.FromWaypointID, route.ToWaypointID, route.RouteJSON, route.Polyline,
		route.DistanceMeters, route.DurationMinutes, route.TransportationMode,
	).Scan(&route.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository.CreateRoute: %w", mapPgError(err))
	}
	return nil
}

// ListRoutes returns the routes of an adventure ordered by the sequence of
// their from-waypoint.
func (r *Repository) ListRoutes(ctx context.Context, adventureID string) ([]models.Route, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+routeColumns+`
		FROM routes r
		JOIN adventure_waypoints w ON w.id = r.from_waypoint_id
		WHERE r.adventure_id = $1
		ORDER BY w.sequence ASC, r.created_at ASC`, adventureID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListRoutes.Query: %w", err)
	}
	defer rows.Close()

	var routes []models.Route
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.ListRoutes.scanRoute: %w", err)
		}
		routes = append(routes, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListRoutes.Rows: %w", err)
	}
	return routes, nil
}

// UpdateStatus writes status and failure reason.
func (r *Repository) UpdateStatus(ctx context.Context, adventureID string, status models.AdventureStatus, failureReason *string) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE adventures
		SET status = $2, failure_reason = $3
		WHERE id = $1`, adventureID, status, failureReason)
	if err != nil {
		return fmt.Errorf("repository.UpdateStatus: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Delete removes an adventure; waypoints and routes cascade.
func (r *Repository) Delete(ctx context.Context, adventureID string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM adventures WHERE id = $1`, adventureID)
	if err != nil {
		return fmt.Errorf("repository.Delete: %w", mapPgError(err))
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Stats counts adventures per status. An empty userID aggregates all users.
func (r *Repository) Stats(ctx context.Context, userID string) (*models.AdventureStats, error) {
	query := `SELECT status, COUNT(*), COALESCE(SUM(planned_distance_meters), 0) FROM adventures`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` GROUP BY status`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository.Stats.Query: %w", err)
	}
	defer rows.Close()

	stats := &models.AdventureStats{StatusCounts: make(map[models.AdventureStatus]int)}
	for rows.Next() {
		var status models.AdventureStatus
		var count, distance int
		if err := rows.Scan(&status, &count, &distance); err != nil {
			return nil, fmt.Errorf("repository.Stats.Scan: %w", err)
		}
		stats.StatusCounts[status] = count
		stats.TotalPlannedDistance += distance
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.Stats.Rows: %w", err)
	}
	return stats, nil
}
