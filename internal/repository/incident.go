package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/event_rescue/internal/models"
	"github.com/shenikar/event_rescue/internal/service"
)

const cacheTTL = 5 * time.Minute

// IncidentRepository - архив инцидентов в PostgreSQL с кэшем карточек в Redis.
// Redis необязателен: без него методы кэша ничего не делают.
type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
	}
}

const selectColumns = `
	id, type, severity, zone, description, status,
	lat, lng, accuracy_meters, source_device_id, occurred_at`

// Save выполняет upsert инцидента. Статус в архиве никогда не откатывается.
func (r *IncidentRepository) Save(ctx context.Context, incident models.Incident) error {
	query := `
		INSERT INTO incidents (id, type, severity, zone, description, status, status_rank,
			lat, lng, accuracy_meters, source_device_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			type = EXCLUDED.type,
			severity = EXCLUDED.severity,
			zone = EXCLUDED.zone,
			description = EXCLUDED.description,
			status = CASE WHEN EXCLUDED.status_rank > incidents.status_rank
				THEN EXCLUDED.status ELSE incidents.status END,
			status_rank = GREATEST(incidents.status_rank, EXCLUDED.status_rank),
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			accuracy_meters = EXCLUDED.accuracy_meters,
			source_device_id = EXCLUDED.source_device_id,
			updated_at = NOW();
	`
	var lat, lng, accuracy *float64
	if loc := incident.Location; loc != nil {
		lat, lng, accuracy = &loc.Lat, &loc.Lng, &loc.AccuracyMeters
	}
	_, err := r.db.Exec(ctx, query,
		incident.ID,
		incident.Type,
		incident.Severity,
		incident.Zone,
		incident.Description,
		incident.Status,
		incident.Status.Rank(),
		lat,
		lng,
		accuracy,
		incident.SourceDeviceID,
		incident.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save incident: %w", err)
	}
	return nil
}

// UpdateStatus продвигает статус вперед; более ранний статус игнорируется
func (r *IncidentRepository) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	query := `
		UPDATE incidents SET
			status = $2,
			status_rank = $3,
			updated_at = NOW()
		WHERE id = $1 AND status_rank <= $3;
	`
	cmdTag, err := r.db.Exec(ctx, query, id, status, status.Rank())
	if err != nil {
		return fmt.Errorf("failed to update incident status: %w", err)
	}

	// RowsAffected() == 0: инцидента нет либо статус в архиве уже дальше
	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM incidents WHERE id = $1);`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check incident: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", service.ErrIncidentNotFound, id)
		}
	}
	return nil
}

// GetByID возвращает инцидент по id
func (r *IncidentRepository) GetByID(ctx context.Context, id string) (*models.Incident, error) {
	query := `SELECT` + selectColumns + ` FROM incidents WHERE id = $1;`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", service.ErrIncidentNotFound, id)
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return incident, nil
}

// ListRecent возвращает последние limit инцидентов, новые первыми
func (r *IncidentRepository) ListRecent(ctx context.Context, limit int) ([]models.Incident, error) {
	query := `SELECT` + selectColumns + ` FROM incidents ORDER BY occurred_at DESC LIMIT $1;`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]models.Incident, 0, limit)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, *incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, nil
}

func scanIncident(row pgx.Row) (*models.Incident, error) {
	incident := &models.Incident{}
	var lat, lng, accuracy *float64
	err := row.Scan(
		&incident.ID,
		&incident.Type,
		&incident.Severity,
		&incident.Zone,
		&incident.Description,
		&incident.Status,
		&lat,
		&lng,
		&accuracy,
		&incident.SourceDeviceID,
		&incident.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lng != nil {
		incident.Location = &models.Location{Lat: *lat, Lng: *lng}
		if accuracy != nil {
			incident.Location.AccuracyMeters = *accuracy
		}
	}
	incident.Confidence = models.ConfidenceFor(incident.Severity)
	return incident, nil
}

// GetIncidentFromCache пытается получить инцидент из Redis
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id string) (*models.Incident, error) {
	if r.redisClient == nil {
		return nil, nil
	}
	val, err := r.redisClient.Get(ctx, cacheKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache сохраняет инцидент в Redis
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	if r.redisClient == nil {
		return nil
	}
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	if err := r.redisClient.Set(ctx, cacheKey(incident.ID), val, cacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache удаляет инцидент из Redis кэша
func (r *IncidentRepository) InvalidateIncidentCache(ctx context.Context, id string) error {
	if r.redisClient == nil {
		return nil
	}
	if err := r.redisClient.Del(ctx, cacheKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}

func cacheKey(id string) string {
	return fmt.Sprintf("incident:%s", id)
}
