package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/outboundhq/senderstack/interfaces"
	"github.com/outboundhq/senderstack/internal/models"
	"github.com/outboundhq/senderstack/internal/tracing"
)

// advisoryLockKey is the fixed key for the legacy session-scoped fallback.
// The fallback has no staleness recovery: a crashed holder blocks the lock
// until its session dies.
const advisoryLockKey int64 = 77421001

type syncLockRepository struct {
	db *gorm.DB

	// advisory fallback state, only populated when the lock table is missing
	advisoryMu   sync.Mutex
	advisoryConn *sql.Conn
	advisoryJob  string
}

func NewSyncLockRepository(db *gorm.DB) interfaces.SyncLockRepository {
	return &syncLockRepository{db: db}
}

// TryAcquire claims the lock row inside a transaction. The row is locked
// FOR UPDATE so two concurrent acquirers serialize and exactly one wins.
func (r *syncLockRepository) TryAcquire(ctx context.Context, lockName, jobID string, staleThreshold time.Duration) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncLockRepository.TryAcquire")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagJobId(span, jobID)
	span.SetTag("lock.name", lockName)

	acquired := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lock models.SyncLock
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("lock_name = ?", lockName).
			First(&lock)

		now := time.Now()
		if result.Error != nil {
			if result.Error != gorm.ErrRecordNotFound {
				return result.Error
			}
			// No row yet, claim it
			acquired = true
			return tx.Create(&models.SyncLock{
				LockName:    lockName,
				JobID:       jobID,
				LockedAt:    now,
				HeartbeatAt: now,
			}).Error
		}

		if !lock.Acquirable(now, staleThreshold) {
			return nil
		}

		if lock.Stale(now, staleThreshold) {
			span.LogFields(tracingLog.String("superseded_job", lock.JobID))
		}

		acquired = true
		return tx.Model(&models.SyncLock{}).
			Where("lock_name = ?", lockName).
			Updates(map[string]interface{}{
				"job_id":       jobID,
				"locked_at":    now,
				"heartbeat_at": now,
			}).Error
	})
	if err != nil {
		if isUndefinedTable(err) {
			span.LogFields(tracingLog.String("fallback", "advisory"))
			return r.tryAcquireAdvisory(ctx, jobID)
		}
		tracing.TraceErr(span, err)
		return false, fmt.Errorf("failed to acquire sync lock: %w", err)
	}

	span.SetTag("acquired", acquired)
	return acquired, nil
}

func (r *syncLockRepository) Heartbeat(ctx context.Context, lockName, jobID string) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncLockRepository.Heartbeat")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagJobId(span, jobID)

	result := r.db.WithContext(ctx).
		Model(&models.SyncLock{}).
		Where("lock_name = ? AND job_id = ?", lockName, jobID).
		Update("heartbeat_at", time.Now())
	if result.Error != nil {
		if isUndefinedTable(result.Error) {
			// advisory mode has no heartbeat, the session is the lease
			return r.holdsAdvisory(jobID), nil
		}
		tracing.TraceErr(span, result.Error)
		return false, fmt.Errorf("failed to heartbeat sync lock: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (r *syncLockRepository) Release(ctx context.Context, lockName, jobID string) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncLockRepository.Release")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagJobId(span, jobID)

	result := r.db.WithContext(ctx).
		Model(&models.SyncLock{}).
		Where("lock_name = ? AND job_id = ?", lockName, jobID).
		Updates(map[string]interface{}{
			"job_id":       "",
			"heartbeat_at": time.Now(),
		})
	if result.Error != nil {
		if isUndefinedTable(result.Error) {
			return r.releaseAdvisory(ctx, jobID)
		}
		tracing.TraceErr(span, result.Error)
		return false, fmt.Errorf("failed to release sync lock: %w", result.Error)
	}

	span.SetTag("released", result.RowsAffected > 0)
	return result.RowsAffected > 0, nil
}

// tryAcquireAdvisory pins one connection and takes a session advisory lock
// on it. Weaker mode: no stale takeover, holder dies with the session.
func (r *syncLockRepository) tryAcquireAdvisory(ctx context.Context, jobID string) (bool, error) {
	r.advisoryMu.Lock()
	defer r.advisoryMu.Unlock()

	if r.advisoryConn != nil {
		return false, nil
	}

	sqlDB, err := r.db.DB()
	if err != nil {
		return false, err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return false, err
	}

	var locked bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", advisoryLockKey).Scan(&locked); err != nil {
		conn.Close()
		return false, fmt.Errorf("failed to acquire advisory lock: %w", err)
	}
	if !locked {
		conn.Close()
		return false, nil
	}

	r.advisoryConn = conn
	r.advisoryJob = jobID
	return true, nil
}

func (r *syncLockRepository) holdsAdvisory(jobID string) bool {
	r.advisoryMu.Lock()
	defer r.advisoryMu.Unlock()
	return r.advisoryConn != nil && r.advisoryJob == jobID
}

func (r *syncLockRepository) releaseAdvisory(ctx context.Context, jobID string) (bool, error) {
	r.advisoryMu.Lock()
	defer r.advisoryMu.Unlock()

	if r.advisoryConn == nil || r.advisoryJob != jobID {
		return false, nil
	}

	_, err := r.advisoryConn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockKey)
	r.advisoryConn.Close()
	r.advisoryConn = nil
	r.advisoryJob = ""
	if err != nil {
		return false, fmt.Errorf("failed to release advisory lock: %w", err)
	}
	return true, nil
}

func isUndefinedTable(err error) bool {
	if err == nil {
		return false
	}
	// pgx SQLSTATE 42P01, undefined_table
	return strings.Contains(err.Error(), "42P01") ||
		strings.Contains(err.Error(), "relation \"sync_locks\" does not exist")
}
