package models

import (
	"time"
)

// SyncLock is the cross-process mutual exclusion row. At most one non-stale
// holder exists per lock name; a holder whose heartbeat exceeds the stale
// threshold may be forcibly reassigned.
type SyncLock struct {
	LockName    string    `gorm:"column:lock_name;type:varchar(100);primaryKey" json:"lockName"`
	JobID       string    `gorm:"column:job_id;type:uuid" json:"jobId"`
	LockedAt    time.Time `gorm:"column:locked_at;type:timestamp" json:"lockedAt"`
	HeartbeatAt time.Time `gorm:"column:heartbeat_at;type:timestamp" json:"heartbeatAt"`
}

func (SyncLock) TableName() string {
	return "sync_locks"
}

// Held reports whether the lock currently has an owner.
func (m *SyncLock) Held() bool {
	return m.JobID != ""
}

// Stale reports whether the holder's heartbeat is older than the threshold,
// which means the owning run crashed without releasing.
func (m *SyncLock) Stale(now time.Time, staleThreshold time.Duration) bool {
	return m.Held() && now.Sub(m.HeartbeatAt) > staleThreshold
}

// Acquirable is the lock acquisition decision: free, unheld, or stale.
func (m *SyncLock) Acquirable(now time.Time, staleThreshold time.Duration) bool {
	if m == nil {
		return true
	}
	if !m.Held() {
		return true
	}
	return m.Stale(now, staleThreshold)
}
