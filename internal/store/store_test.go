package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"room-status-backend/internal/model"
)

// newTestStore opens a per-test in-memory sqlite database. A single open
// connection keeps the shared-cache database alive and serializes writes the
// way a real server's connection pool would.
func newTestStore(t *testing.T) Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.PC{}, &model.PushSubscription{}))
	return NewGormStore(db)
}

func TestProvisionPCs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.ProvisionPCs(ctx, []string{"L1", "L2", "R1"})
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	before, err := s.GetPC(ctx, "L1")
	require.NoError(t, err)
	assert.NotEmpty(t, before.Token)
	assert.False(t, before.Busy)

	// Re-provisioning must not touch existing rows or rotate their tokens.
	created, err = s.ProvisionPCs(ctx, []string{"L1", "L2", "R1", "R2"})
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	after, err := s.GetPC(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, before.Token, after.Token)
}

func TestAuthorize(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ProvisionPCs(ctx, []string{"L1"})
	require.NoError(t, err)
	pc, err := s.GetPC(ctx, "L1")
	require.NoError(t, err)

	assert.True(t, s.Authorize(ctx, "L1", pc.Token))
	assert.False(t, s.Authorize(ctx, "L1", "wrong-token"))
	assert.False(t, s.Authorize(ctx, "L1", ""))
	assert.False(t, s.Authorize(ctx, "no-such-pc", pc.Token))
}

func TestStartLease(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := s.ProvisionPCs(ctx, []string{"L1"})
	require.NoError(t, err)

	require.NoError(t, s.StartLease(ctx, "L1", "user-42", "Ada", now))

	pc, err := s.GetPC(ctx, "L1")
	require.NoError(t, err)
	assert.True(t, pc.Busy)
	require.NotNil(t, pc.OwnerUserID)
	assert.Equal(t, "user-42", *pc.OwnerUserID)
	require.NotNil(t, pc.OwnerName)
	assert.Equal(t, "Ada", *pc.OwnerName)
	require.NotNil(t, pc.LastSeen)
	assert.WithinDuration(t, now, *pc.LastSeen, time.Second)

	// Someone else claiming the same PC must be told it is taken.
	err = s.StartLease(ctx, "L1", "user-7", "Grace", now)
	assert.ErrorIs(t, err, ErrAlreadyBusy)

	// The lease is unchanged by the failed attempt.
	pc, err = s.GetPC(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, "user-42", *pc.OwnerUserID)

	err = s.StartLease(ctx, "missing", "user-42", "Ada", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

// Mutual exclusion under concurrency: N simultaneous starts for the same PC
// yield exactly one winner and N-1 already_busy failures.
func TestStartLeaseConcurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := s.ProvisionPCs(ctx, []string{"L1"})
	require.NoError(t, err)

	const n = 16
	results := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.StartLease(ctx, "L1", fmt.Sprintf("user-%d", i), fmt.Sprintf("User %d", i), now)
		}(i)
	}
	wg.Wait()

	wins, busies := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrAlreadyBusy):
			busies++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, busies)
}

func TestFinishLease(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := s.ProvisionPCs(ctx, []string{"L1"})
	require.NoError(t, err)
	require.NoError(t, s.StartLease(ctx, "L1", "user-42", "Ada", now))

	// A non-owner cannot release the lease, and the state is untouched.
	err = s.FinishLease(ctx, "L1", "user-7", now)
	assert.ErrorIs(t, err, ErrNotOwner)
	pc, err := s.GetPC(ctx, "L1")
	require.NoError(t, err)
	assert.True(t, pc.Busy)
	assert.Equal(t, "user-42", *pc.OwnerUserID)

	require.NoError(t, s.FinishLease(ctx, "L1", "user-42", now))

	pc, err = s.GetPC(ctx, "L1")
	require.NoError(t, err)
	assert.False(t, pc.Busy)
	assert.Nil(t, pc.OwnerUserID)
	assert.Nil(t, pc.OwnerName)
	assert.Nil(t, pc.LastSeen)

	// Finishing twice is an idempotent failure, not an escalation.
	err = s.FinishLease(ctx, "L1", "user-42", now)
	assert.ErrorIs(t, err, ErrAlreadyFree)
	err = s.FinishLease(ctx, "L1", "user-42", now)
	assert.ErrorIs(t, err, ErrAlreadyFree)

	err = s.FinishLease(ctx, "missing", "user-42", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHeartbeat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Now().UTC().Add(-time.Minute)

	_, err := s.ProvisionPCs(ctx, []string{"L1", "L2"})
	require.NoError(t, err)
	require.NoError(t, s.StartLease(ctx, "L1", "user-42", "Ada", start))

	// Owner heartbeat refreshes last_seen.
	later := start.Add(30 * time.Second)
	require.NoError(t, s.Heartbeat(ctx, "L1", "user-42", later))
	pc, err := s.GetPC(ctx, "L1")
	require.NoError(t, err)
	assert.WithinDuration(t, later, *pc.LastSeen, time.Second)

	// A non-owner heartbeat is a silent no-op.
	require.NoError(t, s.Heartbeat(ctx, "L1", "user-7", later.Add(time.Minute)))
	pc, err = s.GetPC(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, "user-42", *pc.OwnerUserID)
	assert.WithinDuration(t, later, *pc.LastSeen, time.Second)

	// Heartbeating a free PC never creates a lease.
	require.NoError(t, s.Heartbeat(ctx, "L2", "user-42", later))
	pc, err = s.GetPC(ctx, "L2")
	require.NoError(t, err)
	assert.False(t, pc.Busy)
	assert.Nil(t, pc.OwnerUserID)
	assert.Nil(t, pc.LastSeen)
}

func TestReapStale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	timeout := 5 * time.Minute

	_, err := s.ProvisionPCs(ctx, []string{"L1", "L2", "L3"})
	require.NoError(t, err)

	// L1 silent for twice the timeout, L2 heartbeating recently, L3 free.
	require.NoError(t, s.StartLease(ctx, "L1", "user-1", "Ada", now.Add(-2*timeout)))
	require.NoError(t, s.StartLease(ctx, "L2", "user-2", "Grace", now.Add(-time.Minute)))

	freed, err := s.ReapStale(ctx, now, timeout)
	require.NoError(t, err)
	assert.Equal(t, []string{"L1"}, freed)

	pc, err := s.GetPC(ctx, "L1")
	require.NoError(t, err)
	assert.False(t, pc.Busy)
	assert.Nil(t, pc.OwnerUserID)
	assert.Nil(t, pc.LastSeen)

	pc, err = s.GetPC(ctx, "L2")
	require.NoError(t, err)
	assert.True(t, pc.Busy)
	assert.Equal(t, "user-2", *pc.OwnerUserID)

	// A second pass finds nothing left to reclaim.
	freed, err = s.ReapStale(ctx, now, timeout)
	require.NoError(t, err)
	assert.Empty(t, freed)
}

func TestRotateToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ProvisionPCs(ctx, []string{"L1"})
	require.NoError(t, err)
	old, err := s.GetPC(ctx, "L1")
	require.NoError(t, err)

	fresh, err := s.RotateToken(ctx, "L1")
	require.NoError(t, err)
	assert.NotEqual(t, old.Token, fresh)
	assert.False(t, s.Authorize(ctx, "L1", old.Token))
	assert.True(t, s.Authorize(ctx, "L1", fresh))

	_, err = s.RotateToken(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatusSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := s.ProvisionPCs(ctx, []string{"R2", "L1", "R1"})
	require.NoError(t, err)
	require.NoError(t, s.StartLease(ctx, "R1", "user-42", "Ada", now))

	pcs, err := s.StatusSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, pcs, 3)
	assert.Equal(t, []string{"L1", "R1", "R2"}, []string{pcs[0].ID, pcs[1].ID, pcs[2].ID})
	assert.True(t, pcs[1].Busy)
	assert.Equal(t, "Ada", *pcs[1].OwnerName)
}
