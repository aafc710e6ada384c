package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"room-status-backend/internal/model"
	"room-status-backend/internal/token"
)

// Store defines the interface for the PC registry and lease state machine.
//
// Every lease transition is a single conditional update guarded by the
// expected prior state: under concurrent calls for the same PC exactly one
// wins and the losers observe the conflict. Operations on different PCs do
// not contend with each other.
type Store interface {
	DB() *gorm.DB

	// ProvisionPCs ensures a row exists for every PC in the room layout,
	// generating a token for each new one. Existing rows (and their tokens)
	// are left untouched. Returns the number of newly created PCs.
	ProvisionPCs(ctx context.Context, ids []string) (int, error)

	// GetPC returns the PC with the given id, or ErrNotFound.
	GetPC(ctx context.Context, id string) (*model.PC, error)

	// Authorize reports whether the presented token authorizes actions on the
	// PC. It does not distinguish an unknown id from a wrong token.
	Authorize(ctx context.Context, pcID, presented string) bool

	// RotateToken replaces a PC's access token. Administrative use only.
	RotateToken(ctx context.Context, pcID string) (string, error)

	StartLease(ctx context.Context, pcID, userID, displayName string, now time.Time) error
	FinishLease(ctx context.Context, pcID, userID string, now time.Time) error
	Heartbeat(ctx context.Context, pcID, userID string, now time.Time) error

	// StatusSnapshot returns all PCs ordered by id.
	StatusSnapshot(ctx context.Context) ([]model.PC, error)

	// ReapStale frees every PC whose last heartbeat is older than the timeout
	// and returns the ids it freed. Losing a race to a concurrent finish or
	// heartbeat is not an error; such PCs are skipped.
	ReapStale(ctx context.Context, now time.Time, timeout time.Duration) ([]string, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) ProvisionPCs(ctx context.Context, ids []string) (int, error) {
	created := 0
	for _, id := range ids {
		tok, err := token.Generate()
		if err != nil {
			return created, fmt.Errorf("failed to generate token for pc %s: %w", id, err)
		}
		res := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.PC{ID: id, Token: tok})
		if res.Error != nil {
			return created, fmt.Errorf("failed to provision pc %s: %w", id, res.Error)
		}
		created += int(res.RowsAffected)
	}
	return created, nil
}

func (s *gormStore) GetPC(ctx context.Context, id string) (*model.PC, error) {
	var pc model.PC
	if err := s.db.WithContext(ctx).First(&pc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch pc %s: %w", id, err)
	}
	return &pc, nil
}

// dummyToken is compared against when the PC id does not resolve, so that an
// unknown id costs the same as a wrong token.
const dummyToken = "0000000000000000000000000000000000000000000000000000000000000000"

func (s *gormStore) Authorize(ctx context.Context, pcID, presented string) bool {
	pc, err := s.GetPC(ctx, pcID)
	if err != nil {
		token.Match(dummyToken, presented)
		return false
	}
	return token.Match(pc.Token, presented)
}

func (s *gormStore) RotateToken(ctx context.Context, pcID string) (string, error) {
	tok, err := token.Generate()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	res := s.db.WithContext(ctx).Model(&model.PC{}).
		Where("id = ?", pcID).
		Update("token", tok)
	if res.Error != nil {
		return "", fmt.Errorf("failed to rotate token for pc %s: %w", pcID, res.Error)
	}
	if res.RowsAffected == 0 {
		return "", ErrNotFound
	}
	return tok, nil
}

// StartLease transitions a free PC to busy under the given user. The
// free-check and the write are one conditional UPDATE; a concurrent start for
// the same PC leaves exactly one winner.
func (s *gormStore) StartLease(ctx context.Context, pcID, userID, displayName string, now time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.PC{}).
		Where("id = ? AND busy = ?", pcID, false).
		Updates(map[string]any{
			"busy":          true,
			"owner_user_id": userID,
			"owner_name":    displayName,
			"last_seen":     now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to start lease on pc %s: %w", pcID, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	// Lost the guard: either the PC is busy or it does not exist.
	if _, err := s.GetPC(ctx, pcID); err != nil {
		return err
	}
	return ErrAlreadyBusy
}

// FinishLease releases a lease held by the given user, clearing the owner
// fields and last_seen in the same conditional UPDATE.
func (s *gormStore) FinishLease(ctx context.Context, pcID, userID string, now time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.PC{}).
		Where("id = ? AND busy = ? AND owner_user_id = ?", pcID, true, userID).
		Updates(map[string]any{
			"busy":          false,
			"owner_user_id": nil,
			"owner_name":    nil,
			"last_seen":     nil,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to finish lease on pc %s: %w", pcID, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	pc, err := s.GetPC(ctx, pcID)
	if err != nil {
		return err
	}
	if !pc.Busy {
		return ErrAlreadyFree
	}
	return ErrNotOwner
}

// Heartbeat refreshes last_seen for a lease held by the given user. A
// heartbeat against a free PC or from a non-owner is a silent no-op: it must
// never create, free, or reassign a lease. UpdateColumn is deliberate —
// a heartbeat is not a state transition and must not touch updated_at.
func (s *gormStore) Heartbeat(ctx context.Context, pcID, userID string, now time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.PC{}).
		Where("id = ? AND busy = ? AND owner_user_id = ?", pcID, true, userID).
		UpdateColumn("last_seen", now)
	if res.Error != nil {
		return fmt.Errorf("failed to record heartbeat for pc %s: %w", pcID, res.Error)
	}
	return nil
}

func (s *gormStore) StatusSnapshot(ctx context.Context) ([]model.PC, error) {
	var pcs []model.PC
	if err := s.db.WithContext(ctx).Order("id").Find(&pcs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch pc snapshot: %w", err)
	}
	return pcs, nil
}

func (s *gormStore) ReapStale(ctx context.Context, now time.Time, timeout time.Duration) ([]string, error) {
	cutoff := now.Add(-timeout)

	var candidates []model.PC
	if err := s.db.WithContext(ctx).
		Where("busy = ? AND last_seen < ?", true, cutoff).
		Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to scan for stale leases: %w", err)
	}

	var freed []string
	for _, pc := range candidates {
		// Re-check "still busy and still stale" in the update guard itself:
		// a heartbeat or finish that lands between the scan and this write
		// makes the guard miss, and the PC is skipped.
		res := s.db.WithContext(ctx).Model(&model.PC{}).
			Where("id = ? AND busy = ? AND last_seen < ?", pc.ID, true, cutoff).
			Updates(map[string]any{
				"busy":          false,
				"owner_user_id": nil,
				"owner_name":    nil,
				"last_seen":     nil,
			})
		if res.Error != nil {
			return freed, fmt.Errorf("failed to expire lease on pc %s: %w", pc.ID, res.Error)
		}
		if res.RowsAffected == 1 {
			freed = append(freed, pc.ID)
		}
	}
	return freed, nil
}
