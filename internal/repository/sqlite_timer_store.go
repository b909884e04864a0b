package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/multitimer/internal/db"
	"github.com/alexanderramin/multitimer/internal/domain"
)

const (
	keyTimers        = "timers"
	keyNextID        = "next_id"
	keyCorruptPrefix = "timers.corrupt."
)

// SQLiteTimerStore keeps the registry as a JSON array under "timers" and
// the id counter under "next_id".
type SQLiteTimerStore struct {
	kv     *SQLiteKVStore
	logger *slog.Logger
	now    func() time.Time
}

func NewSQLiteTimerStore(conn db.DBTX, logger *slog.Logger) *SQLiteTimerStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteTimerStore{kv: NewSQLiteKVStore(conn), logger: logger, now: time.Now}
}

// Load reads the registry. A missing or empty blob yields an empty
// registry. A read failure yields an empty, degraded registry that Save
// refuses. A blob that does not decode is copied aside under
// "timers.corrupt.<unix>" and also yields an empty registry; the id counter
// is kept so ids are never reused.
func (s *SQLiteTimerStore) Load(ctx context.Context) (*domain.Registry, error) {
	reg := domain.NewRegistry()

	if next, err := s.loadNextID(ctx); err != nil {
		s.logger.Warn("timer store: unreadable id counter, using default", "error", err)
	} else if next > 0 {
		reg.NextID = next
	}

	raw, err := s.kv.Get(ctx, keyTimers)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return reg, nil
		}
		s.logger.Warn("timer store: read failed, using empty registry", "error", err)
		reg.Degraded = true
		return reg, nil
	}
	if strings.TrimSpace(raw) == "" {
		return reg, nil
	}

	var timers []*domain.Timer
	if err := json.Unmarshal([]byte(raw), &timers); err != nil {
		backup := keyCorruptPrefix + strconv.FormatInt(s.now().Unix(), 10)
		s.logger.Warn("timer store: corrupt registry, starting empty", "error", err, "backup_key", backup)
		if perr := s.kv.Put(ctx, backup, raw); perr != nil {
			return nil, fmt.Errorf("backing up corrupt registry: %w", perr)
		}
		if derr := s.kv.Delete(ctx, keyTimers); derr != nil {
			return nil, fmt.Errorf("clearing corrupt registry: %w", derr)
		}
		return reg, nil
	}

	for _, t := range timers {
		if t == nil {
			continue
		}
		reg.Timers = append(reg.Timers, t)
		if t.ID >= reg.NextID {
			reg.NextID = t.ID + 1
		}
	}
	return reg, nil
}

func (s *SQLiteTimerStore) loadNextID(ctx context.Context) (int64, error) {
	raw, err := s.kv.Get(ctx, keyNextID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing next_id %q: %w", raw, err)
	}
	return n, nil
}

// Save writes the registry and counter. A degraded registry is refused so
// a failed read never wipes the stored timers.
func (s *SQLiteTimerStore) Save(ctx context.Context, r *domain.Registry) error {
	if r.Degraded {
		return fmt.Errorf("saving timers: %w", ErrRegistryUnavailable)
	}
	timers := r.Timers
	if timers == nil {
		timers = []*domain.Timer{}
	}
	data, err := json.Marshal(timers)
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}
	if err := s.kv.Put(ctx, keyTimers, string(data)); err != nil {
		return err
	}
	next := max(r.NextID, 1)
	return s.kv.Put(ctx, keyNextID, strconv.FormatInt(next, 10))
}
