package store

import (
	"context"
	"sync"
	"time"

	"veil.share/internal/logger"
	"veil.share/internal/models"
)

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps records in a mutex-guarded map. All of ConsumeView
// runs under the write lock, which makes the check/gate/increment/purge
// sequence indivisible with respect to other callers on the same id.
type MemoryStore struct {
	secrets     map[string]*models.SecretRecord
	mu          sync.RWMutex
	now         func() time.Time
	log         *logger.Logger
	sweepCancel context.CancelFunc
}

func NewMemoryStore(sweepInterval time.Duration, log *logger.Logger) *MemoryStore {
	ctx, cancel := context.WithCancel(context.Background())
	s := &MemoryStore{
		secrets:     make(map[string]*models.SecretRecord),
		now:         time.Now,
		log:         log,
		sweepCancel: cancel,
	}
	go s.sweepLoop(ctx, sweepInterval)
	return s
}

func (s *MemoryStore) Save(ctx context.Context, record *models.SecretRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.secrets[record.ID] = record
	return nil
}

func (s *MemoryStore) PeekMetadata(ctx context.Context, id string) (*models.SecretMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.secrets[id]
	if !ok {
		return nil, ErrUnavailable
	}

	// Lazy purge: an expired or exhausted record is unreachable the
	// moment either condition becomes true, regardless of the sweep.
	if record.ExpiredAt(s.now()) || record.Exhausted() {
		delete(s.secrets, id)
		return nil, ErrUnavailable
	}

	return &models.SecretMetadata{
		HasPassword:    record.HasPassword(),
		ExpiresAt:      record.ExpiresAt,
		RemainingViews: record.MaxViews - record.ViewCount,
		MaxViews:       record.MaxViews,
		ContentType:    record.ContentType,
	}, nil
}

func (s *MemoryStore) ConsumeView(ctx context.Context, id, verifier string) (*models.ViewResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.secrets[id]
	if !ok {
		return nil, ErrUnavailable
	}

	if record.ExpiredAt(s.now()) || record.Exhausted() {
		delete(s.secrets, id)
		return nil, ErrUnavailable
	}

	// The gate must pass before the view count moves: a failed
	// password attempt does not consume a view.
	if err := checkVerifier(record.VerifierHash, verifier); err != nil {
		return nil, err
	}

	record.ViewCount++
	destroyed := record.Exhausted()
	if destroyed {
		delete(s.secrets, id)
	}

	return &models.ViewResult{
		Ciphertext:     record.Ciphertext,
		IV:             record.IV,
		Salt:           record.Salt,
		ContentType:    record.ContentType,
		RemainingViews: record.MaxViews - record.ViewCount,
		Destroyed:      destroyed,
	}, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.secrets, id)
	return nil
}

func (s *MemoryStore) Close() error {
	if s.sweepCancel != nil {
		s.sweepCancel()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.secrets = nil
	return nil
}

func (s *MemoryStore) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if purged := s.sweep(); purged > 0 {
				s.log.Info().Int("purged", purged).Msg("expiry sweep removed records")
			}
		}
	}
}

func (s *MemoryStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	purged := 0
	for id, record := range s.secrets {
		if record.ExpiredAt(now) || record.Exhausted() {
			delete(s.secrets, id)
			purged++
		}
	}
	return purged
}
