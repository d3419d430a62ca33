package repository

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/stravalink/internal/domain"
)

var _ CredentialStore = (*MemoryCredentialRepo)(nil)

// MemoryCredentialRepo is the fallback CredentialStore used when no database
// is configured, and the store of choice in tests. Safe for concurrent use.
type MemoryCredentialRepo struct {
	mu             sync.RWMutex
	byOwner        map[string]domain.Credential
	ownerByAthlete map[string]string
}

func NewMemoryCredentialRepo() *MemoryCredentialRepo {
	return &MemoryCredentialRepo{
		byOwner:        make(map[string]domain.Credential),
		ownerByAthlete: make(map[string]string),
	}
}

func (r *MemoryCredentialRepo) Store(_ context.Context, ownerID string, cred domain.Credential) error {
	cred.OwnerID = ownerID
	cred.UpdatedAt = time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byOwner[ownerID] = cred
	r.ownerByAthlete[cred.AthleteID] = ownerID
	return nil
}

func (r *MemoryCredentialRepo) GetByOwner(_ context.Context, ownerID string) (*domain.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cred, ok := r.byOwner[ownerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cred, nil
}

func (r *MemoryCredentialRepo) GetByAthleteID(_ context.Context, athleteID string) (*domain.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ownerID, ok := r.ownerByAthlete[athleteID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cred, ok := r.byOwner[ownerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cred, nil
}
