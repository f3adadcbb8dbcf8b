package api

import (
	"path/filepath"
	"testing"

	"github.com/oneoblomov/HandPC/internal/calibration"
	"github.com/oneoblomov/HandPC/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func createProfile(t *testing.T, s *store.Store, id string, handSize float64) {
	t.Helper()
	p := &store.Profile{
		ID: id,
		Profile: calibration.Profile{
			HandSize:          handSize,
			PinchThreshold:    0.05,
			MovementThreshold: 0.02,
			Sensitivity:       1,
			Samples:           30,
			Calibrated:        true,
		},
	}
	if err := s.Profiles().Create(p); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
}
