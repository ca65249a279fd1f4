package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"RegimePull/internal/domain/models"
)

type recordingObsStore struct {
	mu     sync.Mutex
	stored []models.FeatureObservation
	seen   chan struct{}
}

func (s *recordingObsStore) Store(ctx context.Context, obs *models.FeatureObservation) error {
	s.mu.Lock()
	s.stored = append(s.stored, *obs)
	s.mu.Unlock()
	s.seen <- struct{}{}
	return nil
}

func (s *recordingObsStore) StoreBatch(ctx context.Context, batch []*models.FeatureObservation) error {
	for _, obs := range batch {
		if err := s.Store(ctx, obs); err != nil {
			return err
		}
	}
	return nil
}

func (s *recordingObsStore) Health(ctx context.Context) error { return nil }
func (s *recordingObsStore) Close() error                     { return nil }

// scriptedStream replays one observation batch per Read session. Every
// session except the last ends the way the websocket client's read loop
// does: an error on errCh followed by both channels closing.
type scriptedStream struct {
	mu        sync.Mutex
	sessions  [][]*models.FeatureObservation
	reads     int
	reconnect int
	connected bool
}

func (s *scriptedStream) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *scriptedStream) Subscribe(ctx context.Context) error { return nil }

func (s *scriptedStream) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnect++
	s.connected = true
	return nil
}

func (s *scriptedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *scriptedStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *scriptedStream) Reconnects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnect
}

func (s *scriptedStream) Read(ctx context.Context) (<-chan *models.FeatureObservation, <-chan error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obsCh := make(chan *models.FeatureObservation, 16)
	errCh := make(chan error, 1)
	if s.reads < len(s.sessions) {
		for _, obs := range s.sessions[s.reads] {
			obsCh <- obs
		}
	}
	terminal := s.reads < len(s.sessions)-1
	s.reads++
	if terminal {
		errCh <- errors.New("stream down")
		close(errCh)
		close(obsCh)
	}
	return obsCh, errCh
}

func streamObs(i int) *models.FeatureObservation {
	return &models.FeatureObservation{
		Series: "us_core",
		Week:   testWeek(i),
		Values: map[string]float64{models.FeatureVixZ: 0, models.FeatureCorrZ: 0},
	}
}

func TestCollectorResumesAfterStreamDies(t *testing.T) {
	stream := &scriptedStream{
		sessions: [][]*models.FeatureObservation{
			{streamObs(0)},
			{streamObs(1)},
		},
	}
	store := &recordingObsStore{seen: make(chan struct{}, 8)}
	proc := NewObservationProcessor(nil, store, nopMetrics{}, "clickhouse", 10, time.Second)
	col := NewObservationCollector(stream, proc, nopMetrics{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := col.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-store.seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("observation %d was never stored", i)
		}
	}
	cancel()

	if got := stream.Reconnects(); got != 1 {
		t.Fatalf("reconnects = %d, want 1", got)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.stored) != 2 {
		t.Fatalf("stored %d observations, want 2", len(store.stored))
	}
	if !store.stored[1].Week.Equal(testWeek(1)) {
		t.Fatalf("second observation week = %s, want %s", store.stored[1].Week, testWeek(1))
	}
}
