package usecase

import (
	"context"
	"fmt"
	"testing"

	"RegimePull/internal/domain/models"
)

func TestKafkaHandlerStoresAndClassifies(t *testing.T) {
	fstore := &memFeatureStore{obs: map[string][]models.FeatureObservation{}}
	svc, pool := newServiceDefault(t, fstore)
	store := &recordingObsStore{seen: make(chan struct{}, 1)}
	h := NewKafkaObservationsHandler("regime.features", store, svc, nopMetrics{})

	msg := fmt.Sprintf(`{"series":"us_core","week":"%s","features":{"vix_z":3.0,"corr_z":3.0}}`,
		testWeek(0).Format("2006-01-02"))
	if err := h.Handle(context.Background(), []byte(msg)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(store.stored) != 1 {
		t.Fatalf("stored %d observations, want 1", len(store.stored))
	}
	got := store.stored[0]
	if got.Series != "us_core" || !got.Week.Equal(testWeek(0)) {
		t.Fatalf("stored %s/%s, want us_core/%s", got.Series, got.Week, testWeek(0))
	}
	if v, ok := got.Value(models.FeatureVixZ); !ok || v != 3.0 {
		t.Fatalf("vix_z = %v (present=%v), want 3.0", v, ok)
	}
	st := pool.State("us_core")
	if st == nil || st.Current != models.RegimeHighVol {
		t.Fatalf("classifier did not advance on handled message: %+v", st)
	}
}

func TestKafkaHandlerRejectsBadWeek(t *testing.T) {
	fstore := &memFeatureStore{obs: map[string][]models.FeatureObservation{}}
	svc, _ := newServiceDefault(t, fstore)
	store := &recordingObsStore{seen: make(chan struct{}, 1)}
	h := NewKafkaObservationsHandler("regime.features", store, svc, nopMetrics{})

	msg := []byte(`{"series":"us_core","week":"not-a-date","features":{"vix_z":1.0}}`)
	if err := h.Handle(context.Background(), msg); err == nil {
		t.Fatal("expected error for unparseable week")
	}
	if len(store.stored) != 0 {
		t.Fatalf("stored %d observations, want 0", len(store.stored))
	}
}
