package availability

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/healthfirst/portal-api/internal/model"
	"github.com/healthfirst/portal-api/pkg/metrics"
)

func newTestService(sub Submitter, m *metrics.Metrics) Service {
	return NewService(Config{IdleTTL: time.Minute}, sub, m, zap.NewNop())
}

func TestService_RequiresSession(t *testing.T) {
	svc := newTestService(&mockSubmitter{}, nil)

	_, err := svc.Draft("")
	assert.ErrorIs(t, err, ErrSessionRequired)
	_, err = svc.Save(context.Background(), "", "tok")
	assert.ErrorIs(t, err, ErrSessionRequired)
}

func TestService_EditorPerSession(t *testing.T) {
	svc := newTestService(&mockSubmitter{}, nil)

	d, err := svc.Edit("a", func(e *Editor) { e.SetTimezone("UTC+01:00") })
	require.NoError(t, err)
	assert.Equal(t, "UTC+01:00", d.Timezone)

	other, err := svc.Draft("b")
	require.NoError(t, err)
	assert.Equal(t, model.PlaceholderDraft(), other)

	again, err := svc.Draft("a")
	require.NoError(t, err)
	assert.Equal(t, "UTC+01:00", again.Timezone)

	svc.Discard("a")
	fresh, err := svc.Draft("a")
	require.NoError(t, err)
	assert.Equal(t, model.PlaceholderDraft(), fresh)
}

func TestService_ConcurrentEditsSerialize(t *testing.T) {
	svc := newTestService(&mockSubmitter{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Edit("s", func(e *Editor) { e.AddWeeklySlot() })
		}()
	}
	wg.Wait()

	d, err := svc.Draft("s")
	require.NoError(t, err)
	assert.Len(t, d.WeeklySlots, 56)
	assertUnique(t, ids(d.WeeklySlots, slotID))
}

func TestService_Save(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry(), "test")
	sub := &mockSubmitter{}
	svc := newTestService(sub, m)
	ctx := context.Background()

	draft, err := svc.Edit("s", func(e *Editor) { e.SelectClinician("Dr. Johnson") })
	require.NoError(t, err)

	sub.On("SubmitAvailability", mock.Anything, "tok", draft).Return(nil).Once()
	saved, err := svc.Save(ctx, "s", "tok")
	require.NoError(t, err)
	assert.Equal(t, draft, saved)

	sub.On("SubmitAvailability", mock.Anything, "tok", draft).Return(assert.AnError).Once()
	_, err = svc.Save(ctx, "s", "tok")
	assert.ErrorIs(t, err, assert.AnError)

	sub.AssertExpectations(t)

	// The draft survives both outcomes.
	kept, err := svc.Draft("s")
	require.NoError(t, err)
	assert.Equal(t, "Dr. Johnson", kept.ClinicianName)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AvailabilitySaves.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AvailabilitySaves.WithLabelValues("error")))
}
