package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/intake"
	"github.com/vcscsvcscs/raredx/apps/backend/pkg/model"
	"go.uber.org/zap"
)

// stubDiagnoser answers every submission with the same result
type stubDiagnoser struct {
	result *model.DiagnosisResult
	err    error
	calls  atomic.Int32
}

func (d *stubDiagnoser) Diagnose(ctx context.Context, req model.DiagnosisRequest) (*model.DiagnosisResult, error) {
	d.calls.Add(1)
	return d.result, d.err
}

func newTestIntakeService(t *testing.T, diagnoser intake.Diagnoser, opts IntakeOptions) (*IntakeService, *MockRecorder) {
	t.Helper()
	recorder := new(MockRecorder)
	recorder.On("Record", mock.Anything, mock.Anything).Return(nil)

	s := NewIntakeService(intake.DefaultCatalog(), diagnoser, opts, recorder, zap.NewNop())
	t.Cleanup(s.Close)
	return s, recorder
}

func TestIntakeService_CreateGetDelete(t *testing.T) {
	s, recorder := newTestIntakeService(t, &stubDiagnoser{}, IntakeOptions{})
	ctx := context.Background()

	session, err := s.Create(ctx, RequestMeta{IPAddress: "127.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, 1, s.Len())

	got, err := s.Get(session.ID)
	require.NoError(t, err)
	assert.Same(t, session, got)
	assert.Equal(t, intake.PhaseInProgress, got.Controller().Snapshot().Phase)

	require.NoError(t, s.Delete(ctx, session.ID, RequestMeta{}))
	assert.Equal(t, 0, s.Len())

	_, err = s.Get(session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, s.Delete(ctx, session.ID, RequestMeta{}), ErrSessionNotFound)

	recorder.AssertNumberOfCalls(t, "Record", 2)
}

func TestIntakeService_MaxSessions(t *testing.T) {
	s, _ := newTestIntakeService(t, &stubDiagnoser{}, IntakeOptions{MaxSessions: 2})
	ctx := context.Background()

	_, err := s.Create(ctx, RequestMeta{})
	require.NoError(t, err)
	_, err = s.Create(ctx, RequestMeta{})
	require.NoError(t, err)

	_, err = s.Create(ctx, RequestMeta{})
	assert.ErrorIs(t, err, ErrTooManySessions)
	assert.Equal(t, 2, s.Len())
}

func TestIntakeService_Sweep(t *testing.T) {
	s, _ := newTestIntakeService(t, &stubDiagnoser{}, IntakeOptions{SessionTTL: 10 * time.Minute})
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	idle, err := s.Create(ctx, RequestMeta{})
	require.NoError(t, err)
	active, err := s.Create(ctx, RequestMeta{})
	require.NoError(t, err)

	now = now.Add(8 * time.Minute)
	_, err = s.Get(active.ID)
	require.NoError(t, err)

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 1, s.Sweep())

	_, err = s.Get(idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = s.Get(active.ID)
	assert.NoError(t, err)

	// closed controllers refuse edits
	assert.ErrorIs(t, idle.Controller().SetAnswer("name", "Ada"), intake.ErrNotEditable)
}

func TestIntakeService_SweepKeepsWatchedSessions(t *testing.T) {
	s, _ := newTestIntakeService(t, &stubDiagnoser{}, IntakeOptions{SessionTTL: 10 * time.Minute})
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	watched, err := s.Create(ctx, RequestMeta{})
	require.NoError(t, err)
	release := s.Watch(watched)

	now = now.Add(time.Hour)
	assert.Equal(t, 0, s.Sweep())
	assert.Equal(t, 1, s.Len())

	// the idle timer restarts when the stream goes away
	release()
	release()
	now = now.Add(5 * time.Minute)
	assert.Equal(t, 0, s.Sweep())

	now = now.Add(6 * time.Minute)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 0, s.Len())
}

func TestIntakeService_RunJanitorStopsWithContext(t *testing.T) {
	s, _ := newTestIntakeService(t, &stubDiagnoser{}, IntakeOptions{SessionTTL: time.Nanosecond})

	_, err := s.Create(context.Background(), RequestMeta{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunJanitor(ctx, time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestIntakeSession_BuffersNotificationsAndFocus(t *testing.T) {
	s, _ := newTestIntakeService(t, &stubDiagnoser{}, IntakeOptions{})

	session, err := s.Create(context.Background(), RequestMeta{})
	require.NoError(t, err)

	require.NoError(t, session.Controller().Advance(context.Background()))

	notes, focus := session.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Missing Information", notes[0].Title)
	assert.Equal(t, intake.SeverityDestructive, notes[0].Severity)
	assert.Equal(t, "name", focus)

	notes, focus = session.Drain()
	assert.Empty(t, notes)
	assert.Empty(t, focus)
}

func TestIntakeSession_NotificationBufferIsBounded(t *testing.T) {
	session := &IntakeSession{}
	for i := 0; i < maxPendingNotifications+5; i++ {
		session.notify(intake.Notification{Title: "n"})
	}
	notes, _ := session.Drain()
	assert.Len(t, notes, maxPendingNotifications)
}

func TestIntakeSession_FullAssessment(t *testing.T) {
	diagnoser := &stubDiagnoser{result: &model.DiagnosisResult{
		Candidates: []model.Candidate{{DiseaseName: "DiseaseB", Score: 91}, {DiseaseName: "DiseaseA", Score: 77}},
	}}
	s, _ := newTestIntakeService(t, diagnoser, IntakeOptions{SubmitTimeout: time.Second})
	ctx := context.Background()

	session, err := s.Create(ctx, RequestMeta{})
	require.NoError(t, err)
	c := session.Controller()

	for id, v := range map[string]string{"name": "Ada", "age": "36", "gender": "Female"} {
		require.NoError(t, c.SetAnswer(id, v))
	}
	require.NoError(t, c.Advance(ctx))
	for id, v := range map[string]string{"symptoms": "joint pain", "duration": "1-2 years"} {
		require.NoError(t, c.SetAnswer(id, v))
	}
	require.NoError(t, c.Advance(ctx))
	require.NoError(t, c.Advance(ctx))

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	snap, err := c.Wait(waitCtx)
	require.NoError(t, err)

	assert.Equal(t, intake.PhaseCompleted, snap.Phase)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "DiseaseB", snap.Result.Candidates[0].DiseaseName)
	assert.Equal(t, int32(1), diagnoser.calls.Load())

	notes, _ := session.Drain()
	require.NotEmpty(t, notes)
	assert.Equal(t, "Analysis complete", notes[len(notes)-1].Title)
	assert.Equal(t, "Found 2 potential matches", notes[len(notes)-1].Description)
}
