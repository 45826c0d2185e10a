package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/labourline/internal/models"
	"github.com/yoockh/labourline/internal/utils"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func intPtr(v int) *int { return &v }

type fakeWorkerRepo struct {
	mu      sync.Mutex
	rows    []models.Worker
	findErr error
	panics  bool
}

func (r *fakeWorkerRepo) Create(_ context.Context, w *models.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w.ID = uint(len(r.rows) + 1)
	r.rows = append(r.rows, *w)
	return nil
}

func (r *fakeWorkerRepo) GetByID(_ context.Context, id uint) (*models.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.rows {
		if w.ID == id {
			out := w
			return &out, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (r *fakeWorkerRepo) FindBySkill(_ context.Context, skill string) ([]models.Worker, error) {
	if r.panics {
		panic("worker index corrupted")
	}
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(skill)
	var out []models.Worker
	for i := len(r.rows) - 1; i >= 0; i-- {
		w := r.rows[i]
		if strings.Contains(strings.ToLower(w.WorkExpertise), q) || strings.Contains(strings.ToLower(w.Bio), q) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *fakeWorkerRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type fakeJobRepo struct {
	mu        sync.Mutex
	rows      []models.Job
	findErr   error
	createErr error
}

func (r *fakeJobRepo) Create(_ context.Context, j *models.Job) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	j.ID = uint(len(r.rows) + 1)
	r.rows = append(r.rows, *j)
	return nil
}

func (r *fakeJobRepo) GetByID(_ context.Context, id uint) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.rows {
		if j.ID == id {
			out := j
			return &out, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (r *fakeJobRepo) FindBySkill(_ context.Context, skill string) ([]models.Job, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(skill)
	var out []models.Job
	for i := len(r.rows) - 1; i >= 0; i-- {
		j := r.rows[i]
		if strings.Contains(strings.ToLower(j.TypeOfWork), q) || strings.Contains(strings.ToLower(j.Description), q) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type fakeCallLogs struct {
	mu      sync.Mutex
	entries []CallLogEntry
	// failCompleted makes the next completed-status write fail.
	failCompleted bool
}

func (f *fakeCallLogs) Record(_ context.Context, e CallLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCompleted && e.Status == models.CallCompleted {
		f.failCompleted = false
		return errBoom
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeCallLogs) statuses() []models.CallStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CallStatus
	for _, e := range f.entries {
		out = append(out, e.Status)
	}
	return out
}

type fakeTelemetry struct {
	mu     sync.Mutex
	events []models.CallEvent
}

func (f *fakeTelemetry) Publish(_ context.Context, e models.CallEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeTelemetry) types() []models.CallEventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CallEventType
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, callID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.calls = append(d.calls, callID)
	return nil
}

func (d *fakeDispatcher) dispatched() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

type fakeAbandoner struct {
	mu     sync.Mutex
	causes map[string]error
}

func (a *fakeAbandoner) Abandon(_ context.Context, callID string, cause error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.causes == nil {
		a.causes = map[string]error{}
	}
	a.causes[callID] = cause
}

// stubTranscriber answers by recording ref; refs in errs fail.
type stubTranscriber struct {
	texts   map[string]string
	errs    map[string]error
	locales []string
}

func (s *stubTranscriber) Transcribe(_ context.Context, _, _, ref, locale string) (string, error) {
	s.locales = append(s.locales, locale)
	if err, ok := s.errs[ref]; ok {
		return "", err
	}
	return s.texts[ref], nil
}

type fakeSender struct {
	mu     sync.Mutex
	to     []string
	bodies []string
	err    error
}

func (s *fakeSender) Send(_ context.Context, to, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.to = append(s.to, to)
	s.bodies = append(s.bodies, body)
	return "SM" + to, nil
}

type fakeFailureRepo struct {
	mu   sync.Mutex
	rows []models.PipelineFailure
}

func (r *fakeFailureRepo) Create(_ context.Context, f *models.PipelineFailure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.ID = uint(len(r.rows) + 1)
	r.rows = append(r.rows, *f)
	return nil
}

func (r *fakeFailureRepo) GetByID(_ context.Context, id uint) (*models.PipelineFailure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.rows {
		if f.ID == id {
			out := f
			return &out, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (r *fakeFailureRepo) ListUnresolved(_ context.Context, _ int) ([]models.PipelineFailure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PipelineFailure
	for _, f := range r.rows {
		if !f.Resolved {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeFailureRepo) MarkResolved(_ context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id && !r.rows[i].Resolved {
			r.rows[i].Resolved = true
			r.rows[i].ResolvedAt = &at
			return nil
		}
	}
	return utils.ErrNotFound
}

func (r *fakeFailureRepo) Reopen(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id {
			r.rows[i].Resolved = false
			r.rows[i].ResolvedAt = nil
		}
	}
	return nil
}

var errBoom = errors.New("boom")
