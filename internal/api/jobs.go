package api

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/neptun-scraper/internal/domain"
)

type job struct {
	id         string
	req        domain.ScrapeRequest
	status     string
	records    int
	failed     int
	failReason string
	createdAt  time.Time
	finishedAt *time.Time
}

func (j *job) response() domain.JobStatusResponse {
	return domain.JobStatusResponse{
		ID:         j.id,
		Target:     j.req.Target,
		Query:      j.req.Query,
		Status:     j.status,
		Records:    j.records,
		Failed:     j.failed,
		FailReason: j.failReason,
		CreatedAt:  j.createdAt,
		FinishedAt: j.finishedAt,
	}
}

// jobStore keeps the state of submitted jobs in memory.
type jobStore struct {
	mu   sync.RWMutex
	jobs map[string]*job
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[string]*job)}
}

func (s *jobStore) create(req domain.ScrapeRequest) *job {
	j := &job{
		id:        uuid.NewString(),
		req:       req,
		status:    domain.JobPending,
		createdAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.jobs[j.id] = j
	s.mu.Unlock()
	return j
}

func (s *jobStore) start(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		j.status = domain.JobRunning
	}
}

func (s *jobStore) finish(id string, records, failed int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return
	}
	now := time.Now().UTC()
	j.finishedAt = &now
	j.records = records
	j.failed = failed
	j.status = domain.JobCompleted
	if err != nil {
		j.status = domain.JobFailed
		j.failReason = err.Error()
	}
}

func (s *jobStore) get(id string) (domain.JobStatusResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return domain.JobStatusResponse{}, false
	}
	return j.response(), true
}
