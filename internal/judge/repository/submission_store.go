package repository

import (
	"container/list"
	"sync"
	"time"

	"elevate/internal/judge/model"
)

const (
	defaultMaxSize     = 10000
	defaultTerminalTTL = time.Hour
)

type storeEntry struct {
	submission *model.Submission
	expiresAt  time.Time // zero until the record turns terminal
}

// SubmissionStore is the in-memory registry of submission records.
// Records are evicted once terminal and older than the TTL, or in
// insertion order when the store outgrows its size cap. All state
// transitions funnel through the explicit methods below and are
// monotonic: a terminal record refuses further transitions.
type SubmissionStore struct {
	mu          sync.Mutex
	items       map[string]*list.Element
	order       *list.List // insertion order, oldest at front
	maxSize     int
	terminalTTL time.Duration
}

// NewSubmissionStore creates a store with the given size cap and
// terminal-record TTL. Non-positive arguments fall back to defaults.
func NewSubmissionStore(maxSize int, terminalTTL time.Duration) *SubmissionStore {
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	if terminalTTL <= 0 {
		terminalTTL = defaultTerminalTTL
	}
	return &SubmissionStore{
		items:       make(map[string]*list.Element, maxSize),
		order:       list.New(),
		maxSize:     maxSize,
		terminalTTL: terminalTTL,
	}
}

// Create registers a new submission record.
func (s *SubmissionStore) Create(submission *model.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked()
	if existing, ok := s.items[submission.ID]; ok {
		s.order.Remove(existing)
		delete(s.items, submission.ID)
	}
	for s.order.Len() >= s.maxSize {
		s.evictOldestLocked()
	}

	entry := &storeEntry{submission: cloneSubmission(submission)}
	s.items[submission.ID] = s.order.PushBack(entry)
}

// Get returns a copy of the record, so reads never observe or cause
// mutation of stored state.
func (s *SubmissionStore) Get(id string) (*model.Submission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	element, ok := s.items[id]
	if !ok {
		return nil, false
	}
	entry := element.Value.(*storeEntry)
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.removeLocked(id, element)
		return nil, false
	}
	return cloneSubmission(entry.submission), true
}

// MarkProcessing transitions a queued record to processing.
// Returns false when the record is missing or not queued.
func (s *SubmissionStore) MarkProcessing(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entryLocked(id)
	if !ok || entry.submission.Status != model.StatusQueued {
		return false
	}
	entry.submission.Status = model.StatusProcessing
	entry.submission.UpdatedAt = time.Now()
	return true
}

// Finish transitions a record to its terminal state based on the
// outcome's success flag, attaching the result.
func (s *SubmissionStore) Finish(id string, outcome model.Outcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entryLocked(id)
	if !ok || entry.submission.Status.Terminal() {
		return false
	}

	status := model.StatusCompleted
	if !outcome.Success {
		status = model.StatusError
	}
	entry.submission.Status = status
	entry.submission.Result = &outcome
	if outcome.Error != nil {
		entry.submission.Error = *outcome.Error
	}
	entry.submission.UpdatedAt = time.Now()
	entry.expiresAt = time.Now().Add(s.terminalTTL)
	return true
}

// FailDispatch marks a record as errored after a dispatch failure
// distinct from a normalized outcome.
func (s *SubmissionStore) FailDispatch(id, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entryLocked(id)
	if !ok || entry.submission.Status.Terminal() {
		return false
	}
	entry.submission.Status = model.StatusError
	entry.submission.Error = message
	entry.submission.UpdatedAt = time.Now()
	entry.expiresAt = time.Now().Add(s.terminalTTL)
	return true
}

// Remove drops a record, used to roll back a creation whose enqueue
// was rejected.
func (s *SubmissionStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if element, ok := s.items[id]; ok {
		s.removeLocked(id, element)
	}
}

// Len returns the number of live records.
func (s *SubmissionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked()
	return s.order.Len()
}

func (s *SubmissionStore) entryLocked(id string) (*storeEntry, bool) {
	element, ok := s.items[id]
	if !ok {
		return nil, false
	}
	entry := element.Value.(*storeEntry)
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.removeLocked(id, element)
		return nil, false
	}
	return entry, true
}

func (s *SubmissionStore) purgeExpiredLocked() {
	now := time.Now()
	for element := s.order.Front(); element != nil; {
		next := element.Next()
		entry := element.Value.(*storeEntry)
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			s.removeLocked(entry.submission.ID, element)
		}
		element = next
	}
}

func (s *SubmissionStore) evictOldestLocked() {
	front := s.order.Front()
	if front == nil {
		return
	}
	entry := front.Value.(*storeEntry)
	s.removeLocked(entry.submission.ID, front)
}

func (s *SubmissionStore) removeLocked(id string, element *list.Element) {
	s.order.Remove(element)
	delete(s.items, id)
}

func cloneSubmission(submission *model.Submission) *model.Submission {
	clone := *submission
	if submission.Metadata != nil {
		clone.Metadata = make(map[string]interface{}, len(submission.Metadata))
		for k, v := range submission.Metadata {
			clone.Metadata[k] = v
		}
	}
	if submission.Result != nil {
		result := *submission.Result
		clone.Result = &result
	}
	return &clone
}
