/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package queue

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/acronis/go-apiconsole/log"
)

// Store keeps request records keyed by id and remembers the submission order.
// All methods are safe for concurrent use.
type Store struct {
	logger log.FieldLogger
	now    func() time.Time

	mu      sync.RWMutex
	records map[string]*RequestRecord
	// pending holds ids in submission order. It may contain ids of removed or already claimed records,
	// they are skipped lazily by claimPending.
	pending []string
	seq     uint64
	counts  map[State]int
}

// NewStore creates a new empty Store.
func NewStore(logger log.FieldLogger) *Store {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Store{
		logger:  logger,
		now:     time.Now,
		records: make(map[string]*RequestRecord),
		counts:  make(map[State]int),
	}
}

// Add creates a new pending record for the descriptor and returns its copy.
func (s *Store) Add(desc RequestDescriptor) RequestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	rec := &RequestRecord{
		ID:          uuid.NewString(),
		Seq:         s.seq,
		Descriptor:  desc,
		State:       StatePending,
		SubmittedAt: s.now(),
	}
	s.records[rec.ID] = rec
	s.pending = append(s.pending, rec.ID)
	s.counts[StatePending]++
	return rec.clone()
}

// Get returns a copy of the record by id.
func (s *Store) Get(id string) (RequestRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return RequestRecord{}, ErrRecordNotFound
	}
	return rec.clone(), nil
}

// List returns copies of all records in submission order.
func (s *Store) List() []RequestRecord {
	return s.filter(func(*RequestRecord) bool { return true })
}

// ListByState returns copies of the records in the given state in submission order.
func (s *Store) ListByState(state State) []RequestRecord {
	return s.filter(func(rec *RequestRecord) bool { return rec.State == state })
}

func (s *Store) filter(match func(rec *RequestRecord) bool) []RequestRecord {
	s.mu.RLock()
	result := make([]RequestRecord, 0, len(s.records))
	for _, rec := range s.records {
		if match(rec) {
			result = append(result, rec.clone())
		}
	}
	s.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool { return result[i].Seq < result[j].Seq })
	return result
}

// Counts returns the number of records per state.
func (s *Store) Counts() map[State]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make(map[State]int, len(s.counts))
	for state, n := range s.counts {
		res[state] = n
	}
	return res
}

// Len returns the total number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Transition applies the terminal outcome to the running record.
// Unknown ids and records that are already terminal are left untouched, the attempt is logged.
func (s *Store) Transition(id string, outcome Outcome) (RequestRecord, error) {
	if !outcome.State.IsTerminal() {
		return RequestRecord{}, ErrInvalidTransition
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		s.logger.Debug("transition of unknown request record is ignored",
			log.String("request_id", id), log.String("state", string(outcome.State)))
		return RequestRecord{}, ErrRecordNotFound
	}
	if rec.State.IsTerminal() {
		s.logger.Debug("transition of finished request record is ignored",
			log.String("request_id", id), log.String("state", string(rec.State)),
			log.String("rejected_state", string(outcome.State)))
		return rec.clone(), ErrTerminalState
	}
	if rec.State != StateRunning {
		s.logger.Warn("transition of not running request record is ignored",
			log.String("request_id", id), log.String("state", string(rec.State)),
			log.String("rejected_state", string(outcome.State)))
		return rec.clone(), ErrInvalidTransition
	}

	s.counts[rec.State]--
	rec.State = outcome.State
	finishedAt := s.now()
	rec.FinishedAt = &finishedAt
	rec.Duration = finishedAt.Sub(*rec.StartedAt)
	rec.Result = outcome.Result
	rec.Failure = outcome.Failure
	s.counts[rec.State]++
	return rec.clone(), nil
}

// Remove deletes the pending record.
// Running and finished records can't be removed individually.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	if rec.State != StatePending {
		return ErrRecordNotPending
	}
	delete(s.records, id)
	s.counts[StatePending]--
	return nil
}

// ClearAll removes every record regardless of its state and returns the number of removed records.
func (s *Store) ClearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.records)
	s.records = make(map[string]*RequestRecord)
	s.pending = nil
	s.counts = make(map[State]int)
	return n
}

// claimPending moves up to n oldest pending records to the running state.
// Selection and transition happen under the same lock, so a record can't be claimed twice.
func (s *Store) claimPending(n int) []RequestRecord {
	if n <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var claimed []RequestRecord
	i := 0
	for ; i < len(s.pending) && len(claimed) < n; i++ {
		rec, ok := s.records[s.pending[i]]
		if !ok || rec.State != StatePending {
			continue
		}
		rec.State = StateRunning
		startedAt := s.now()
		rec.StartedAt = &startedAt
		s.counts[StatePending]--
		s.counts[StateRunning]++
		claimed = append(claimed, rec.clone())
	}
	s.pending = s.pending[i:]
	return claimed
}
