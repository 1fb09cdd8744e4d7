// Package drivertest provides an in-memory driver.SessionOpener that records
// statements and replays scripted results.
package drivertest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/weaver/internal/driver"
)

type Call struct {
	Cypher string
	Params map[string]any
}

// Response is what a matching Run call produces. RunErr fails Run itself;
// Err surfaces from the cursor after the records are consumed.
type Response struct {
	Records []*neo4j.Record
	Err     error
	RunErr  error
}

type rule struct {
	match string
	resp  Response
}

type Store struct {
	mu     sync.Mutex
	calls  []Call
	rules  []rule
	opened int
	closed int
}

func New() *Store {
	return &Store{}
}

// On registers resp for every statement containing match. Earlier rules win.
func (s *Store) On(match string, resp Response) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, rule{match: match, resp: resp})
	return s
}

func (s *Store) OpenSession(ctx context.Context) driver.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened++
	return &session{store: s}
}

func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsMatching returns the recorded calls whose statement contains match.
func (s *Store) CallsMatching(match string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if strings.Contains(c.Cypher, match) {
			out = append(out, c)
		}
	}
	return out
}

// Sessions reports how many sessions were opened and closed.
func (s *Store) Sessions() (opened, closed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened, s.closed
}

func (s *Store) respond(cypher string, params map[string]any) Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Cypher: cypher, Params: params})
	for _, r := range s.rules {
		if strings.Contains(cypher, r.match) {
			return r.resp
		}
	}
	return Response{}
}

type session struct {
	store  *Store
	closed bool
}

func (s *session) Run(ctx context.Context, cypher string, params map[string]any) (driver.Result, error) {
	if s.closed {
		return nil, errors.New("drivertest: run on closed session")
	}
	resp := s.store.respond(cypher, params)
	if resp.RunErr != nil {
		return nil, resp.RunErr
	}
	return &Result{records: resp.Records, err: resp.Err}, nil
}

func (s *session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.store.mu.Lock()
	s.store.closed++
	s.store.mu.Unlock()
	return nil
}

type Result struct {
	records []*neo4j.Record
	idx     int
	current *neo4j.Record
	err     error
}

func (r *Result) Next(ctx context.Context) bool {
	if r.idx >= len(r.records) {
		r.current = nil
		return false
	}
	r.current = r.records[r.idx]
	r.idx++
	return true
}

func (r *Result) Record() *neo4j.Record { return r.current }

func (r *Result) Single(ctx context.Context) (*neo4j.Record, error) {
	if r.err != nil {
		return nil, r.err
	}
	if len(r.records)-r.idx != 1 {
		return nil, errors.New("drivertest: result does not contain exactly one record")
	}
	return r.records[r.idx], nil
}

func (r *Result) Err() error { return r.err }

// Record builds a record from alternating keys and values.
func Record(kv ...any) *neo4j.Record {
	rec := &neo4j.Record{}
	for i := 0; i+1 < len(kv); i += 2 {
		rec.Keys = append(rec.Keys, kv[i].(string))
		rec.Values = append(rec.Values, kv[i+1])
	}
	return rec
}
