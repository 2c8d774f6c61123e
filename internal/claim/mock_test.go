package claim_test

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/claim"
	"github.com/frahmantamala/time2pay/internal/core/events"
)

// mockClaimRepository keeps rows in maps; WithinTransaction snapshots and
// restores them so a failing callback leaves nothing behind.
type mockClaimRepository struct {
	mu            sync.Mutex
	claims        map[int64]*claim.Claim
	documents     map[int64][]claim.SupportingDocument
	verifications []claim.AuditEntry
	approvals     []claim.AuditEntry
	profiles      map[int64]*claim.Profile
	nextID        int64

	createError   error
	documentError error
	updateMisses  int
}

func newMockClaimRepository() *mockClaimRepository {
	return &mockClaimRepository{
		claims:    make(map[int64]*claim.Claim),
		documents: make(map[int64][]claim.SupportingDocument),
		profiles:  make(map[int64]*claim.Profile),
		nextID:    1,
	}
}

type repoSnapshot struct {
	claims        map[int64]claim.Claim
	documents     map[int64][]claim.SupportingDocument
	verifications []claim.AuditEntry
	approvals     []claim.AuditEntry
}

func (m *mockClaimRepository) snapshot() repoSnapshot {
	s := repoSnapshot{
		claims:        make(map[int64]claim.Claim),
		documents:     make(map[int64][]claim.SupportingDocument),
		verifications: append([]claim.AuditEntry(nil), m.verifications...),
		approvals:     append([]claim.AuditEntry(nil), m.approvals...),
	}
	for id, c := range m.claims {
		s.claims[id] = *c
	}
	for id, docs := range m.documents {
		s.documents[id] = append([]claim.SupportingDocument(nil), docs...)
	}
	return s
}

func (m *mockClaimRepository) restore(s repoSnapshot) {
	m.claims = make(map[int64]*claim.Claim)
	for id, c := range s.claims {
		c := c
		m.claims[id] = &c
	}
	m.documents = s.documents
	m.verifications = s.verifications
	m.approvals = s.approvals
}

func (m *mockClaimRepository) WithinTransaction(ctx context.Context, fn func(tx claim.Repository) error) error {
	m.mu.Lock()
	snap := m.snapshot()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.restore(snap)
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *mockClaimRepository) addProfile(p *claim.Profile) {
	m.profiles[p.EmployeeID] = p
}

func (m *mockClaimRepository) Create(ctx context.Context, c *claim.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createError != nil {
		return m.createError
	}
	c.ID = m.nextID
	m.nextID++
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	stored := *c
	stored.Documents = nil
	m.claims[c.ID] = &stored
	return nil
}

func (m *mockClaimRepository) get(id int64) (*claim.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return nil, errors.ClaimNotFound()
	}
	out := *c
	if p, ok := m.profiles[c.EmployeeID]; ok {
		out.EmployeeName = p.Name
		out.DepartmentID = p.DepartmentID
		out.DepartmentName = p.DepartmentName
	}
	return &out, nil
}

func (m *mockClaimRepository) GetByID(ctx context.Context, id int64) (*claim.Claim, error) {
	return m.get(id)
}

func (m *mockClaimRepository) GetForUpdate(ctx context.Context, id int64) (*claim.Claim, error) {
	return m.get(id)
}

func (m *mockClaimRepository) conditional(id int64, from claim.Status, apply func(c *claim.Claim)) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateMisses > 0 {
		m.updateMisses--
		return false, nil
	}
	c, ok := m.claims[id]
	if !ok || c.Status != from {
		return false, nil
	}
	apply(c)
	c.UpdatedAt = time.Now()
	return true, nil
}

func (m *mockClaimRepository) UpdateStatus(ctx context.Context, id int64, from, to claim.Status) (bool, error) {
	return m.conditional(id, from, func(c *claim.Claim) { c.Status = to })
}

func (m *mockClaimRepository) UpdateDetails(ctx context.Context, upd *claim.Claim, from claim.Status) (bool, error) {
	return m.conditional(upd.ID, from, func(c *claim.Claim) {
		c.HoursWorked = upd.HoursWorked
		c.WorkMonth = upd.WorkMonth
		c.TotalAmount = upd.TotalAmount
		c.Status = upd.Status
	})
}

func (m *mockClaimRepository) SoftDelete(ctx context.Context, id int64, from claim.Status) (bool, error) {
	return m.conditional(id, from, func(c *claim.Claim) {
		c.Status = claim.StatusDeleted
		c.IsDeleted = true
	})
}

func (m *mockClaimRepository) AddDocument(ctx context.Context, doc *claim.SupportingDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.documentError != nil {
		return m.documentError
	}
	doc.ID = m.nextID
	m.nextID++
	doc.UploadedAt = time.Now()
	m.documents[doc.ClaimID] = append(m.documents[doc.ClaimID], *doc)
	return nil
}

func (m *mockClaimRepository) ReplaceDocuments(ctx context.Context, claimID int64, doc *claim.SupportingDocument) ([]claim.SupportingDocument, error) {
	m.mu.Lock()
	old := m.documents[claimID]
	m.documents[claimID] = nil
	m.mu.Unlock()
	if err := m.AddDocument(ctx, doc); err != nil {
		return nil, err
	}
	return old, nil
}

func (m *mockClaimRepository) Documents(ctx context.Context, claimID int64) ([]claim.SupportingDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]claim.SupportingDocument(nil), m.documents[claimID]...), nil
}

func (m *mockClaimRepository) AppendVerification(ctx context.Context, claimID, actorID int64, status claim.Status, remarks *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications = append(m.verifications, claim.AuditEntry{
		Kind: claim.AuditKindVerification, ClaimID: claimID, ActorID: actorID, Status: status, Remarks: remarks, CreatedAt: time.Now(),
	})
	return nil
}

func (m *mockClaimRepository) AppendApproval(ctx context.Context, claimID, actorID int64, status claim.Status, remarks *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approvals = append(m.approvals, claim.AuditEntry{
		Kind: claim.AuditKindApproval, ClaimID: claimID, ActorID: actorID, Status: status, Remarks: remarks, CreatedAt: time.Now(),
	})
	return nil
}

func (m *mockClaimRepository) History(ctx context.Context, claimID int64) ([]claim.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []claim.AuditEntry
	for _, e := range append(append([]claim.AuditEntry(nil), m.verifications...), m.approvals...) {
		if e.ClaimID == claimID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockClaimRepository) EmployeeProfile(ctx context.Context, employeeID int64) (*claim.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[employeeID]
	if !ok {
		return nil, errors.EmployeeNotFound()
	}
	out := *p
	return &out, nil
}

func (m *mockClaimRepository) ListByEmployee(ctx context.Context, employeeID int64) ([]*claim.Claim, error) {
	var out []*claim.Claim
	for id := range m.claims {
		c, _ := m.get(id)
		if c.EmployeeID == employeeID && !c.IsDeleted {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockClaimRepository) ListByDepartment(ctx context.Context, filter claim.ListFilter) ([]*claim.Claim, error) {
	var out []*claim.Claim
	for id := range m.claims {
		c, _ := m.get(id)
		if c.DepartmentID != filter.DepartmentID || c.IsDeleted {
			continue
		}
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *mockClaimRepository) CountByStatus(ctx context.Context, departmentID int64) (map[claim.Status]int64, error) {
	counts := make(map[claim.Status]int64)
	claims, _ := m.ListByDepartment(ctx, claim.ListFilter{DepartmentID: departmentID})
	for _, c := range claims {
		counts[c.Status]++
	}
	return counts, nil
}

func (m *mockClaimRepository) verificationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.verifications)
}

func (m *mockClaimRepository) approvalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.approvals)
}

type mockStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string
	saveErr error
}

func newMockStore() *mockStore {
	return &mockStore{files: make(map[string][]byte)}
}

func (s *mockStore) Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = data
	return nil
}

func (s *mockStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[key]
	if !ok {
		return nil, errors.DocumentNotFound()
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *mockStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *mockStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

type mockPublisher struct {
	mu        sync.Mutex
	published []events.Event
}

func (p *mockPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, event)
	return nil
}

func (p *mockPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.published {
		out = append(out, e.EventType())
	}
	return out
}
