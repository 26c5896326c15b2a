package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mnemolab/revise/internal/domain"
	"github.com/mnemolab/revise/internal/store"
	"go.uber.org/zap"
)

type mockNodeStore struct {
	nodes map[uuid.UUID]*domain.Node

	markSupersededCalls  int
	updateLifecycleCalls int
	lastLifecycleState   domain.SupersededState
	lastDormantSince     *time.Time
	lastArchivedAt       *time.Time
}

func newMockNodeStore() *mockNodeStore {
	return &mockNodeStore{nodes: make(map[uuid.UUID]*domain.Node)}
}

func (m *mockNodeStore) put(n *domain.Node) *domain.Node {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	m.nodes[n.ID] = n
	return n
}

func (m *mockNodeStore) Create(ctx context.Context, n *domain.Node) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	now := time.Now()
	n.CreatedAt = now
	n.UpdatedAt = now
	m.nodes[n.ID] = n
	return nil
}

func (m *mockNodeStore) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*domain.Node, error) {
	n, ok := m.nodes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *n
	return &copied, nil
}

func (m *mockNodeStore) FindSimilar(ctx context.Context, tenantID uuid.UUID, embedding []float32, threshold float64, limit int) ([]domain.Node, error) {
	return nil, nil
}

func (m *mockNodeStore) MarkSuperseded(ctx context.Context, id uuid.UUID, supersededBy uuid.UUID, state domain.SupersededState, decayMultiplier float64, at time.Time) error {
	n, ok := m.nodes[id]
	if !ok {
		return store.ErrNotFound
	}
	m.markSupersededCalls++
	n.Supersession.SupersededBy = &supersededBy
	n.Supersession.SupersededAt = &at
	n.Supersession.State = state
	n.Supersession.DecayMultiplier = decayMultiplier
	n.Supersession.AccessesSinceSuperseded = 0
	return nil
}

func (m *mockNodeStore) UpdateLifecycle(ctx context.Context, id uuid.UUID, state domain.SupersededState, decayMultiplier float64, dormantSince, archivedAt *time.Time) error {
	n, ok := m.nodes[id]
	if !ok {
		return store.ErrNotFound
	}
	m.updateLifecycleCalls++
	m.lastLifecycleState = state
	m.lastDormantSince = dormantSince
	m.lastArchivedAt = archivedAt
	n.Supersession.State = state
	n.Supersession.DecayMultiplier = decayMultiplier
	n.Supersession.DormantSince = dormantSince
	n.Supersession.ArchivedAt = archivedAt
	return nil
}

func (m *mockNodeStore) RecordSupersededAccess(ctx context.Context, id uuid.UUID) error {
	n, ok := m.nodes[id]
	if !ok {
		return store.ErrNotFound
	}
	n.Supersession.AccessesSinceSuperseded++
	return nil
}

func (m *mockNodeStore) ListSuperseded(ctx context.Context, tenantID uuid.UUID) ([]domain.Node, error) {
	var out []domain.Node
	for _, n := range m.nodes {
		if n.TenantID == tenantID && n.Superseded() &&
			n.Supersession.State != domain.SupersededDeleted {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *mockNodeStore) ListArchived(ctx context.Context, tenantID uuid.UUID) ([]domain.Node, error) {
	var out []domain.Node
	for _, n := range m.nodes {
		if n.TenantID == tenantID && n.Supersession.State == domain.SupersededArchived {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *mockNodeStore) Delete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	n, ok := m.nodes[id]
	if !ok {
		return store.ErrNotFound
	}
	n.Supersession.State = domain.SupersededDeleted
	n.Content = ""
	return nil
}

type edgeLink struct {
	source, target uuid.UUID
	strength       float64
}

type mockEdgeIndex struct {
	strength float64
	err      error
	links    []edgeLink
}

func (m *mockEdgeIndex) Link(ctx context.Context, sourceID, targetID uuid.UUID, strength float64) error {
	if m.err != nil {
		return m.err
	}
	m.links = append(m.links, edgeLink{sourceID, targetID, strength})
	return nil
}

func (m *mockEdgeIndex) MaxIncomingStrength(ctx context.Context, nodeID uuid.UUID) (float64, error) {
	return m.strength, m.err
}

type mockArchiveStore struct {
	exists bool
	err    error
}

func (m *mockArchiveStore) RawContentExists(ctx context.Context, nodeID uuid.UUID) (bool, error) {
	return m.exists, m.err
}

func newLifecycleService(nodes *mockNodeStore, edges *mockEdgeIndex, archive *mockArchiveStore) *LifecycleService {
	return NewLifecycleService(DefaultLifecycleConfig(), nodes, edges, archive, zap.NewNop())
}

func supersededNode(tenantID uuid.UUID, state domain.SupersededState, retrievability float64) *domain.Node {
	successor := uuid.New()
	at := time.Now().Add(-24 * time.Hour)
	return &domain.Node{
		ID:             uuid.New(),
		TenantID:       tenantID,
		Content:        "old fact",
		Retrievability: retrievability,
		Supersession: domain.Supersession{
			SupersededBy: &successor,
			SupersededAt: &at,
			State:        state,
		},
	}
}

func TestDetermineState(t *testing.T) {
	svc := newLifecycleService(newMockNodeStore(), &mockEdgeIndex{}, &mockArchiveStore{})
	now := time.Now()
	tenantID := uuid.New()

	tests := []struct {
		name           string
		state          domain.SupersededState
		retrievability float64
		dormantFor     time.Duration
		want           domain.SupersededState
	}{
		{"high R stays active", domain.SupersededActive, 0.5, 0, domain.SupersededActive},
		{"boundary R is fading", domain.SupersededActive, 0.3, 0, domain.SupersededFading},
		{"mid R fades", domain.SupersededActive, 0.2, 0, domain.SupersededFading},
		{"low R goes dormant", domain.SupersededFading, 0.05, 0, domain.SupersededDormant},
		{"boundary low R goes dormant", domain.SupersededFading, 0.1, 0, domain.SupersededDormant},
		{"long dormancy archives", domain.SupersededDormant, 0.05, 100 * 24 * time.Hour, domain.SupersededArchived},
		{"short dormancy stays dormant", domain.SupersededDormant, 0.05, 30 * 24 * time.Hour, domain.SupersededDormant},
		{"dormant recovers when R rises", domain.SupersededDormant, 0.6, 30 * 24 * time.Hour, domain.SupersededActive},
		{"archived is sticky", domain.SupersededArchived, 0.9, 0, domain.SupersededArchived},
		{"deleted is sticky", domain.SupersededDeleted, 0.9, 0, domain.SupersededDeleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := supersededNode(tenantID, tt.state, tt.retrievability)
			if tt.dormantFor > 0 {
				since := now.Add(-tt.dormantFor)
				n.Supersession.DormantSince = &since
			}
			if got := svc.DetermineState(n, now); got != tt.want {
				t.Errorf("DetermineState = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecayMultiplier(t *testing.T) {
	svc := newLifecycleService(newMockNodeStore(), &mockEdgeIndex{}, &mockArchiveStore{})

	tests := []struct {
		state domain.SupersededState
		want  float64
	}{
		{domain.SupersededActive, 3},
		{domain.SupersededFading, 4},
		{domain.SupersededDormant, 5},
		{domain.SupersededArchived, 5},
		{domain.SupersededDeleted, 0},
	}
	for _, tt := range tests {
		got, err := svc.DecayMultiplier(tt.state)
		if err != nil {
			t.Fatalf("DecayMultiplier(%v): %v", tt.state, err)
		}
		if got != tt.want {
			t.Errorf("DecayMultiplier(%v) = %v, want %v", tt.state, got, tt.want)
		}
	}

	if _, err := svc.DecayMultiplier(domain.SupersededState("LIMBO")); err == nil {
		t.Fatal("expected error for unknown state")
	}
}

func TestEffectiveMultiplier(t *testing.T) {
	svc := newLifecycleService(newMockNodeStore(), &mockEdgeIndex{}, &mockArchiveStore{})

	// User access caps every multiplier above the ceiling.
	got, err := svc.EffectiveMultiplier(domain.SupersededDormant, true)
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Errorf("accessed dormant multiplier = %v, want capped at 2", got)
	}

	got, err = svc.EffectiveMultiplier(domain.SupersededDormant, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("untouched dormant multiplier = %v, want 5", got)
	}

	// Deleted stays at zero either way.
	got, err = svc.EffectiveMultiplier(domain.SupersededDeleted, true)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("deleted multiplier = %v, want 0", got)
	}
}

func TestCheckStateTransition(t *testing.T) {
	svc := newLifecycleService(newMockNodeStore(), &mockEdgeIndex{}, &mockArchiveStore{})
	now := time.Now()
	tenantID := uuid.New()

	// No change, no transition.
	n := supersededNode(tenantID, domain.SupersededActive, 0.5)
	if tr := svc.CheckStateTransition(n, now, false); tr != nil {
		t.Errorf("unexpected transition %+v", tr)
	}

	// Decay moves active to fading.
	n = supersededNode(tenantID, domain.SupersededActive, 0.2)
	tr := svc.CheckStateTransition(n, now, false)
	if tr == nil {
		t.Fatal("expected transition")
	}
	if tr.From != domain.SupersededActive || tr.To != domain.SupersededFading {
		t.Errorf("transition %v → %v, want ACTIVE → FADING", tr.From, tr.To)
	}
	if tr.Trigger != domain.TriggerDecay {
		t.Errorf("Trigger = %v, want decay", tr.Trigger)
	}

	// Long dormancy archives on the time trigger.
	n = supersededNode(tenantID, domain.SupersededDormant, 0.05)
	since := now.Add(-100 * 24 * time.Hour)
	n.Supersession.DormantSince = &since
	tr = svc.CheckStateTransition(n, now, false)
	if tr == nil {
		t.Fatal("expected archive transition")
	}
	if tr.To != domain.SupersededArchived || tr.Trigger != domain.TriggerTime {
		t.Errorf("To=%v Trigger=%v, want ARCHIVED/time", tr.To, tr.Trigger)
	}

	// User access recovery carries the access trigger.
	n = supersededNode(tenantID, domain.SupersededDormant, 0.6)
	tr = svc.CheckStateTransition(n, now, true)
	if tr == nil {
		t.Fatal("expected recovery transition")
	}
	if tr.To != domain.SupersededActive || tr.Trigger != domain.TriggerUserAccess {
		t.Errorf("To=%v Trigger=%v, want ACTIVE/user_access", tr.To, tr.Trigger)
	}

	// Deleted nodes never transition.
	n = supersededNode(tenantID, domain.SupersededDeleted, 0.9)
	if tr := svc.CheckStateTransition(n, now, false); tr != nil {
		t.Errorf("deleted node transitioned: %+v", tr)
	}
}

func TestApplyTransition_Bookkeeping(t *testing.T) {
	nodes := newMockNodeStore()
	svc := newLifecycleService(nodes, &mockEdgeIndex{}, &mockArchiveStore{})
	now := time.Now()
	tenantID := uuid.New()

	// Entering DORMANT stamps dormant-since once.
	n := nodes.put(supersededNode(tenantID, domain.SupersededFading, 0.05))
	tr := &domain.StateTransition{NodeID: n.ID, From: n.Supersession.State, To: domain.SupersededDormant, Trigger: domain.TriggerDecay, At: now}
	if err := svc.ApplyTransition(context.Background(), n, tr); err != nil {
		t.Fatal(err)
	}
	if nodes.lastDormantSince == nil || !nodes.lastDormantSince.Equal(now) {
		t.Errorf("dormant_since = %v, want %v", nodes.lastDormantSince, now)
	}

	// Recovery clears dormant-since.
	n.Supersession.State = domain.SupersededDormant
	tr = &domain.StateTransition{NodeID: n.ID, From: n.Supersession.State, To: domain.SupersededActive, Trigger: domain.TriggerUserAccess, At: now}
	if err := svc.ApplyTransition(context.Background(), n, tr); err != nil {
		t.Fatal(err)
	}
	if nodes.lastDormantSince != nil {
		t.Errorf("dormant_since = %v, want cleared", nodes.lastDormantSince)
	}

	// Archiving stamps archived-at.
	n.Supersession.State = domain.SupersededDormant
	tr = &domain.StateTransition{NodeID: n.ID, From: n.Supersession.State, To: domain.SupersededArchived, Trigger: domain.TriggerTime, At: now}
	if err := svc.ApplyTransition(context.Background(), n, tr); err != nil {
		t.Fatal(err)
	}
	if nodes.lastArchivedAt == nil || !nodes.lastArchivedAt.Equal(now) {
		t.Errorf("archived_at = %v, want %v", nodes.lastArchivedAt, now)
	}
}

func TestCheckDeletionEligibility(t *testing.T) {
	now := time.Now()
	tenantID := uuid.New()

	// build returns a node that passes all five criteria with the given
	// stores, which each subtest then perturbs.
	build := func() (*mockNodeStore, *mockEdgeIndex, *mockArchiveStore, *domain.Node) {
		nodes := newMockNodeStore()
		n := supersededNode(tenantID, domain.SupersededArchived, 0.01)
		archivedAt := now.Add(-200 * 24 * time.Hour)
		n.Supersession.ArchivedAt = &archivedAt
		n.Supersession.AccessesSinceArchived = 0
		nodes.put(n)
		successor := &domain.Node{ID: *n.Supersession.SupersededBy, TenantID: tenantID, Content: "new fact"}
		nodes.put(successor)
		return nodes, &mockEdgeIndex{strength: 0.2}, &mockArchiveStore{exists: true}, n
	}

	t.Run("all criteria met", func(t *testing.T) {
		nodes, edges, archive, n := build()
		svc := newLifecycleService(nodes, edges, archive)
		e, err := svc.CheckDeletionEligibility(context.Background(), n, now)
		if err != nil {
			t.Fatal(err)
		}
		if !e.Eligible() {
			t.Errorf("expected eligible, got %+v", e)
		}
	})

	t.Run("archived too recently", func(t *testing.T) {
		nodes, edges, archive, n := build()
		recent := now.Add(-30 * 24 * time.Hour)
		n.Supersession.ArchivedAt = &recent
		svc := newLifecycleService(nodes, edges, archive)
		e, _ := svc.CheckDeletionEligibility(context.Background(), n, now)
		if e.Eligible() || e.ArchivedLongEnough {
			t.Errorf("expected ArchivedLongEnough=false, got %+v", e)
		}
	})

	t.Run("accessed since archive", func(t *testing.T) {
		nodes, edges, archive, n := build()
		n.Supersession.AccessesSinceArchived = 1
		svc := newLifecycleService(nodes, edges, archive)
		e, _ := svc.CheckDeletionEligibility(context.Background(), n, now)
		if e.Eligible() || e.NoAccessSinceArchive {
			t.Errorf("expected NoAccessSinceArchive=false, got %+v", e)
		}
	})

	t.Run("strong incoming edge", func(t *testing.T) {
		nodes, _, archive, n := build()
		svc := newLifecycleService(nodes, &mockEdgeIndex{strength: 0.9}, archive)
		e, _ := svc.CheckDeletionEligibility(context.Background(), n, now)
		if e.Eligible() || e.NoStrongEdges {
			t.Errorf("expected NoStrongEdges=false, got %+v", e)
		}
	})

	t.Run("successor deleted", func(t *testing.T) {
		nodes, edges, archive, n := build()
		nodes.nodes[*n.Supersession.SupersededBy].Supersession.State = domain.SupersededDeleted
		svc := newLifecycleService(nodes, edges, archive)
		e, _ := svc.CheckDeletionEligibility(context.Background(), n, now)
		if e.Eligible() || e.SuccessorAlive {
			t.Errorf("expected SuccessorAlive=false, got %+v", e)
		}
	})

	t.Run("raw content missing from archive", func(t *testing.T) {
		nodes, edges, _, n := build()
		svc := newLifecycleService(nodes, edges, &mockArchiveStore{exists: false})
		e, _ := svc.CheckDeletionEligibility(context.Background(), n, now)
		if e.Eligible() || e.RawContentArchived {
			t.Errorf("expected RawContentArchived=false, got %+v", e)
		}
	})
}

func TestStoragePressureAudit(t *testing.T) {
	svc := newLifecycleService(newMockNodeStore(), &mockEdgeIndex{}, &mockArchiveStore{})

	if svc.StoragePressureAudit(0.79) {
		t.Error("below threshold should not schedule an audit")
	}
	if !svc.StoragePressureAudit(0.80) {
		t.Error("at threshold should schedule an audit")
	}
	if !svc.StoragePressureAudit(0.95) {
		t.Error("above threshold should schedule an audit")
	}
}

func TestExposureTables(t *testing.T) {
	retrievalTests := []struct {
		state domain.SupersededState
		want  domain.RetrievalExposure
	}{
		{domain.SupersededActive, domain.ExposureHistoryOnly},
		{domain.SupersededFading, domain.ExposureHistoryOnly},
		{domain.SupersededDormant, domain.ExposureAuditOnly},
		{domain.SupersededArchived, domain.ExposureAuditOnly},
		{domain.SupersededDeleted, domain.ExposureNone},
	}
	for _, tt := range retrievalTests {
		got, err := RetrievalExposureFor(tt.state)
		if err != nil {
			t.Fatalf("RetrievalExposureFor(%v): %v", tt.state, err)
		}
		if got != tt.want {
			t.Errorf("RetrievalExposureFor(%v) = %v, want %v", tt.state, got, tt.want)
		}
	}

	contentTests := []struct {
		state domain.SupersededState
		want  domain.ContentExposure
	}{
		{domain.SupersededActive, domain.ContentFull},
		{domain.SupersededFading, domain.ContentFull},
		{domain.SupersededDormant, domain.ContentSummary},
		{domain.SupersededArchived, domain.ContentReference},
		{domain.SupersededDeleted, domain.ContentGone},
	}
	for _, tt := range contentTests {
		got, err := ContentExposureFor(tt.state)
		if err != nil {
			t.Fatalf("ContentExposureFor(%v): %v", tt.state, err)
		}
		if got != tt.want {
			t.Errorf("ContentExposureFor(%v) = %v, want %v", tt.state, got, tt.want)
		}
	}

	if _, err := RetrievalExposureFor(domain.SupersededState("LIMBO")); err == nil {
		t.Error("expected error for unknown state")
	}
	if _, err := ContentExposureFor(domain.SupersededState("LIMBO")); err == nil {
		t.Error("expected error for unknown state")
	}
}

func TestSweepTenant(t *testing.T) {
	nodes := newMockNodeStore()
	tenantID := uuid.New()

	// One node due for fading, one stable, one archived and deletable.
	fading := nodes.put(supersededNode(tenantID, domain.SupersededActive, 0.2))
	stable := nodes.put(supersededNode(tenantID, domain.SupersededActive, 0.5))
	archived := supersededNode(tenantID, domain.SupersededArchived, 0.01)
	archivedAt := time.Now().Add(-200 * 24 * time.Hour)
	archived.Supersession.ArchivedAt = &archivedAt
	nodes.put(archived)
	nodes.put(&domain.Node{ID: *archived.Supersession.SupersededBy, TenantID: tenantID, Content: "successor"})

	svc := newLifecycleService(nodes, &mockEdgeIndex{strength: 0.1}, &mockArchiveStore{exists: true})

	transitions, deletable, err := svc.SweepTenant(context.Background(), tenantID, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	if len(transitions) != 1 {
		t.Fatalf("transitions = %d, want 1", len(transitions))
	}
	if transitions[0].NodeID != fading.ID || transitions[0].To != domain.SupersededFading {
		t.Errorf("transition = %+v, want %s → FADING", transitions[0], fading.ID)
	}
	if nodes.nodes[stable.ID].Supersession.State != domain.SupersededActive {
		t.Error("stable node should be untouched")
	}

	if len(deletable) != 1 || deletable[0] != archived.ID {
		t.Errorf("deletable = %v, want [%s]", deletable, archived.ID)
	}
}
