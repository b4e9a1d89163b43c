// engine/service/testsupport_test.go
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/foodwars/territory-engine/shared/models"
	"github.com/google/uuid"
)

// memState is an in-memory stand-in for the MongoDB stores. One mutex
// serializes all mutations, mirroring the per-document compare-and-swap
// discipline of the real stores, and WithTransaction snapshots/restores the
// whole state so a failed transaction leaves no partial effect.
type memState struct {
	txMu   sync.Mutex // serializes whole transactions
	mu     sync.Mutex
	nodes  map[string]*models.Node
	teams  map[string]*models.Team
	ledger map[string]int64 // key: teamID + "/" + type
	logs   []models.AuditLogEntry
	active bool

	// failScoreFor / failLedgerFor inject storage failures per team ID.
	failScoreFor  map[string]bool
	failLedgerFor map[string]bool

	// onGetNode, when set, runs before every node read. Race tests use it as
	// a barrier so all contenders observe the same pre-mutation state.
	onGetNode func(nodeID string)
}

func newMemState() *memState {
	return &memState{
		nodes:         make(map[string]*models.Node),
		teams:         make(map[string]*models.Team),
		ledger:        make(map[string]int64),
		failScoreFor:  make(map[string]bool),
		failLedgerFor: make(map[string]bool),
	}
}

func ledgerKey(teamID string, resourceType models.ResourceType) string {
	return teamID + "/" + string(resourceType)
}

func (m *memState) addNode(node models.Node) *models.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := node
	m.nodes[n.ID] = &n
	return &n
}

func (m *memState) addTeam(id, name, color string) *models.Team {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &models.Team{ID: id, Name: name, Color: color}
	m.teams[id] = t
	return t
}

func (m *memState) nodeCopy(id string) models.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.nodes[id]
}

func (m *memState) teamScore(id string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.teams[id].Score
}

func (m *memState) ledgerAmount(teamID string, resourceType models.ResourceType) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger[ledgerKey(teamID, resourceType)]
}

func (m *memState) logCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

// --- NodeStore ---

func (m *memState) GetNode(ctx context.Context, nodeID string) (*models.Node, error) {
	if m.onGetNode != nil {
		m.onGetNode(nodeID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	node, ok := m.nodes[nodeID]
	if !ok {
		return nil, nil
	}
	n := *node
	return &n, nil
}

func (m *memState) ListNodes(ctx context.Context) ([]models.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Node, 0, len(m.nodes))
	for _, node := range m.nodes {
		out = append(out, *node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memState) ListOwnedNodes(ctx context.Context) ([]models.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Node
	for _, node := range m.nodes {
		if node.ControlledBy != nil {
			out = append(out, *node)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memState) CreateNode(ctx context.Context, node *models.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.nodes[node.ID]; exists {
		return fmt.Errorf("node %s already exists", node.ID)
	}
	n := *node
	m.nodes[n.ID] = &n
	return nil
}

func (m *memState) DeleteNode(ctx context.Context, nodeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[nodeID]; !ok {
		return false, nil
	}
	delete(m.nodes, nodeID)
	return true, nil
}

func (m *memState) CaptureNode(ctx context.Context, nodeID, teamID string, prevOwner *string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	node, ok := m.nodes[nodeID]
	if !ok {
		return false, nil
	}
	switch {
	case prevOwner == nil && node.ControlledBy != nil:
		return false, nil
	case prevOwner != nil && (node.ControlledBy == nil || *node.ControlledBy != *prevOwner):
		return false, nil
	}
	owner := teamID
	node.ControlledBy = &owner
	node.LastSettledAt = now
	return true, nil
}

func (m *memState) SettleNode(ctx context.Context, nodeID, teamID string, lastSettledAt, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	node, ok := m.nodes[nodeID]
	if !ok || node.ControlledBy == nil || *node.ControlledBy != teamID || !node.LastSettledAt.Equal(lastSettledAt) {
		return false, nil
	}
	node.LastSettledAt = now
	return true, nil
}

func (m *memState) ResetAllNodes(ctx context.Context, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, node := range m.nodes {
		node.ControlledBy = nil
		node.LastSettledAt = now
	}
	return nil
}

// --- TeamStore ---

func (m *memState) GetTeamByName(ctx context.Context, name string) (*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, team := range m.teams {
		if team.Name == name {
			t := *team
			return &t, nil
		}
	}
	return nil, nil
}

func (m *memState) GetTeamByID(ctx context.Context, teamID string) (*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	team, ok := m.teams[teamID]
	if !ok {
		return nil, nil
	}
	t := *team
	return &t, nil
}

func (m *memState) ListTeams(ctx context.Context) ([]models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Team, 0, len(m.teams))
	for _, team := range m.teams {
		out = append(out, *team)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (m *memState) IncrementScore(ctx context.Context, teamID string, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failScoreFor[teamID] {
		return 0, fmt.Errorf("injected score failure for team %s", teamID)
	}
	team, ok := m.teams[teamID]
	if !ok {
		return 0, fmt.Errorf("team %s not found for score increment", teamID)
	}
	team.Score += amount
	return team.Score, nil
}

func (m *memState) ResetScores(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, team := range m.teams {
		team.Score = 0
	}
	return nil
}

// --- LedgerStore ---

func (m *memState) CreditResource(ctx context.Context, teamID string, resourceType models.ResourceType, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLedgerFor[teamID] {
		return fmt.Errorf("injected ledger failure for team %s", teamID)
	}
	m.ledger[ledgerKey(teamID, resourceType)] += amount
	return nil
}

func (m *memState) ListByTeam(ctx context.Context, teamID string) ([]models.ResourceLedgerEntry, error) {
	all, _ := m.ListAll(ctx)
	var out []models.ResourceLedgerEntry
	for _, entry := range all {
		if entry.TeamID == teamID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (m *memState) ListAll(ctx context.Context) ([]models.ResourceLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ResourceLedgerEntry
	for key, amount := range m.ledger {
		teamID, resourceType, _ := strings.Cut(key, "/")
		out = append(out, models.ResourceLedgerEntry{
			TeamID: teamID,
			Type:   models.ResourceType(resourceType),
			Amount: amount,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TeamID != out[j].TeamID {
			return out[i].TeamID < out[j].TeamID
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

func (m *memState) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger = make(map[string]int64)
	return nil
}

// --- AuditStore ---

func (m *memState) Append(ctx context.Context, message string, teamID *string, at time.Time) (*models.AuditLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := models.AuditLogEntry{ID: uuid.New().String(), Message: message, TeamID: teamID, CreatedAt: at}
	m.logs = append(m.logs, entry)
	return &entry, nil
}

func (m *memState) List(ctx context.Context, limit int64) ([]models.AuditLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AuditLogEntry, len(m.logs))
	copy(out, m.logs)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memState) DeleteAllLogs(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = nil
	return nil
}

// --- SettingsStore ---

func (m *memState) IsActive(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, nil
}

func (m *memState) SetActive(ctx context.Context, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = active
	return nil
}

func (m *memState) ForceInactive(ctx context.Context) error {
	return m.SetActive(ctx, false)
}

// --- TxRunner ---

// WithTransaction snapshots the whole state and restores it if fn fails,
// approximating the all-or-nothing guarantee of a MongoDB transaction.
// Transactions run one at a time so concurrent callers observe serial order.
func (m *memState) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	backup := m.snapshot()
	if err := fn(ctx); err != nil {
		m.restore(backup)
		return err
	}
	return nil
}

type memSnapshot struct {
	nodes  map[string]models.Node
	teams  map[string]models.Team
	ledger map[string]int64
	logs   []models.AuditLogEntry
	active bool
}

func (m *memState) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := memSnapshot{
		nodes:  make(map[string]models.Node, len(m.nodes)),
		teams:  make(map[string]models.Team, len(m.teams)),
		ledger: make(map[string]int64, len(m.ledger)),
		logs:   append([]models.AuditLogEntry(nil), m.logs...),
		active: m.active,
	}
	for id, node := range m.nodes {
		snap.nodes[id] = *node
	}
	for id, team := range m.teams {
		snap.teams[id] = *team
	}
	for key, amount := range m.ledger {
		snap.ledger[key] = amount
	}
	return snap
}

func (m *memState) restore(snap memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = make(map[string]*models.Node, len(snap.nodes))
	for id, node := range snap.nodes {
		n := node
		m.nodes[id] = &n
	}
	m.teams = make(map[string]*models.Team, len(snap.teams))
	for id, team := range snap.teams {
		t := team
		m.teams[id] = &t
	}
	m.ledger = make(map[string]int64, len(snap.ledger))
	for key, amount := range snap.ledger {
		m.ledger[key] = amount
	}
	m.logs = snap.logs
	m.active = snap.active
}

// auditAdapter exposes memState under the AuditStore interface, renaming
// the clashing DeleteAll method.
type auditAdapter struct{ *memState }

func (a auditAdapter) DeleteAll(ctx context.Context) error { return a.DeleteAllLogs(ctx) }

// recordingBroadcaster captures every published event for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	Channel string
	Event   string
	Payload interface{}
}

func (rb *recordingBroadcaster) Publish(ctx context.Context, channel, event string, payload interface{}) error {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.events = append(rb.events, publishedEvent{Channel: channel, Event: event, Payload: payload})
	return nil
}

func (rb *recordingBroadcaster) byName(event string) []publishedEvent {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	var out []publishedEvent
	for _, ev := range rb.events {
		if ev.Event == event {
			out = append(out, ev)
		}
	}
	return out
}

// newTestService wires a GameService over a fresh memState with a fixed clock.
func newTestService(now time.Time) (*GameService, *memState, *recordingBroadcaster) {
	state := newMemState()
	bc := &recordingBroadcaster{}
	gs := NewGameService(state, state, state, auditAdapter{state}, state, state, bc)
	gs.SetClock(func() time.Time { return now })
	return gs, state, bc
}
