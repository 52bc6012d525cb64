package services

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	repos "github.com/yungbote/scribe-backend/internal/data/repos/memory"
	types "github.com/yungbote/scribe-backend/internal/domain"
	"github.com/yungbote/scribe-backend/internal/pkg/dbctx"
	"github.com/yungbote/scribe-backend/internal/platform/apierr"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
	"github.com/yungbote/scribe-backend/internal/realtime"
	"github.com/yungbote/scribe-backend/internal/realtime/bus"
)

type MemoryService interface {
	Save(dbc dbctx.Context, env *types.Envelope) (*types.SaveResult, error)
	Retrieve(dbc dbctx.Context, req types.RetrieveRequest) (*types.Envelope, error)
	Broadcast(dbc dbctx.Context, env *types.Envelope) (*types.SaveResult, error)
	ResolveConflict(dbc dbctx.Context, req types.ConflictRequest) (*types.ConflictResult, error)
	GetSession(dbc dbctx.Context, sessionID string) (*types.Session, error)
	ListEvents(dbc dbctx.Context, sessionID string, limit int) ([]*types.AuditEvent, error)
}

type memoryService struct {
	db  *gorm.DB
	log *logger.Logger

	sessions  repos.SessionRepo
	entries   repos.EntryRepo
	nodes     repos.NodeRepo
	plans     repos.PlanRepo
	artifacts repos.ArtifactRepo
	events    repos.EventRepo

	hub *realtime.SSEHub
	bus bus.Bus
}

func NewMemoryService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sessionRepo repos.SessionRepo,
	entryRepo repos.EntryRepo,
	nodeRepo repos.NodeRepo,
	planRepo repos.PlanRepo,
	artifactRepo repos.ArtifactRepo,
	eventRepo repos.EventRepo,
	hub *realtime.SSEHub,
	sseBus bus.Bus,
) MemoryService {
	return &memoryService{
		db:        db,
		log:       baseLog.With("service", "MemoryService"),
		sessions:  sessionRepo,
		entries:   entryRepo,
		nodes:     nodeRepo,
		plans:     planRepo,
		artifacts: artifactRepo,
		events:    eventRepo,
		hub:       hub,
		bus:       sseBus,
	}
}

func (s *memoryService) Save(dbc dbctx.Context, env *types.Envelope) (*types.SaveResult, error) {
	res, err := s.persist(dbc, env, types.AuditActionSave)
	if err != nil {
		return nil, err
	}
	s.notify(dbc, realtime.SSEEventMemorySaved, res)
	return res, nil
}

// Broadcast persists the envelope like a save and then fans the new version
// out to every subscriber of the session channel.
func (s *memoryService) Broadcast(dbc dbctx.Context, env *types.Envelope) (*types.SaveResult, error) {
	res, err := s.persist(dbc, env, types.AuditActionBroadcast)
	if err != nil {
		return nil, err
	}
	s.notify(dbc, realtime.SSEEventMemoryBroadcast, res)
	return res, nil
}

// persist runs the whole write in one transaction so the version bump lands
// atomically with the payload. The session row lock serializes concurrent
// writers, which is what makes max(stored, requested)+1 correct.
func (s *memoryService) persist(dbc dbctx.Context, env *types.Envelope, action string) (*types.SaveResult, error) {
	if env == nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_envelope", fmt.Errorf("missing envelope"))
	}
	if err := env.Validate(); err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_envelope", err)
	}

	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}

	var result *types.SaveResult
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: txx}

		if _, err := s.sessions.Ensure(txc, env.SessionID, env.TenantID); err != nil {
			return err
		}
		sess, err := s.sessions.GetByIDLocked(txc, env.SessionID)
		if err != nil {
			return err
		}
		if sess == nil {
			return fmt.Errorf("session %s vanished during save", env.SessionID)
		}

		next := sess.ContextVersion
		if env.ContextVersion > next {
			next = env.ContextVersion
		}
		next++

		counts := map[string]int{
			"context_entries": 0,
			"memory_nodes":    0,
			"plan_updates":    0,
			"media_artifacts": 0,
		}

		if n, err := s.saveEntries(txc, env); err != nil {
			return err
		} else {
			counts["context_entries"] = n
		}
		if n, err := s.saveNodes(txc, env); err != nil {
			return err
		} else {
			counts["memory_nodes"] = n
		}
		if n, err := s.savePlans(txc, env); err != nil {
			return err
		} else {
			counts["plan_updates"] = n
		}
		if n, err := s.saveArtifacts(txc, env); err != nil {
			return err
		} else {
			counts["media_artifacts"] = n
		}

		// The audit row is written even when every count is zero: the version
		// bump itself is an auditable mutation.
		rawCounts, err := json.Marshal(counts)
		if err != nil {
			return err
		}
		if _, err := s.events.Append(txc, &types.AuditEvent{
			SessionID:      env.SessionID,
			Actor:          env.Actor,
			Action:         action,
			Counts:         datatypes.JSON(rawCounts),
			ContextVersion: next,
		}); err != nil {
			return err
		}

		if err := s.sessions.UpdateVersion(txc, env.SessionID, next, env.Actor, env.DomainTags); err != nil {
			return err
		}
		if len(env.ModelCaps) > 0 {
			if err := s.sessions.MergeMetadata(txc, env.SessionID, map[string]any{"model_caps": env.ModelCaps}); err != nil {
				return err
			}
		}

		result = &types.SaveResult{
			SessionID:      env.SessionID,
			ContextVersion: next,
			Counts:         counts,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *memoryService) saveEntries(txc dbctx.Context, env *types.Envelope) (int, error) {
	items := env.Payload.ContextEntries
	if len(items) == 0 {
		return 0, nil
	}
	maxSeq, err := s.entries.MaxSeq(txc, env.SessionID)
	if err != nil {
		return 0, err
	}
	rows := make([]*types.ContextEntry, 0, len(items))
	for _, it := range items {
		row := &types.ContextEntry{
			ID:        it.ID,
			SessionID: env.SessionID,
			Seq:       it.Seq,
			Role:      it.Role,
			Speaker:   it.Speaker,
			Provider:  it.Provider,
			Model:     it.Model,
			Content:   it.Content,
			Scope:     scopeOrGlobal(it.Scope),
		}
		if len(it.Metadata) > 0 {
			row.Metadata = datatypes.JSON(it.Metadata)
		}
		if row.Seq == 0 {
			maxSeq++
			row.Seq = maxSeq
		}
		rows = append(rows, row)
	}
	if _, err := s.entries.UpsertBatch(txc, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *memoryService) saveNodes(txc dbctx.Context, env *types.Envelope) (int, error) {
	items := env.Payload.MemoryNodes
	if len(items) == 0 {
		return 0, nil
	}
	rows := make([]*types.MemoryNode, 0, len(items))
	for _, it := range items {
		row := &types.MemoryNode{
			ID:         it.ID,
			SessionID:  env.SessionID,
			Kind:       it.Kind,
			Content:    it.Content,
			Importance: it.Importance,
			Scope:      scopeOrGlobal(it.Scope),
			DecayAt:    it.DecayAt,
		}
		if row.Importance == 0 {
			row.Importance = 0.5
		}
		if len(it.Metadata) > 0 {
			row.Metadata = datatypes.JSON(it.Metadata)
		}
		rows = append(rows, row)
	}
	if _, err := s.nodes.UpsertBatch(txc, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *memoryService) savePlans(txc dbctx.Context, env *types.Envelope) (int, error) {
	items := env.Payload.PlanUpdates
	if len(items) == 0 {
		return 0, nil
	}
	for _, it := range items {
		plan := &types.Plan{
			ID:        it.ID,
			SessionID: env.SessionID,
			Title:     it.Title,
			Status:    statusOrPending(it.Status),
		}
		steps := make([]*types.PlanStep, 0, len(it.Steps))
		for _, st := range it.Steps {
			steps = append(steps, &types.PlanStep{
				ID:       st.ID,
				Position: st.Position,
				Title:    st.Title,
				Status:   statusOrPending(st.Status),
			})
		}
		if _, err := s.plans.UpsertPlan(txc, plan, steps); err != nil {
			return 0, err
		}
	}
	return len(items), nil
}

func (s *memoryService) saveArtifacts(txc dbctx.Context, env *types.Envelope) (int, error) {
	items := env.Payload.MediaArtifacts
	if len(items) == 0 {
		return 0, nil
	}
	rows := make([]*types.MediaArtifact, 0, len(items))
	for _, it := range items {
		row := &types.MediaArtifact{
			ID:        it.ID,
			SessionID: env.SessionID,
			Kind:      it.Kind,
			URI:       it.URI,
			MessageID: it.MessageID,
			Scope:     scopeOrGlobal(it.Scope),
		}
		if len(it.Metadata) > 0 {
			row.Metadata = datatypes.JSON(it.Metadata)
		}
		rows = append(rows, row)
	}
	if _, err := s.artifacts.UpsertBatch(txc, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Retrieve assembles a bounded snapshot. Local-safe rows are filtered out
// unless the requesting actor is itself in safe mode.
func (s *memoryService) Retrieve(dbc dbctx.Context, req types.RetrieveRequest) (*types.Envelope, error) {
	sessionID, err := types.ValidateSessionID(req.SessionID)
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_session_id", err)
	}

	sess, err := s.sessions.GetByID(dbc, sessionID)
	if err != nil {
		return nil, err
	}

	env := &types.Envelope{
		ProtocolVersion: types.ProtocolVersion,
		TenantID:        req.TenantID,
		SessionID:       sessionID,
		Actor:           req.Actor,
	}
	if sess == nil {
		// Unknown sessions retrieve as empty, matching lazy-create on write.
		return env, nil
	}
	env.ContextVersion = sess.ContextVersion

	limits := types.LimitsForMode(req.Mode)
	includeLocalSafe := req.Safe

	entries, err := s.entries.ListRecent(dbc, sessionID, includeLocalSafe, limits.Entries)
	if err != nil {
		return nil, err
	}
	entries = trimToTokenBudget(entries, req.TokenBudget)
	for _, e := range entries {
		env.Payload.ContextEntries = append(env.Payload.ContextEntries, types.ContextEntryItem{
			ID:        e.ID,
			Seq:       e.Seq,
			Role:      e.Role,
			Speaker:   e.Speaker,
			Provider:  e.Provider,
			Model:     e.Model,
			Content:   e.Content,
			Scope:     e.Scope,
			Metadata:  json.RawMessage(e.Metadata),
			CreatedAt: e.CreatedAt,
		})
	}

	nodes, err := s.nodes.ListActive(dbc, sessionID, includeLocalSafe, limits.Nodes)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		env.Payload.MemoryNodes = append(env.Payload.MemoryNodes, types.MemoryNodeItem{
			ID:         n.ID,
			Kind:       n.Kind,
			Content:    n.Content,
			Importance: n.Importance,
			Scope:      n.Scope,
			DecayAt:    n.DecayAt,
			Metadata:   json.RawMessage(n.Metadata),
			CreatedAt:  n.CreatedAt,
		})
	}

	plans, err := s.plans.ListBySession(dbc, sessionID, limits.Artifacts)
	if err != nil {
		return nil, err
	}
	if len(plans) > 0 {
		planIDs := make([]uuid.UUID, 0, len(plans))
		for _, p := range plans {
			planIDs = append(planIDs, p.ID)
		}
		steps, err := s.plans.ListSteps(dbc, planIDs)
		if err != nil {
			return nil, err
		}
		stepsByPlan := map[uuid.UUID][]types.PlanStepItem{}
		for _, st := range steps {
			stepsByPlan[st.PlanID] = append(stepsByPlan[st.PlanID], types.PlanStepItem{
				ID:       st.ID,
				Position: st.Position,
				Title:    st.Title,
				Status:   st.Status,
			})
		}
		for _, p := range plans {
			env.Payload.PlanUpdates = append(env.Payload.PlanUpdates, types.PlanUpdate{
				ID:     p.ID,
				Title:  p.Title,
				Status: p.Status,
				Steps:  stepsByPlan[p.ID],
			})
		}
	}

	artifacts, err := s.artifacts.ListRecent(dbc, sessionID, includeLocalSafe, limits.Artifacts)
	if err != nil {
		return nil, err
	}
	for _, a := range artifacts {
		env.Payload.MediaArtifacts = append(env.Payload.MediaArtifacts, types.MediaArtifactItem{
			ID:        a.ID,
			Kind:      a.Kind,
			URI:       a.URI,
			MessageID: a.MessageID,
			Scope:     a.Scope,
			Metadata:  json.RawMessage(a.Metadata),
			CreatedAt: a.CreatedAt,
		})
	}

	events, err := s.events.ListRecent(dbc, sessionID, limits.Events)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		env.Payload.Events = append(env.Payload.Events, types.AuditEventItem{
			ID:             ev.ID,
			Actor:          ev.Actor,
			Action:         ev.Action,
			Counts:         json.RawMessage(ev.Counts),
			ContextVersion: ev.ContextVersion,
			CreatedAt:      ev.CreatedAt,
		})
	}

	return env, nil
}

// ResolveConflict arbitrates two observed versions: the authoritative result
// is strictly greater than everything either side has seen.
func (s *memoryService) ResolveConflict(dbc dbctx.Context, req types.ConflictRequest) (*types.ConflictResult, error) {
	sessionID, err := types.ValidateSessionID(req.SessionID)
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_session_id", err)
	}
	resolution := req.Resolution
	if resolution == "" {
		resolution = "merge"
	}

	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}

	var result *types.ConflictResult
	err = transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: txx}

		if _, err := s.sessions.Ensure(txc, sessionID, ""); err != nil {
			return err
		}
		sess, err := s.sessions.GetByIDLocked(txc, sessionID)
		if err != nil {
			return err
		}
		if sess == nil {
			return fmt.Errorf("session %s vanished during conflict resolution", sessionID)
		}

		authoritative := sess.ContextVersion
		if req.LocalVersion > authoritative {
			authoritative = req.LocalVersion
		}
		if req.RemoteVersion > authoritative {
			authoritative = req.RemoteVersion
		}
		authoritative++

		rawCounts, err := json.Marshal(map[string]any{
			"local_version":  req.LocalVersion,
			"remote_version": req.RemoteVersion,
			"resolution":     resolution,
		})
		if err != nil {
			return err
		}
		if _, err := s.events.Append(txc, &types.AuditEvent{
			SessionID:      sessionID,
			Actor:          req.Actor,
			Action:         types.AuditActionResolveConflict,
			Counts:         datatypes.JSON(rawCounts),
			ContextVersion: authoritative,
		}); err != nil {
			return err
		}
		if err := s.sessions.UpdateVersion(txc, sessionID, authoritative, req.Actor, nil); err != nil {
			return err
		}

		result = &types.ConflictResult{
			SessionID:      sessionID,
			ContextVersion: authoritative,
			Resolution:     resolution,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(dbc, realtime.SSEEventConflictResolved, &types.SaveResult{
		SessionID:      result.SessionID,
		ContextVersion: result.ContextVersion,
	})
	return result, nil
}

func (s *memoryService) GetSession(dbc dbctx.Context, sessionID string) (*types.Session, error) {
	id, err := types.ValidateSessionID(sessionID)
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_session_id", err)
	}
	return s.sessions.GetByID(dbc, id)
}

func (s *memoryService) ListEvents(dbc dbctx.Context, sessionID string, limit int) ([]*types.AuditEvent, error) {
	id, err := types.ValidateSessionID(sessionID)
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_session_id", err)
	}
	return s.events.ListRecent(dbc, id, limit)
}

func (s *memoryService) notify(dbc dbctx.Context, event string, res *types.SaveResult) {
	if res == nil {
		return
	}
	msg := realtime.SSEMessage{
		Channel: res.SessionID,
		Event:   event,
		Data: map[string]any{
			"session_id":      res.SessionID,
			"context_version": res.ContextVersion,
		},
	}
	// With a bus configured the hub is fed by the forwarder, so publishing
	// both would deliver every message twice.
	if s.bus != nil {
		if err := s.bus.Publish(dbc.Ctx, msg); err != nil {
			s.log.Warn("sse bus publish failed", "session_id", res.SessionID, "event", event, "error", err)
		}
		return
	}
	if s.hub != nil {
		s.hub.Broadcast(msg)
	}
}

func scopeOrGlobal(scope string) string {
	if scope == types.ScopeLocalSafe {
		return types.ScopeLocalSafe
	}
	return types.ScopeGlobal
}

func statusOrPending(status string) string {
	if status == "" {
		return "pending"
	}
	return status
}

// trimToTokenBudget drops oldest entries until the rough token total fits.
// Tokens are approximated at four characters each.
func trimToTokenBudget(entries []*types.ContextEntry, budget int) []*types.ContextEntry {
	if budget <= 0 || len(entries) == 0 {
		return entries
	}
	total := 0
	cut := len(entries)
	for i := len(entries) - 1; i >= 0; i-- {
		total += len(entries[i].Content)/4 + 1
		if total > budget {
			break
		}
		cut = i
	}
	return entries[cut:]
}

