package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"

	repos "github.com/yungbote/scribe-backend/internal/data/repos/memory"
	"github.com/yungbote/scribe-backend/internal/data/repos/testutil"
	types "github.com/yungbote/scribe-backend/internal/domain"
	"github.com/yungbote/scribe-backend/internal/pkg/dbctx"
)

func newTestMemory(t *testing.T) (MemoryService, dbctx.Context) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)

	svc := NewMemoryService(
		db,
		log,
		repos.NewSessionRepo(db, log),
		repos.NewEntryRepo(db, log),
		repos.NewNodeRepo(db, log),
		repos.NewPlanRepo(db, log),
		repos.NewArtifactRepo(db, log),
		repos.NewEventRepo(db, log),
		nil,
		nil,
	)
	return svc, dbctx.Context{Ctx: context.Background(), Tx: tx}
}

func testSessionID() string {
	return "it-" + uuid.NewString()
}

func TestMemorySaveBumpsVersion(t *testing.T) {
	svc, dbc := newTestMemory(t)
	sid := testSessionID()

	res, err := svc.Save(dbc, &types.Envelope{
		SessionID: sid,
		Actor:     "ui",
		Payload: types.Payload{
			ContextEntries: []types.ContextEntryItem{{Role: "user", Content: "hello"}},
		},
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if res.ContextVersion != 1 {
		t.Fatalf("first save should land at version 1, got %d", res.ContextVersion)
	}
	if res.Counts["context_entries"] != 1 {
		t.Fatalf("expected one entry counted, got %v", res.Counts)
	}

	// A stale requester cannot roll the version back, a fresher one pushes it
	// past everything stored.
	res2, err := svc.Save(dbc, &types.Envelope{SessionID: sid, Actor: "ui", ContextVersion: 10})
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	if res2.ContextVersion != 11 {
		t.Fatalf("expected max(stored, requested)+1 = 11, got %d", res2.ContextVersion)
	}

	res3, err := svc.Save(dbc, &types.Envelope{SessionID: sid, Actor: "ui", ContextVersion: 3})
	if err != nil {
		t.Fatalf("third save failed: %v", err)
	}
	if res3.ContextVersion != 12 {
		t.Fatalf("stale requested version must not regress the counter, got %d", res3.ContextVersion)
	}
}

func TestMemorySaveConcurrentWritersSerialize(t *testing.T) {
	// Runs against the raw pool, not a shared test transaction, so the row
	// lock actually serializes the writers.
	db := testutil.DB(t)
	log := testutil.Logger(t)
	svc := NewMemoryService(
		db,
		log,
		repos.NewSessionRepo(db, log),
		repos.NewEntryRepo(db, log),
		repos.NewNodeRepo(db, log),
		repos.NewPlanRepo(db, log),
		repos.NewArtifactRepo(db, log),
		repos.NewEventRepo(db, log),
		nil,
		nil,
	)
	sid := testSessionID()
	t.Cleanup(func() {
		db.Where("session_id = ?", sid).Delete(&types.AuditEvent{})
		db.Where("session_id = ?", sid).Delete(&types.ContextEntry{})
		db.Where("id = ?", sid).Delete(&types.Session{})
	})

	const writers = 8
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(requested int64) {
			defer wg.Done()
			_, err := svc.Save(dbctx.Context{Ctx: context.Background()}, &types.Envelope{
				SessionID:      sid,
				Actor:          "ui",
				ContextVersion: requested,
				Payload: types.Payload{
					ContextEntries: []types.ContextEntryItem{{Role: "user", Content: "race entry"}},
				},
			})
			errs <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent save failed: %v", err)
		}
	}

	dbc := dbctx.Context{Ctx: context.Background()}
	sess, err := svc.GetSession(dbc, sid)
	if err != nil || sess == nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if sess.ContextVersion < writers+1 {
		t.Fatalf("stored version must exceed every requested version, got %d", sess.ContextVersion)
	}

	events, err := svc.ListEvents(dbc, sid, writers*2)
	if err != nil {
		t.Fatalf("list events failed: %v", err)
	}
	if len(events) != writers {
		t.Fatalf("expected %d audit rows, got %d", writers, len(events))
	}
	versions := map[int64]bool{}
	for _, ev := range events {
		if versions[ev.ContextVersion] {
			t.Fatalf("version %d assigned twice, a writer was lost", ev.ContextVersion)
		}
		versions[ev.ContextVersion] = true
	}
}

func TestMemorySaveIdempotentUpsert(t *testing.T) {
	svc, dbc := newTestMemory(t)
	sid := testSessionID()
	entryID := uuid.New()

	for i := 0; i < 2; i++ {
		if _, err := svc.Save(dbc, &types.Envelope{
			SessionID: sid,
			Actor:     "ui",
			Payload: types.Payload{
				ContextEntries: []types.ContextEntryItem{{ID: entryID, Seq: 1, Role: "user", Content: "same message"}},
			},
		}); err != nil {
			t.Fatalf("save %d failed: %v", i, err)
		}
	}

	env, err := svc.Retrieve(dbc, types.RetrieveRequest{SessionID: sid})
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if len(env.Payload.ContextEntries) != 1 {
		t.Fatalf("retried save must not duplicate entries, got %d", len(env.Payload.ContextEntries))
	}
	if env.Payload.ContextEntries[0].ID != entryID {
		t.Fatalf("expected the explicit id to stick")
	}
}

func TestMemorySaveAssignsSequentialSeq(t *testing.T) {
	svc, dbc := newTestMemory(t)
	sid := testSessionID()

	if _, err := svc.Save(dbc, &types.Envelope{
		SessionID: sid,
		Payload: types.Payload{
			ContextEntries: []types.ContextEntryItem{
				{Role: "user", Content: "first"},
				{Role: "assistant", Content: "second"},
			},
		},
	}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := svc.Save(dbc, &types.Envelope{
		SessionID: sid,
		Payload: types.Payload{
			ContextEntries: []types.ContextEntryItem{{Role: "user", Content: "third"}},
		},
	}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	env, err := svc.Retrieve(dbc, types.RetrieveRequest{SessionID: sid})
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if len(env.Payload.ContextEntries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(env.Payload.ContextEntries))
	}
	for i, e := range env.Payload.ContextEntries {
		if e.Seq != int64(i+1) {
			t.Fatalf("expected oldest-first seq %d, got %d", i+1, e.Seq)
		}
	}
	if env.Payload.ContextEntries[2].Content != "third" {
		t.Fatalf("entries out of order: %+v", env.Payload.ContextEntries)
	}
}

func TestMemoryLocalSafeFiltering(t *testing.T) {
	svc, dbc := newTestMemory(t)
	sid := testSessionID()

	if _, err := svc.Save(dbc, &types.Envelope{
		SessionID: sid,
		Payload: types.Payload{
			ContextEntries: []types.ContextEntryItem{
				{Role: "user", Content: "public note", Scope: types.ScopeGlobal},
				{Role: "assistant", Content: "private note", Scope: types.ScopeLocalSafe},
			},
		},
	}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	env, err := svc.Retrieve(dbc, types.RetrieveRequest{SessionID: sid, Safe: false})
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if len(env.Payload.ContextEntries) != 1 || env.Payload.ContextEntries[0].Content != "public note" {
		t.Fatalf("local-safe entries must be hidden from non-safe callers, got %+v", env.Payload.ContextEntries)
	}

	safeEnv, err := svc.Retrieve(dbc, types.RetrieveRequest{SessionID: sid, Safe: true})
	if err != nil {
		t.Fatalf("safe retrieve failed: %v", err)
	}
	if len(safeEnv.Payload.ContextEntries) != 2 {
		t.Fatalf("safe-mode callers should see both scopes, got %d", len(safeEnv.Payload.ContextEntries))
	}
}

func TestMemoryAuditEventAlwaysWritten(t *testing.T) {
	svc, dbc := newTestMemory(t)
	sid := testSessionID()

	if _, err := svc.Save(dbc, &types.Envelope{SessionID: sid, Actor: "ui"}); err != nil {
		t.Fatalf("empty save failed: %v", err)
	}

	events, err := svc.ListEvents(dbc, sid, 10)
	if err != nil {
		t.Fatalf("list events failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("empty payload still audits, got %d events", len(events))
	}
	ev := events[0]
	if ev.Action != types.AuditActionSave || ev.Actor != "ui" {
		t.Fatalf("unexpected audit row: %+v", ev)
	}
	var counts map[string]int
	if err := json.Unmarshal(ev.Counts, &counts); err != nil {
		t.Fatalf("counts should be JSON: %v", err)
	}
	if counts["context_entries"] != 0 || counts["memory_nodes"] != 0 {
		t.Fatalf("counts should record explicit zeros, got %v", counts)
	}
}

func TestMemoryRejectsInvalidEnvelope(t *testing.T) {
	svc, dbc := newTestMemory(t)

	if _, err := svc.Save(dbc, &types.Envelope{SessionID: "x"}); err == nil {
		t.Fatalf("short session id should be rejected")
	}
	if _, err := svc.Save(dbc, &types.Envelope{
		SessionID: testSessionID(),
		Payload:   types.Payload{ContextEntries: []types.ContextEntryItem{{Role: "nope", Content: "x"}}},
	}); err == nil {
		t.Fatalf("unknown role should be rejected")
	}
}

func TestMemoryRetrieveUnknownSessionIsEmpty(t *testing.T) {
	svc, dbc := newTestMemory(t)

	env, err := svc.Retrieve(dbc, types.RetrieveRequest{SessionID: testSessionID()})
	if err != nil {
		t.Fatalf("unknown session should retrieve empty, not fail: %v", err)
	}
	if env.ContextVersion != 0 || len(env.Payload.ContextEntries) != 0 {
		t.Fatalf("expected empty envelope, got %+v", env)
	}
}

func TestMemoryResolveConflict(t *testing.T) {
	svc, dbc := newTestMemory(t)
	sid := testSessionID()

	if _, err := svc.Save(dbc, &types.Envelope{SessionID: sid, ContextVersion: 4}); err != nil {
		t.Fatalf("seed save failed: %v", err)
	}

	res, err := svc.ResolveConflict(dbc, types.ConflictRequest{
		SessionID:     sid,
		Actor:         "ui",
		LocalVersion:  7,
		RemoteVersion: 3,
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.ContextVersion != 8 {
		t.Fatalf("authoritative version must exceed all observed, got %d", res.ContextVersion)
	}
	if res.Resolution != "merge" {
		t.Fatalf("expected default merge resolution, got %q", res.Resolution)
	}

	events, err := svc.ListEvents(dbc, sid, 10)
	if err != nil {
		t.Fatalf("list events failed: %v", err)
	}
	var found bool
	for _, ev := range events {
		if ev.Action == types.AuditActionResolveConflict {
			found = true
		}
	}
	if !found {
		t.Fatalf("conflict resolution must leave an audit row")
	}
}

func TestMemoryPlansAndArtifactsRoundTrip(t *testing.T) {
	svc, dbc := newTestMemory(t)
	sid := testSessionID()
	planID := uuid.New()

	if _, err := svc.Save(dbc, &types.Envelope{
		SessionID: sid,
		Payload: types.Payload{
			PlanUpdates: []types.PlanUpdate{{
				ID:     planID,
				Title:  "ship it",
				Status: "active",
				Steps: []types.PlanStepItem{
					{Position: 1, Title: "write", Status: "done"},
					{Position: 2, Title: "review"},
				},
			}},
			MediaArtifacts: []types.MediaArtifactItem{
				{Kind: "image", URI: "https://example.com/a.png"},
			},
		},
	}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	env, err := svc.Retrieve(dbc, types.RetrieveRequest{SessionID: sid})
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if len(env.Payload.PlanUpdates) != 1 {
		t.Fatalf("expected one plan, got %d", len(env.Payload.PlanUpdates))
	}
	plan := env.Payload.PlanUpdates[0]
	if plan.ID != planID || len(plan.Steps) != 2 {
		t.Fatalf("plan round trip failed: %+v", plan)
	}
	if plan.Steps[0].Position != 1 || plan.Steps[1].Status != "pending" {
		t.Fatalf("steps should order by position and default to pending: %+v", plan.Steps)
	}
	if len(env.Payload.MediaArtifacts) != 1 || env.Payload.MediaArtifacts[0].Kind != "image" {
		t.Fatalf("artifact round trip failed: %+v", env.Payload.MediaArtifacts)
	}
}
