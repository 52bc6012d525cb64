package domain

import (
	"github.com/yungbote/scribe-backend/internal/domain/memory"
)

type Session = memory.Session
type ContextEntry = memory.ContextEntry
type MemoryNode = memory.MemoryNode
type Plan = memory.Plan
type PlanStep = memory.PlanStep
type MediaArtifact = memory.MediaArtifact
type AuditEvent = memory.AuditEvent

type Envelope = memory.Envelope
type Payload = memory.Payload
type ContextEntryItem = memory.ContextEntryItem
type MemoryNodeItem = memory.MemoryNodeItem
type PlanUpdate = memory.PlanUpdate
type PlanStepItem = memory.PlanStepItem
type MediaArtifactItem = memory.MediaArtifactItem
type AuditEventItem = memory.AuditEventItem
type SaveResult = memory.SaveResult
type RetrieveRequest = memory.RetrieveRequest
type ConflictRequest = memory.ConflictRequest
type ConflictResult = memory.ConflictResult
type Limits = memory.Limits

func ValidateSessionID(raw string) (string, error) { return memory.ValidateSessionID(raw) }
func LimitsForMode(mode string) Limits             { return memory.LimitsForMode(mode) }

const (
	ScopeGlobal    = memory.ScopeGlobal
	ScopeLocalSafe = memory.ScopeLocalSafe

	ModeFull    = memory.ModeFull
	ModeSummary = memory.ModeSummary
	ModeDelta   = memory.ModeDelta

	AuditActionSave            = memory.AuditActionSave
	AuditActionBroadcast       = memory.AuditActionBroadcast
	AuditActionResolveConflict = memory.AuditActionResolveConflict

	ProtocolVersion = memory.ProtocolVersion
)
