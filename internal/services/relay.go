package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/scribe-backend/internal/domain"
	"github.com/yungbote/scribe-backend/internal/pkg/dbctx"
	"github.com/yungbote/scribe-backend/internal/platform/apierr"
	"github.com/yungbote/scribe-backend/internal/platform/envutil"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
	"github.com/yungbote/scribe-backend/internal/providers"
	"github.com/yungbote/scribe-backend/internal/relay/stream"
	"github.com/yungbote/scribe-backend/internal/telemetry"
)

const (
	maxRenderedEntryChars = 4000
	truncationMarker      = "...[truncated]..."
	relayActor            = "relay"
)

// Tools never forwarded upstream when safe mode is on.
var safeModeToolDenylist = map[string]bool{
	"web.search":   true,
	"browser.open": true,
}

type TurnRequest struct {
	Prompt    string   `json:"prompt"`
	Provider  string   `json:"provider,omitempty"`
	Model     string   `json:"model,omitempty"`
	SessionID string   `json:"session_id,omitempty"`
	TenantID  string   `json:"tenant_id,omitempty"`
	Stream    bool     `json:"stream,omitempty"`
	SafeMode  bool     `json:"safe_mode,omitempty"`
	Mentions  []string `json:"mentions,omitempty"`
	Tools     []string `json:"tools,omitempty"`
}

type TurnResult struct {
	Content      string   `json:"content"`
	SessionID    string   `json:"session_id,omitempty"`
	Provider     string   `json:"provider"`
	Model        string   `json:"model"`
	MentionsUsed []string `json:"mentions_used,omitempty"`
	BlockedTools []string `json:"blocked_tools,omitempty"`
}

// RelayService owns one user turn end to end: provider dispatch, stream
// normalization, sequential mention fan-out, and the single persisted
// assistant entry.
type RelayService interface {
	Turn(dbc dbctx.Context, req TurnRequest, emit func(stream.Event)) (*TurnResult, error)
}

type relayService struct {
	db       *gorm.DB
	log      *logger.Logger
	registry *providers.Registry
	memory   MemoryService
	recorder *telemetry.Recorder

	historyBudget int
}

func NewRelayService(
	db *gorm.DB,
	baseLog *logger.Logger,
	registry *providers.Registry,
	memorySvc MemoryService,
	recorder *telemetry.Recorder,
) RelayService {
	return &relayService{
		db:            db,
		log:           baseLog.With("service", "RelayService"),
		registry:      registry,
		memory:        memorySvc,
		recorder:      recorder,
		historyBudget: envutil.Int("RELAY_HISTORY_TOKEN_BUDGET", 2000),
	}
}

func (s *relayService) Turn(dbc dbctx.Context, req TurnRequest, emit func(stream.Event)) (*TurnResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_prompt", fmt.Errorf("prompt is required"))
	}

	providerName := req.Provider
	var blockedTools []string
	tools := req.Tools
	if req.SafeMode {
		providerName = "local"
		tools, blockedTools = filterTools(req.Tools)
	}

	res, err := s.registry.Resolve(providerName)
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "unknown_provider", err)
	}
	adapter := res.Adapter
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = res.ModelOverride
	}
	if model == "" {
		model = adapter.DefaultModel()
	}

	messages := s.buildMessages(dbc, req, prompt, tools)

	result := &TurnResult{
		SessionID:    req.SessionID,
		Provider:     adapter.Name(),
		Model:        model,
		BlockedTools: blockedTools,
	}

	started := time.Now()
	var transcript strings.Builder
	var turnErr error
	persist := true

	if req.Stream && emit != nil {
		persist, turnErr = s.streamPrimary(dbc.Ctx, adapter, model, messages, emit, &transcript)
	} else {
		text, err := adapter.Complete(dbc.Ctx, providers.CompletionRequest{Model: model, Messages: messages})
		if err != nil {
			if dbc.Ctx.Err() != nil {
				return nil, dbc.Ctx.Err()
			}
			return nil, err
		}
		transcript.WriteString(text)
	}

	s.record(req, adapter.Name(), model, prompt, transcript.Len(), started, turnErr)

	if dbc.Ctx.Err() != nil {
		// Caller went away; nothing is persisted for an aborted turn.
		return nil, dbc.Ctx.Err()
	}

	// Mention fan-out happens after the primary stream completes, one model
	// at a time. A mention failure is surfaced but never fatal.
	if persist || transcript.Len() > 0 {
		s.fanOutMentions(dbc, req, adapter, messages, emit, &transcript, result)
	}

	// The notice attaches to model output only; a turn that produced nothing
	// stays empty and keeps its error.
	contentLen := transcript.Len()
	if len(blockedTools) > 0 && contentLen > 0 {
		transcript.WriteString(fmt.Sprintf("\n\n[safe mode blocked tools: %s]", strings.Join(blockedTools, ", ")))
	}
	result.Content = transcript.String()

	if persist && contentLen > 0 {
		if err := s.persistTurn(dbc, req, result); err != nil {
			s.log.Error("failed to persist turn", "session_id", req.SessionID, "error", err)
		}
	}

	if turnErr != nil && contentLen == 0 {
		return result, turnErr
	}
	return result, nil
}

// streamPrimary drives the primary adapter's raw stream through the
// normalizer, forwarding events while accumulating text. It reports whether
// the turn should still persist.
func (s *relayService) streamPrimary(
	ctx context.Context,
	adapter providers.Adapter,
	model string,
	messages []providers.Message,
	emit func(stream.Event),
	transcript *strings.Builder,
) (bool, error) {
	body, err := adapter.Stream(ctx, providers.CompletionRequest{Model: model, Messages: messages})
	if err != nil {
		// Nothing arrived, nothing persists.
		emit(stream.ErrorEvent(err.Error()))
		emit(stream.Done())
		return false, err
	}
	defer body.Close()

	normalizer := stream.NewNormalizer()
	forward := func(events []stream.Event) {
		for _, ev := range events {
			if ev.Kind == stream.KindDelta {
				transcript.WriteString(ev.Text)
			}
			emit(ev)
		}
	}

	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			forward(normalizer.Feed(buf[:n]))
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				forward(normalizer.Flush())
				return true, nil
			}
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			// Mid-stream failure: surface it and keep the partial transcript.
			emit(stream.ErrorEvent(readErr.Error()))
			forward(normalizer.Flush())
			return true, readErr
		}
	}
}

func (s *relayService) fanOutMentions(
	dbc dbctx.Context,
	req TurnRequest,
	primary providers.Adapter,
	messages []providers.Message,
	emit func(stream.Event),
	transcript *strings.Builder,
	result *TurnResult,
) {
	seen := map[string]bool{}
	for _, mention := range req.Mentions {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(mention, "@")))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		res, err := s.registry.Resolve(name)
		if err != nil {
			s.emitMentionError(emit, fmt.Sprintf("mention %q skipped: %v", name, err))
			continue
		}
		if res.Adapter.Name() == primary.Name() && res.ModelOverride == "" {
			continue
		}
		if req.SafeMode && res.Adapter.Name() != "local" {
			s.emitMentionError(emit, fmt.Sprintf("mention %q skipped: safe mode requires local models", name))
			continue
		}

		model := res.ModelOverride
		if model == "" {
			model = res.Adapter.DefaultModel()
		}

		started := time.Now()
		text, err := res.Adapter.Complete(dbc.Ctx, providers.CompletionRequest{Model: model, Messages: messages})
		s.record(req, res.Adapter.Name(), model, req.Prompt, len(text), started, err)
		if err != nil {
			s.emitMentionError(emit, fmt.Sprintf("mention %q failed: %v", name, err))
			continue
		}

		label := res.Adapter.Label()
		if emit != nil {
			emit(stream.Attribution(label))
			emit(stream.Delta(text))
		}
		transcript.WriteString(fmt.Sprintf("\n\n[%s]\n%s", label, text))
		result.MentionsUsed = append(result.MentionsUsed, name)
	}
}

func (s *relayService) emitMentionError(emit func(stream.Event), msg string) {
	s.log.Warn("mention fan-out error", "detail", msg)
	if emit != nil {
		emit(stream.ErrorEvent(msg))
	}
}

// buildMessages renders shared memory and bounded history into the upstream
// message list. Sessionless turns send the bare prompt.
func (s *relayService) buildMessages(dbc dbctx.Context, req TurnRequest, prompt string, tools []string) []providers.Message {
	var messages []providers.Message

	if req.SessionID != "" && s.memory != nil {
		env, err := s.memory.Retrieve(dbc, types.RetrieveRequest{
			SessionID:   req.SessionID,
			TenantID:    req.TenantID,
			Actor:       relayActor,
			Mode:        types.ModeSummary,
			Safe:        req.SafeMode,
			TokenBudget: s.historyBudget,
		})
		if err != nil {
			s.log.Warn("history retrieval failed, continuing without it", "session_id", req.SessionID, "error", err)
		} else if env != nil {
			if block := renderMemoryBlock(env.Payload.MemoryNodes); block != "" {
				messages = append(messages, providers.Message{Role: "system", Content: block})
			}
			for _, e := range env.Payload.ContextEntries {
				role := e.Role
				if role != "user" && role != "assistant" && role != "system" {
					role = "user"
				}
				messages = append(messages, providers.Message{Role: role, Content: renderEntry(e)})
			}
		}
	}

	if len(tools) > 0 {
		messages = append(messages, providers.Message{
			Role:    "system",
			Content: "Available tools: " + strings.Join(tools, ", "),
		})
	}

	messages = append(messages, providers.Message{Role: "user", Content: prompt})
	return messages
}

// renderEntry prefixes the speaker and caps runaway content so one giant
// message cannot crowd out the rest of the window.
func renderEntry(e types.ContextEntryItem) string {
	content := e.Content
	if len(content) > maxRenderedEntryChars {
		content = content[:maxRenderedEntryChars] + truncationMarker
	}
	if e.Speaker != "" {
		return fmt.Sprintf("[%s] %s", e.Speaker, content)
	}
	return content
}

func renderMemoryBlock(nodes []types.MemoryNodeItem) string {
	if len(nodes) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Shared Memory:")
	for _, n := range nodes {
		sb.WriteString("\n- ")
		if n.Kind != "" {
			sb.WriteString("(" + n.Kind + ") ")
		}
		content := n.Content
		if len(content) > maxRenderedEntryChars {
			content = content[:maxRenderedEntryChars] + truncationMarker
		}
		sb.WriteString(content)
	}
	return sb.String()
}

// persistTurn writes the one assistant entry for this turn. Mention output is
// already folded into the transcript, so fan-out count never changes the row
// count.
func (s *relayService) persistTurn(dbc dbctx.Context, req TurnRequest, result *TurnResult) error {
	if req.SessionID == "" || s.memory == nil {
		return nil
	}
	scope := types.ScopeGlobal
	if req.SafeMode {
		scope = types.ScopeLocalSafe
	}
	meta, err := json.Marshal(map[string]any{
		"provider":      result.Provider,
		"model":         result.Model,
		"mentions_used": result.MentionsUsed,
		"blocked_tools": result.BlockedTools,
	})
	if err != nil {
		return err
	}

	res, err := s.registry.Resolve(result.Provider)
	speaker := result.Provider
	if err == nil {
		speaker = res.Adapter.Label()
	}

	_, err = s.memory.Save(dbc, &types.Envelope{
		ProtocolVersion: types.ProtocolVersion,
		TenantID:        req.TenantID,
		SessionID:       req.SessionID,
		Actor:           relayActor,
		Payload: types.Payload{
			ContextEntries: []types.ContextEntryItem{{
				Role:     "assistant",
				Speaker:  speaker,
				Provider: result.Provider,
				Model:    result.Model,
				Content:  result.Content,
				Scope:    scope,
				Metadata: meta,
			}},
		},
	})
	return err
}

func (s *relayService) record(req TurnRequest, provider, model, prompt string, outputLen int, started time.Time, err error) {
	if s.recorder == nil {
		return
	}
	rec := telemetry.Record{
		SessionID:  req.SessionID,
		Provider:   provider,
		Model:      model,
		PromptLen:  len(prompt),
		OutputLen:  outputLen,
		DurationMS: time.Since(started).Milliseconds(),
		Streamed:   req.Stream,
		Mentions:   req.Mentions,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	s.recorder.Add(rec)
}

func filterTools(tools []string) (allowed []string, blocked []string) {
	for _, t := range tools {
		if safeModeToolDenylist[strings.ToLower(strings.TrimSpace(t))] {
			blocked = append(blocked, t)
			continue
		}
		allowed = append(allowed, t)
	}
	return allowed, blocked
}
