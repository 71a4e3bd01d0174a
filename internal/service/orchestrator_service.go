package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"ai-research-desk/internal/config"
	"ai-research-desk/internal/constant"
	"ai-research-desk/internal/dto"
	"ai-research-desk/internal/entity"
	"ai-research-desk/internal/inference"
	"ai-research-desk/internal/pkg/logger"
	"ai-research-desk/internal/repository/memory"
	"ai-research-desk/pkg/llm"
	"ai-research-desk/pkg/rag/ingest"
	"ai-research-desk/pkg/rag/search"
)

// ProviderFactory builds an LLM client for the model a submit asks for.
type ProviderFactory func(model string) (llm.LLMProvider, error)

// InferenceStarter abstracts the streaming session so the orchestrator does
// not construct transport objects itself.
type InferenceStarter interface {
	Start(ctx context.Context, history []llm.Message, opts ...llm.Option) error
	Cancel()
}

type TelemetrySnapshot struct {
	Available bool                             `json:"available"`
	Reason    string                           `json:"reason,omitempty"`
	At        time.Time                        `json:"at"`
	Latest    []entity.TelemetrySample         `json:"latest,omitempty"`
	History   map[int][]entity.TelemetrySample `json:"history,omitempty"`
}

type IOrchestratorService interface {
	Run(ctx context.Context) error
	CreateSession(model string) *entity.Session
	Session(id uuid.UUID) (*entity.Session, bool)
	Sessions() []*entity.Session
	Documents() []*entity.Document
	TelemetrySnapshot() TelemetrySnapshot
}

// orchestratorService is the hub: the only consumer of the inbound topic and
// the only writer of session, document and telemetry state. Commands and
// producer reports are interleaved on one goroutine, so handlers never race
// each other; the mutex exists for the read snapshots served to controllers.
//
// One task is in flight at a time. Each task carries a generation id taken
// from a monotonic counter; reports stamped with any other generation are
// discarded, which is how results of superseded or cancelled work are kept
// from corrupting later state.
type orchestratorService struct {
	pubSub       *gochannel.GoChannel
	publisher    IPublisherService
	sessions     *memory.SessionRepository
	searcher     *search.Searcher
	scanner      *ingest.Scanner
	providers    ProviderFactory
	newInference func(sessionId uuid.UUID, gen uint64, provider llm.LLMProvider) InferenceStarter
	logger       logger.ILogger

	inboundTopic  string
	systemProfile string
	defaultModel  string
	researchDir   string
	retrievalCfg  search.Config
	retrievalTTL  time.Duration
	ringCapacity  int

	mu          sync.RWMutex
	generation  uint64
	activeTask  *entity.Task
	documents   map[string]*entity.Document
	lastPrompts map[uuid.UUID]dto.Command

	gpuRings     map[int]*telemetryRing
	gpuOrder     []int
	gpuAvailable bool
	gpuReason    string
	gpuAt        time.Time
}

func NewOrchestratorService(
	pubSub *gochannel.GoChannel,
	publisher IPublisherService,
	sessions *memory.SessionRepository,
	searcher *search.Searcher,
	scanner *ingest.Scanner,
	providers ProviderFactory,
	cfg *config.Config,
	log logger.ILogger,
) IOrchestratorService {
	systemProfile := cfg.Ai.SystemProfile
	if systemProfile == "" {
		systemProfile = constant.DefaultSystemProfile
	}
	o := &orchestratorService{
		pubSub:        pubSub,
		publisher:     publisher,
		sessions:      sessions,
		searcher:      searcher,
		scanner:       scanner,
		providers:     providers,
		logger:        log,
		inboundTopic:  cfg.App.InboundTopic,
		systemProfile: systemProfile,
		defaultModel:  cfg.Ai.ChatModel,
		researchDir:   cfg.Retrieval.ResearchDir,
		retrievalCfg: search.Config{
			Threshold: cfg.Retrieval.Threshold,
			TopK:      cfg.Retrieval.TopK,
		},
		retrievalTTL: cfg.Retrieval.Timeout,
		ringCapacity: cfg.Telemetry.RingCapacity,
		documents:    make(map[string]*entity.Document),
		lastPrompts:  make(map[uuid.UUID]dto.Command),
		gpuRings:     make(map[int]*telemetryRing),
	}
	o.newInference = func(sessionId uuid.UUID, gen uint64, provider llm.LLMProvider) InferenceStarter {
		return inference.NewSession(sessionId, gen, provider, o.publisher, o.logger)
	}
	return o
}

func (o *orchestratorService) Run(ctx context.Context) error {
	messages, err := o.pubSub.Subscribe(ctx, o.inboundTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			o.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (o *orchestratorService) processMessage(ctx context.Context, msg *message.Message) {
	// Malformed payloads are acked and dropped; there is no retry that can
	// fix them.
	defer msg.Ack()

	kind := msg.Metadata.Get(constant.MetadataKindKey)
	switch kind {
	case constant.KindCommand:
		var cmd dto.Command
		if err := json.Unmarshal(msg.Payload, &cmd); err != nil {
			o.logger.Error("Orchestrator", "Failed to unmarshal command", map[string]interface{}{"error": err.Error()})
			return
		}
		o.handleCommand(ctx, cmd)
	case constant.KindInference:
		var report dto.InferenceReport
		if err := json.Unmarshal(msg.Payload, &report); err != nil {
			o.logger.Error("Orchestrator", "Failed to unmarshal inference report", map[string]interface{}{"error": err.Error()})
			return
		}
		o.handleInference(report)
	case constant.KindRetrieval:
		var report dto.RetrievalReport
		if err := json.Unmarshal(msg.Payload, &report); err != nil {
			o.logger.Error("Orchestrator", "Failed to unmarshal retrieval report", map[string]interface{}{"error": err.Error()})
			return
		}
		o.handleRetrieval(ctx, report)
	case constant.KindTelemetry:
		var report dto.TelemetryReport
		if err := json.Unmarshal(msg.Payload, &report); err != nil {
			o.logger.Error("Orchestrator", "Failed to unmarshal telemetry report", map[string]interface{}{"error": err.Error()})
			return
		}
		o.handleTelemetry(report)
	case constant.KindIngestion:
		var report dto.IngestionReport
		if err := json.Unmarshal(msg.Payload, &report); err != nil {
			o.logger.Error("Orchestrator", "Failed to unmarshal ingestion report", map[string]interface{}{"error": err.Error()})
			return
		}
		o.handleIngestion(report)
	default:
		o.logger.Warn("Orchestrator", "Unknown message kind", map[string]interface{}{"kind": kind})
	}
}

func (o *orchestratorService) handleCommand(ctx context.Context, cmd dto.Command) {
	switch cmd.Type {
	case dto.CommandSubmit:
		o.handleSubmit(ctx, cmd)
	case dto.CommandCancel:
		o.handleCancel(cmd)
	case dto.CommandAddDocument:
		o.handleAddDocument(ctx, cmd)
	case dto.CommandRetry:
		o.handleRetry(ctx, cmd)
	default:
		o.logger.Warn("Orchestrator", "Unknown command type", map[string]interface{}{"type": cmd.Type})
	}
}

// ---- submit / retry ----

func (o *orchestratorService) handleSubmit(ctx context.Context, cmd dto.Command) {
	o.mu.Lock()
	defer o.mu.Unlock()

	session, ok := o.sessions.Get(cmd.SessionId)
	if !ok {
		o.emitError(cmd.SessionId, 0, "session not found")
		return
	}

	// A new prompt supersedes whatever is running; its late results fail the
	// generation check and disappear.
	o.cancelActiveLocked()

	session.AppendMessage(constant.ChatMessageRoleUser, cmd.Text, nil)
	session.LastError = ""
	o.sessions.Save(session)
	o.lastPrompts[session.Id] = cmd

	o.dispatchPromptLocked(ctx, session, cmd)
}

func (o *orchestratorService) handleRetry(ctx context.Context, cmd dto.Command) {
	o.mu.Lock()
	defer o.mu.Unlock()

	session, ok := o.sessions.Get(cmd.SessionId)
	if !ok {
		o.emitError(cmd.SessionId, 0, "session not found")
		return
	}
	last, ok := o.lastPrompts[session.Id]
	if !ok {
		o.emitError(session.Id, 0, "nothing to retry")
		return
	}

	o.cancelActiveLocked()

	// Drop the assistant turn the failed attempt left behind, then replay
	// the prompt as if it had just been submitted.
	if open := session.OpenAssistantMessage(); open != nil {
		session.Messages = session.Messages[:len(session.Messages)-1]
	}
	session.LastError = ""
	o.sessions.Save(session)

	o.dispatchPromptLocked(ctx, session, last)
}

// dispatchPromptLocked routes a prompt through retrieval when the index has
// content, straight to inference otherwise. Callers hold o.mu.
func (o *orchestratorService) dispatchPromptLocked(ctx context.Context, session *entity.Session, cmd dto.Command) {
	gen := o.nextGenerationLocked()

	if o.searcher.IndexedChunks() > 0 {
		o.startRetrievalLocked(ctx, session, cmd.Text, gen)
		return
	}
	o.startInferenceLocked(ctx, session, gen, nil)
}

func (o *orchestratorService) startRetrievalLocked(ctx context.Context, session *entity.Session, query string, gen uint64) {
	queryCtx, cancel := context.WithTimeout(ctx, o.retrievalTTL)
	o.activeTask = entity.NewTask(gen, entity.TaskRetrieval, session.Id, cancel)
	o.setStateLocked(session, constant.ConversationStateRetrieving, gen)

	sessionId := session.Id
	go func() {
		defer cancel()

		done := make(chan dto.RetrievalReport, 1)
		go func() {
			results, err := o.searcher.Execute(queryCtx, query, o.retrievalCfg)

			report := dto.RetrievalReport{SessionId: sessionId, Generation: gen}
			if err != nil {
				report.Error = err.Error()
			}
			for _, res := range results {
				report.Chunks = append(report.Chunks, dto.RetrievedChunkDTO{
					Id:           res.Chunk.Id,
					DocumentPath: res.Chunk.DocumentPath,
					Offset:       res.Chunk.Offset,
					Text:         res.Chunk.Text,
					Score:        res.Score,
				})
			}
			done <- report
		}()

		// The deadline must fire even if the query goroutine is stuck inside
		// the embedding backend; the abandoned call dies with queryCtx.
		var report dto.RetrievalReport
		select {
		case report = <-done:
		case <-queryCtx.Done():
			report = dto.RetrievalReport{SessionId: sessionId, Generation: gen, Error: queryCtx.Err().Error()}
		}
		if err := o.publisher.PublishRetrieval(report); err != nil {
			o.logger.Warn("Orchestrator", "Failed to publish retrieval report", map[string]interface{}{"error": err.Error()})
		}
	}()
}

func (o *orchestratorService) handleRetrieval(ctx context.Context, report dto.RetrievalReport) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.generationAliveLocked(report.Generation) {
		o.logger.Debug("Orchestrator", "Dropping stale retrieval report", map[string]interface{}{"generation": report.Generation})
		return
	}
	session, ok := o.sessions.Get(report.SessionId)
	if !ok {
		o.cancelActiveLocked()
		return
	}

	if report.Error != "" {
		// Retrieval is best effort: a slow or failing index degrades to an
		// answer without research context, not a dead prompt.
		o.logger.Warn("Orchestrator", "Retrieval degraded to empty context", map[string]interface{}{
			"session_id": session.Id,
			"error":      report.Error,
		})
	}

	o.startInferenceLocked(ctx, session, report.Generation, report.Chunks)
}

// startInferenceLocked opens the assistant turn and hands the exchange to a
// streaming session. The retrieval phase and the inference phase of one
// prompt share a generation, so one cancel covers both.
func (o *orchestratorService) startInferenceLocked(ctx context.Context, session *entity.Session, gen uint64, chunks []dto.RetrievedChunkDTO) {
	model := session.Model
	if model == "" {
		model = o.defaultModel
	}
	if last, ok := o.lastPrompts[session.Id]; ok && last.Model != "" {
		model = last.Model
	}

	provider, err := o.providers(model)
	if err != nil {
		o.failSessionLocked(session, gen, fmt.Sprintf("provider init failed: %v", err))
		return
	}

	history := o.buildHistory(session, chunks)

	chunkIds := make([]uuid.UUID, 0, len(chunks))
	for _, c := range chunks {
		chunkIds = append(chunkIds, c.Id)
	}
	open := session.AppendMessage(constant.ChatMessageRoleAssistant, "", chunkIds)
	open.Incomplete = true
	o.sessions.Save(session)

	infCtx, cancel := context.WithCancel(ctx)
	sess := o.newInference(session.Id, gen, provider)
	o.activeTask = entity.NewTask(gen, entity.TaskInference, session.Id, func() {
		sess.Cancel()
		cancel()
	})

	o.setStateLocked(session, constant.ConversationStateThinking, gen)

	if err := sess.Start(infCtx, history, llm.WithModel(model)); err != nil {
		o.cancelActiveLocked()
		o.failSessionLocked(session, gen, err.Error())
	}
}

// buildHistory flattens the conversation for the backend: the system profile
// first, then every closed turn. When retrieval produced context, the final
// user query is wrapped in the research-data block instead of being sent raw.
func (o *orchestratorService) buildHistory(session *entity.Session, chunks []dto.RetrievedChunkDTO) []llm.Message {
	history := []llm.Message{{Role: constant.ChatMessageRoleSystem, Content: o.systemProfile}}

	lastUser := -1
	for i, msg := range session.Messages {
		if msg.Role == constant.ChatMessageRoleUser {
			lastUser = i
		}
	}

	for i, msg := range session.Messages {
		if msg.Incomplete {
			continue
		}
		content := msg.Content
		if i == lastUser && len(chunks) > 0 {
			content = fmt.Sprintf(constant.ResearchPromptTemplate, formatResearchData(chunks), msg.Content)
		}
		history = append(history, llm.Message{Role: msg.Role, Content: content})
	}
	return history
}

func formatResearchData(chunks []dto.RetrievedChunkDTO) string {
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(fmt.Sprintf("[Source: %s]\n%s", c.DocumentPath, c.Text))
	}
	return b.String()
}

// ---- inference reports ----

func (o *orchestratorService) handleInference(report dto.InferenceReport) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.generationAliveLocked(report.Generation) {
		o.logger.Debug("Orchestrator", "Dropping stale inference report", map[string]interface{}{
			"generation": report.Generation,
			"kind":       report.Kind,
		})
		return
	}
	session, ok := o.sessions.Get(report.SessionId)
	if !ok {
		o.cancelActiveLocked()
		return
	}

	switch report.Kind {
	case dto.InferenceDelta:
		open := session.OpenAssistantMessage()
		if open == nil {
			return
		}
		open.Content += report.Delta
		session.UpdatedAt = time.Now()
		o.sessions.Save(session)
		if session.State != constant.ConversationStateStreaming {
			o.setStateLocked(session, constant.ConversationStateStreaming, report.Generation)
		}
		o.emit(dto.Event{
			Type:       dto.EventMessageDelta,
			SessionId:  session.Id,
			Generation: report.Generation,
			Delta:      report.Delta,
		})

	case dto.InferenceCompleted:
		open := session.OpenAssistantMessage()
		if open != nil {
			// The completed report carries the accumulated text; trust it
			// over the delta sum.
			open.Content = report.Content
			open.Incomplete = false
		}
		o.cancelActiveLocked()
		o.sessions.Save(session)
		o.emit(dto.Event{
			Type:       dto.EventMessageComplete,
			SessionId:  session.Id,
			Generation: report.Generation,
			Message:    dto.MessageToDTO(open),
		})
		o.setStateLocked(session, constant.ConversationStateIdle, report.Generation)

	case dto.InferenceFailed:
		o.cancelActiveLocked()
		o.failSessionLocked(session, report.Generation, report.Reason)
	}
}

// ---- cancel ----

func (o *orchestratorService) handleCancel(cmd dto.Command) {
	o.mu.Lock()
	defer o.mu.Unlock()

	task := o.activeTask
	if task == nil {
		return
	}
	if cmd.SessionId != uuid.Nil && task.SessionId != cmd.SessionId {
		return
	}

	gen := task.Generation
	o.cancelActiveLocked()

	session, ok := o.sessions.Get(task.SessionId)
	if !ok {
		return
	}

	// The partial answer stays in the transcript, permanently marked
	// incomplete.
	if open := session.OpenAssistantMessage(); open != nil {
		o.emit(dto.Event{
			Type:       dto.EventMessageComplete,
			SessionId:  session.Id,
			Generation: gen,
			Message:    dto.MessageToDTO(open),
		})
	}
	o.sessions.Save(session)
	o.setStateLocked(session, constant.ConversationStateIdle, gen)
}

// ---- documents / ingestion ----

func (o *orchestratorService) handleAddDocument(ctx context.Context, cmd dto.Command) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.cancelActiveLocked()

	gen := o.nextGenerationLocked()
	scanCtx, cancel := context.WithCancel(ctx)
	o.activeTask = entity.NewTask(gen, entity.TaskScan, cmd.SessionId, cancel)

	if session, ok := o.sessions.Get(cmd.SessionId); ok {
		o.setStateLocked(session, constant.ConversationStateScanning, gen)
	}

	path := cmd.Path
	sessionId := cmd.SessionId
	go func() {
		defer cancel()

		var err error
		if path != "" {
			err = o.scanner.ScanDocument(scanCtx, path)
		} else {
			err = o.scanner.ScanAll(scanCtx, o.researchDir)
		}

		final := dto.IngestionReport{
			SessionId:  sessionId,
			Generation: gen,
			Path:       path,
			Status:     dto.IngestionStatusCompleted,
			Final:      true,
		}
		if err != nil {
			final.Status = dto.IngestionStatusFailed
			final.Reason = err.Error()
		}
		if err := o.publisher.PublishIngestion(final); err != nil {
			o.logger.Warn("Orchestrator", "Failed to publish scan completion", map[string]interface{}{"error": err.Error()})
		}
	}()
}

func (o *orchestratorService) handleIngestion(report dto.IngestionReport) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if report.Final {
		if !o.generationAliveLocked(report.Generation) {
			return
		}
		o.cancelActiveLocked()
		if session, ok := o.sessions.Get(report.SessionId); ok && session.State == constant.ConversationStateScanning {
			o.setStateLocked(session, constant.ConversationStateIdle, report.Generation)
		}
		o.emit(dto.Event{
			Type:       dto.EventIngestionProgress,
			SessionId:  report.SessionId,
			Generation: report.Generation,
			Ingestion: &dto.IngestionProgressDTO{
				Path:   report.Path,
				Status: report.Status,
				Reason: report.Reason,
			},
		})
		return
	}

	doc := o.upsertDocumentLocked(report)
	o.emit(dto.Event{
		Type: dto.EventIngestionProgress,
		Ingestion: &dto.IngestionProgressDTO{
			DocumentId: doc.Id,
			Path:       report.Path,
			Status:     report.Status,
			Reason:     report.Reason,
			ChunkCount: report.ChunkCount,
		},
	})
}

func (o *orchestratorService) upsertDocumentLocked(report dto.IngestionReport) *entity.Document {
	doc, ok := o.documents[report.Path]
	if !ok {
		doc = entity.NewDocument(report.Path)
		o.documents[report.Path] = doc
	}
	if report.Hash != "" {
		doc.Hash = report.Hash
	}

	switch report.Status {
	case dto.IngestionStatusScanning:
		doc.Status = entity.IngestionScanning
		doc.Reason = ""
	case dto.IngestionStatusIndexed:
		now := time.Now()
		doc.Status = entity.IngestionIndexed
		doc.Reason = ""
		doc.ChunkCount = report.ChunkCount
		doc.IndexedAt = &now
	case dto.IngestionStatusUnchanged:
		// First sighting of an already-indexed file still needs a record.
		if doc.Status == entity.IngestionPending {
			doc.Status = entity.IngestionIndexed
		}
	case dto.IngestionStatusFailed:
		doc.Status = entity.IngestionFailed
		doc.Reason = report.Reason
	}
	return doc
}

// ---- telemetry ----

func (o *orchestratorService) handleTelemetry(report dto.TelemetryReport) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.gpuAvailable = report.Available
	o.gpuReason = report.Reason
	o.gpuAt = report.At

	if !report.Available {
		o.emit(dto.Event{
			Type:                 dto.EventTelemetryUpdated,
			TelemetryUnavailable: true,
			Error:                report.Reason,
		})
		return
	}

	for _, sample := range report.Samples {
		ring, ok := o.gpuRings[sample.GpuIndex]
		if !ok {
			ring = newTelemetryRing(o.ringCapacity)
			o.gpuRings[sample.GpuIndex] = ring
			o.gpuOrder = append(o.gpuOrder, sample.GpuIndex)
		}
		ring.Push(sample)
	}

	o.emit(dto.Event{
		Type:      dto.EventTelemetryUpdated,
		Telemetry: report.Samples,
	})
}

// ---- shared helpers ----

func (o *orchestratorService) nextGenerationLocked() uint64 {
	o.generation++
	return o.generation
}

func (o *orchestratorService) generationAliveLocked(gen uint64) bool {
	return o.activeTask != nil && o.activeTask.Generation == gen
}

// cancelActiveLocked retires the in-flight task, if any, and releases its
// context. Terminal reports come through here too: the closure is idempotent
// and session cancel is a no-op once the stream has finished.
func (o *orchestratorService) cancelActiveLocked() {
	if o.activeTask == nil {
		return
	}
	if o.activeTask.Cancel != nil {
		o.activeTask.Cancel()
	}
	o.activeTask = nil
}

func (o *orchestratorService) setStateLocked(session *entity.Session, state string, gen uint64) {
	session.State = state
	session.UpdatedAt = time.Now()
	o.sessions.Save(session)
	o.emit(dto.Event{
		Type:       dto.EventStateChanged,
		SessionId:  session.Id,
		Generation: gen,
		State:      state,
	})
}

func (o *orchestratorService) failSessionLocked(session *entity.Session, gen uint64, reason string) {
	session.LastError = reason
	o.sessions.Save(session)
	o.emit(dto.Event{
		Type:       dto.EventErrorRaised,
		SessionId:  session.Id,
		Generation: gen,
		Error:      reason,
	})
	o.setStateLocked(session, constant.ConversationStateError, gen)
}

func (o *orchestratorService) emitError(sessionId uuid.UUID, gen uint64, reason string) {
	o.emit(dto.Event{
		Type:       dto.EventErrorRaised,
		SessionId:  sessionId,
		Generation: gen,
		Error:      reason,
	})
}

func (o *orchestratorService) emit(event dto.Event) {
	event.At = time.Now()
	if err := o.publisher.PublishEvent(event); err != nil {
		o.logger.Warn("Orchestrator", "Failed to publish UI event", map[string]interface{}{
			"type":  event.Type,
			"error": err.Error(),
		})
	}
}

// ---- read side ----

func (o *orchestratorService) CreateSession(model string) *entity.Session {
	if model == "" {
		model = o.defaultModel
	}
	session := entity.NewSession(model)

	o.mu.Lock()
	o.sessions.Save(session)
	o.mu.Unlock()

	return cloneSession(session)
}

func (o *orchestratorService) Session(id uuid.UUID) (*entity.Session, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	session, ok := o.sessions.Get(id)
	if !ok {
		return nil, false
	}
	return cloneSession(session), true
}

func (o *orchestratorService) Sessions() []*entity.Session {
	o.mu.RLock()
	defer o.mu.RUnlock()

	all := o.sessions.All()
	out := make([]*entity.Session, 0, len(all))
	for _, s := range all {
		out = append(out, cloneSession(s))
	}
	return out
}

func (o *orchestratorService) Documents() []*entity.Document {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]*entity.Document, 0, len(o.documents))
	for _, doc := range o.documents {
		copied := *doc
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (o *orchestratorService) TelemetrySnapshot() TelemetrySnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	snapshot := TelemetrySnapshot{
		Available: o.gpuAvailable,
		Reason:    o.gpuReason,
		At:        o.gpuAt,
		History:   make(map[int][]entity.TelemetrySample, len(o.gpuRings)),
	}
	for _, idx := range o.gpuOrder {
		ring := o.gpuRings[idx]
		snapshot.History[idx] = ring.Snapshot()
		if latest, ok := ring.Latest(); ok {
			snapshot.Latest = append(snapshot.Latest, latest)
		}
	}
	return snapshot
}

// cloneSession deep-copies the parts mutated during streaming so handlers
// can keep writing while a controller serializes the snapshot.
func cloneSession(s *entity.Session) *entity.Session {
	copied := *s
	copied.Messages = make([]*entity.Message, 0, len(s.Messages))
	for _, msg := range s.Messages {
		m := *msg
		copied.Messages = append(copied.Messages, &m)
	}
	return &copied
}
