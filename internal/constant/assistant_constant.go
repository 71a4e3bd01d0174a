package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"

	// DefaultSystemProfile is prepended to every chat history so the model
	// answers in the persona the user configured. Override with SYSTEM_PROFILE.
	DefaultSystemProfile = `You are a research assistant for an engineering student. You have a strong background in circuits, signal processing, and embedded systems. Always provide detailed explanations and practical examples. When research context is supplied, ground your answer in it and cite the source documents by name.`

	// ResearchPromptTemplate wraps retrieved chunks around the user query.
	// The model sees the context block first, then the question.
	ResearchPromptTemplate = "### RESEARCH DATA:\n%s\n\n### USER QUERY:\n%s"

	// Ollama Configuration
	OllamaDefaultBaseURL        = "http://localhost:11434"
	OllamaDefaultModel          = "llama3.1:8b"
	OllamaDefaultEmbeddingModel = "nomic-embed-text"
	OllamaChatEndpoint          = "/api/chat"
	OllamaEmbeddingEndpoint     = "/api/embeddings"

	OllamaRoleUser      = "user"
	OllamaRoleAssistant = "assistant"
	OllamaRoleSystem    = "system"
)

// Conversation states owned by the orchestrator. One per session; producers
// never write these directly.
const (
	ConversationStateIdle       = "IDLE"
	ConversationStateScanning   = "SCANNING"
	ConversationStateRetrieving = "RETRIEVING"
	ConversationStateThinking   = "THINKING"
	ConversationStateStreaming  = "STREAMING"
	ConversationStateError      = "ERROR"
)

// Message kinds on the inbound orchestrator topic. Stored in watermill
// message metadata under MetadataKindKey.
const (
	MetadataKindKey = "kind"

	KindCommand   = "command"
	KindInference = "inference"
	KindRetrieval = "retrieval"
	KindTelemetry = "telemetry"
	KindIngestion = "ingestion"
)
