package live

import "encoding/json"

// reportFunctionName is the callable the vendor may invoke to emit the final
// structured report instead of free text.
const reportFunctionName = "submit_report"

// FinishSentinel is the client-sent text that tells the model to wrap up the
// inspection and emit its final report.
const FinishSentinel = "FINISH_REPORT"

// reportTextMarker is the deprecated free-text fallback: vendor text that
// looks like a JSON report. The typed function call is the primary mechanism;
// this only catches models that ignore the tool declaration.
const reportTextMarker = `"damages"`

// --- Client-facing envelopes ---

// clientEnvelope is the typed message the bridge sends to the browser client.
type clientEnvelope struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

// clientCommand is the control envelope the browser sends; only "setup" is
// interpreted by the bridge, everything else passes through.
type clientCommand struct {
	Type string `json:"type"`
}

// --- Vendor-bound messages ---

type vendorSetupMessage struct {
	Setup vendorSetup `json:"setup"`
}

type vendorSetup struct {
	Model             string            `json:"model"`
	GenerationConfig  *generationConfig `json:"generation_config,omitempty"`
	Tools             []tool            `json:"tools,omitempty"`
	SystemInstruction *vendorContent    `json:"system_instruction,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"response_modalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speech_config,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voice_config"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuilt_voice_config"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voice_name"`
}

type tool struct {
	FunctionDeclarations []functionDeclaration `json:"function_declarations"`
}

type functionDeclaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *schema `json:"parameters,omitempty"`
}

// schema is a minimal OpenAPI-style parameter schema for tool declarations.
type schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Properties  map[string]*schema `json:"properties,omitempty"`
	Items       *schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

type vendorContent struct {
	Parts []vendorTextPart `json:"parts"`
	Role  string           `json:"role,omitempty"`
}

type vendorTextPart struct {
	Text string `json:"text"`
}

type clientContentMessage struct {
	ClientContent clientContent `json:"client_content"`
}

type clientContent struct {
	Turns        []vendorContent `json:"turns"`
	TurnComplete bool            `json:"turn_complete"`
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtime_input"`
}

type realtimeInput struct {
	MediaChunks []mediaChunk `json:"media_chunks"`
}

type mediaChunk struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64 encoded
}

// --- Vendor-emitted messages ---

type vendorMessage struct {
	ServerContent *serverContent  `json:"serverContent,omitempty"`
	SetupComplete json.RawMessage `json:"setupComplete,omitempty"`
}

type serverContent struct {
	ModelTurn    *modelTurn `json:"modelTurn,omitempty"`
	TurnComplete bool       `json:"turnComplete,omitempty"`
}

type modelTurn struct {
	Parts []modelPart `json:"parts"`
}

type modelPart struct {
	Text         string        `json:"text,omitempty"`
	InlineData   *inlineData   `json:"inlineData,omitempty"`
	FunctionCall *functionCall `json:"functionCall,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type functionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}
