// Package live maintains a duplex relay between one browser client and one
// vendor streaming session, translating a small JSON protocol in each
// direction. One Bridge serves exactly one client connection; the two sockets
// share a lifetime: closing either closes the other.
package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Config holds the vendor connection settings injected at startup.
type Config struct {
	// APIKey is the vendor credential appended to the dial URL.
	APIKey string

	// Endpoint is the vendor's bidirectional websocket URL, without the key
	// query parameter.
	Endpoint string

	// Model is the streaming model name sent in the handshake.
	Model string

	// VoiceName selects the prebuilt voice for audio responses.
	VoiceName string

	// SystemScript is the conversational policy sent as system instruction.
	SystemScript string
}

// Bridge relays messages between a client websocket and a vendor websocket.
//
// The vendor connection opens lazily, on the client's {"type":"setup"}
// control message rather than on client connect: clients that never start an
// inspection never hold a vendor session open. Media received before the
// vendor handshake completes is silently dropped, not queued.
type Bridge struct {
	cfg    Config
	client *websocket.Conn

	// clientWriteMu serializes writes to the client socket, which happen
	// from both the client loop and the vendor read goroutine.
	clientWriteMu sync.Mutex

	mu          sync.Mutex
	vendor      *websocket.Conn
	vendorReady bool

	// reportSent is touched only by the vendor read goroutine. Once the
	// final report has been emitted, no further vendor output is relayed.
	reportSent bool
}

// NewBridge creates a bridge for one accepted client connection.
func NewBridge(cfg Config, client *websocket.Conn) *Bridge {
	return &Bridge{cfg: cfg, client: client}
}

// Run pumps client messages until the client disconnects, then tears down the
// paired vendor connection. It blocks for the lifetime of the session.
func (b *Bridge) Run(ctx context.Context) {
	defer b.closeVendor()

	for {
		msgType, data, err := b.client.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Msg("Client connection closed")
			return
		}
		b.handleClientMessage(ctx, msgType, data)
	}
}

// handleClientMessage applies the inbound protocol translation: the setup
// command opens the vendor session, JSON passes through verbatim, plain text
// becomes a user turn, and raw binary becomes a PCM audio chunk.
func (b *Bridge) handleClientMessage(ctx context.Context, msgType int, data []byte) {
	text := string(data)
	if strings.HasPrefix(strings.TrimSpace(text), "{") {
		var cmd clientCommand
		if err := json.Unmarshal(data, &cmd); err == nil && cmd.Type == "setup" {
			log.Info().Msg("Received setup command")
			b.connectVendor(ctx)
			return
		}
		b.sendToVendorRaw(data)
		return
	}

	if msgType == websocket.BinaryMessage {
		b.sendToVendorJSON(realtimeInputMessage{
			RealtimeInput: realtimeInput{
				MediaChunks: []mediaChunk{{
					MIMEType: "audio/pcm",
					Data:     base64.StdEncoding.EncodeToString(data),
				}},
			},
		})
		return
	}

	// Plain text, e.g. the FINISH_REPORT sentinel.
	b.sendToVendorJSON(newUserTextTurn(text))
}

// connectVendor dials the vendor endpoint, performs the one-time handshake,
// and starts the vendor read loop. The session is Active only after the
// handshake messages are written.
func (b *Bridge) connectVendor(ctx context.Context) {
	b.mu.Lock()
	if b.vendor != nil {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	if b.cfg.APIKey == "" {
		b.sendToClient(clientEnvelope{Type: "error", Message: "Server API Key missing"})
		b.client.Close()
		return
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, b.cfg.Endpoint+"?key="+b.cfg.APIKey, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to vendor live endpoint")
		b.sendToClient(clientEnvelope{Type: "error", Message: "Error connecting to AI service"})
		b.client.Close()
		return
	}
	log.Info().Msg("Connected to vendor live session")

	setup := newSetupMessage(b.cfg.Model, b.cfg.VoiceName, b.cfg.SystemScript)
	if err := conn.WriteJSON(setup); err != nil {
		log.Error().Err(err).Msg("Failed to send vendor handshake")
		conn.Close()
		b.sendToClient(clientEnvelope{Type: "error", Message: "Error connecting to AI service"})
		b.client.Close()
		return
	}
	// Synthetic opening turn so the model speaks first.
	if err := conn.WriteJSON(newOpeningTurn()); err != nil {
		log.Error().Err(err).Msg("Failed to send opening turn")
		conn.Close()
		b.sendToClient(clientEnvelope{Type: "error", Message: "Error connecting to AI service"})
		b.client.Close()
		return
	}

	b.mu.Lock()
	b.vendor = conn
	b.vendorReady = true
	b.mu.Unlock()

	go b.vendorReadLoop(conn)
}

// vendorReadLoop pumps vendor messages to the client until the vendor
// connection drops, then tears down the client connection. A non-normal close
// is surfaced to the client as an error message first.
func (b *Bridge) vendorReadLoop(conn *websocket.Conn) {
	defer func() {
		b.mu.Lock()
		b.vendorReady = false
		b.mu.Unlock()
		b.client.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info().Msg("Vendor connection closed normally")
			} else {
				log.Warn().Err(err).Msg("Vendor connection closed unexpectedly")
				b.sendToClient(clientEnvelope{Type: "error", Message: "Gemini connection closed unexpectedly"})
			}
			return
		}
		b.handleVendorMessage(data)
	}
}

// handleVendorMessage inspects one vendor frame: the submit_report function
// call becomes the authoritative typed report, text parts are mirrored as
// typed text messages (with the deprecated marker fallback), and the raw
// frame, which carries any inline audio, is relayed unmodified. After the
// report, nothing further is forwarded.
func (b *Bridge) handleVendorMessage(data []byte) {
	if b.reportSent {
		return
	}

	var msg vendorMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		// Not a structure we know; relay untouched.
		b.sendToClientRaw(data)
		return
	}

	if msg.ServerContent != nil && msg.ServerContent.ModelTurn != nil {
		for _, part := range msg.ServerContent.ModelTurn.Parts {
			if part.FunctionCall != nil && part.FunctionCall.Name == reportFunctionName {
				log.Info().Msg("Vendor invoked the report function")
				b.reportSent = true
				b.sendToClient(clientEnvelope{Type: "report", Text: string(part.FunctionCall.Args)})
				return
			}
			if part.Text != "" {
				b.sendToClient(clientEnvelope{Type: "text", Content: part.Text})
				if strings.Contains(part.Text, reportTextMarker) {
					log.Warn().Msg("Report detected via text marker fallback")
					b.reportSent = true
					b.sendToClient(clientEnvelope{Type: "report", Text: part.Text})
					return
				}
			}
		}
	}

	// Forward everything to the client, including audio.
	b.sendToClientRaw(data)
}

// --- socket plumbing ---

func (b *Bridge) sendToClient(env clientEnvelope) {
	b.clientWriteMu.Lock()
	defer b.clientWriteMu.Unlock()
	if err := b.client.WriteJSON(env); err != nil {
		log.Debug().Err(err).Str("type", env.Type).Msg("Failed to write to client")
	}
}

func (b *Bridge) sendToClientRaw(data []byte) {
	b.clientWriteMu.Lock()
	defer b.clientWriteMu.Unlock()
	if err := b.client.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Debug().Err(err).Msg("Failed to relay to client")
	}
}

// sendToVendorRaw forwards a client frame verbatim when the session is
// Active; anything earlier is dropped.
func (b *Bridge) sendToVendorRaw(data []byte) {
	b.mu.Lock()
	conn, ready := b.vendor, b.vendorReady
	b.mu.Unlock()
	if !ready || conn == nil {
		log.Debug().Msg("Dropping client message before vendor handshake")
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Debug().Err(err).Msg("Failed to forward to vendor")
	}
}

func (b *Bridge) sendToVendorJSON(v interface{}) {
	b.mu.Lock()
	conn, ready := b.vendor, b.vendorReady
	b.mu.Unlock()
	if !ready || conn == nil {
		log.Debug().Msg("Dropping client message before vendor handshake")
		return
	}
	if err := conn.WriteJSON(v); err != nil {
		log.Debug().Err(err).Msg("Failed to forward to vendor")
	}
}

// closeVendor tears down the vendor half when the client half is gone.
func (b *Bridge) closeVendor() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vendorReady = false
	if b.vendor != nil {
		b.vendor.Close()
		b.vendor = nil
	}
}
