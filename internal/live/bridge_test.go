package live

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newBridgeServer runs a Bridge for every incoming connection, pointed at the
// given fake vendor endpoint.
func newBridgeServer(t *testing.T, vendorURL string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		cfg := Config{
			APIKey:       "test-key",
			Endpoint:     vendorURL,
			Model:        "models/test-live",
			VoiceName:    "Kore",
			SystemScript: "Вы инспектор.",
		}
		NewBridge(cfg, conn).Run(r.Context())
	}))
}

// newVendorServer upgrades incoming connections and hands them to script.
func newVendorServer(t *testing.T, script func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("vendor dial missing key parameter")
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("vendor upgrade: %v", err)
			return
		}
		defer conn.Close()
		script(conn)
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func dialClient(t *testing.T, bridgeSrv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(bridgeSrv), nil)
	if err != nil {
		t.Fatalf("dial bridge: %v", err)
	}
	return conn
}

// readHandshake consumes and verifies the setup message and opening turn the
// bridge sends right after connecting.
func readHandshake(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	var setup vendorSetupMessage
	if err := conn.ReadJSON(&setup); err != nil {
		t.Errorf("reading setup: %v", err)
		return
	}
	if setup.Setup.Model != "models/test-live" {
		t.Errorf("unexpected model in setup: %q", setup.Setup.Model)
	}
	if len(setup.Setup.Tools) != 1 || setup.Setup.Tools[0].FunctionDeclarations[0].Name != reportFunctionName {
		t.Errorf("setup missing report tool declaration")
	}
	if setup.Setup.SystemInstruction == nil || len(setup.Setup.SystemInstruction.Parts) == 0 {
		t.Errorf("setup missing system instruction")
	}

	var opening clientContentMessage
	if err := conn.ReadJSON(&opening); err != nil {
		t.Errorf("reading opening turn: %v", err)
		return
	}
	if len(opening.ClientContent.Turns) != 1 || !opening.ClientContent.TurnComplete {
		t.Errorf("unexpected opening turn: %+v", opening)
	}
}

func TestBridgeReportFlow(t *testing.T) {
	vendor := newVendorServer(t, func(conn *websocket.Conn) {
		readHandshake(t, conn)

		// Wait for the finish sentinel to arrive as a user turn.
		var turn clientContentMessage
		if err := conn.ReadJSON(&turn); err != nil {
			t.Errorf("reading user turn: %v", err)
			return
		}
		if got := turn.ClientContent.Turns[0].Parts[0].Text; got != FinishSentinel {
			t.Errorf("expected finish sentinel, got %q", got)
		}

		// Narrate, invoke the report tool, then keep talking. Everything
		// after the function call must be suppressed.
		conn.WriteJSON(map[string]interface{}{
			"serverContent": map[string]interface{}{
				"modelTurn": map[string]interface{}{
					"parts": []map[string]interface{}{{"text": "Завершаю осмотр."}},
				},
			},
		})
		conn.WriteJSON(map[string]interface{}{
			"serverContent": map[string]interface{}{
				"modelTurn": map[string]interface{}{
					"parts": []map[string]interface{}{{
						"functionCall": map[string]interface{}{
							"name": reportFunctionName,
							"args": map[string]interface{}{
								"summary": "Осмотр завершен",
								"status":  "success",
								"damages": []interface{}{},
							},
						},
					}},
				},
			},
		})
		conn.WriteJSON(map[string]interface{}{
			"serverContent": map[string]interface{}{
				"modelTurn": map[string]interface{}{
					"parts": []map[string]interface{}{{
						"inlineData": map[string]interface{}{"mimeType": "audio/pcm", "data": "AAAA"},
					}},
				},
			},
		})

		// Hold the connection open so the bridge, not the vendor, decides
		// what reaches the client.
		conn.ReadMessage()
	})
	defer vendor.Close()

	bridgeSrv := newBridgeServer(t, wsURL(vendor))
	defer bridgeSrv.Close()

	client := dialClient(t, bridgeSrv)
	defer client.Close()

	if err := client.WriteJSON(map[string]string{"type": "setup"}); err != nil {
		t.Fatalf("sending setup: %v", err)
	}
	if err := client.WriteMessage(websocket.TextMessage, []byte(FinishSentinel)); err != nil {
		t.Fatalf("sending sentinel: %v", err)
	}

	var sawText, sawReport bool
	var reportCount int
	client.SetReadDeadline(time.Now().Add(3 * time.Second))
	for !sawReport {
		_, data, err := client.ReadMessage()
		if err != nil {
			t.Fatalf("reading from bridge (text=%v report=%v): %v", sawText, sawReport, err)
		}
		var env clientEnvelope
		if json.Unmarshal(data, &env) != nil {
			continue
		}
		switch env.Type {
		case "text":
			sawText = true
		case "report":
			sawReport = true
			reportCount++
			var report struct {
				Summary string `json:"summary"`
				Status  string `json:"status"`
			}
			if err := json.Unmarshal([]byte(env.Text), &report); err != nil {
				t.Errorf("report args are not JSON: %v (%q)", err, env.Text)
			} else if report.Status != "success" {
				t.Errorf("unexpected report: %+v", report)
			}
		}
	}
	if !sawText {
		t.Error("text message never relayed")
	}

	// Nothing may follow the report; the audio frame the vendor sent after
	// the function call is suppressed.
	client.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, data, err := client.ReadMessage(); err == nil {
		t.Errorf("unexpected message after report: %s", data)
	}
	if reportCount != 1 {
		t.Errorf("expected exactly one report, got %d", reportCount)
	}
}

func TestBridgeDropsMediaBeforeSetup(t *testing.T) {
	vendor := newVendorServer(t, func(conn *websocket.Conn) {
		// The first thing on the wire must be the handshake, not the audio
		// the client sent before the setup command.
		readHandshake(t, conn)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	})
	defer vendor.Close()

	bridgeSrv := newBridgeServer(t, wsURL(vendor))
	defer bridgeSrv.Close()

	client := dialClient(t, bridgeSrv)
	defer client.Close()

	// Audio before setup: silently dropped, never queued.
	if err := client.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}); err != nil {
		t.Fatalf("sending early audio: %v", err)
	}
	if err := client.WriteJSON(map[string]string{"type": "setup"}); err != nil {
		t.Fatalf("sending setup: %v", err)
	}

	// A normal vendor close must not produce an error envelope.
	client.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, data, err := client.ReadMessage()
		if err != nil {
			return // connection closed, no error envelope seen
		}
		var env clientEnvelope
		if json.Unmarshal(data, &env) == nil && env.Type == "error" {
			t.Fatalf("unexpected error envelope on normal close: %s", data)
		}
	}
}

func TestBridgeVendorAbnormalClose(t *testing.T) {
	vendor := newVendorServer(t, func(conn *websocket.Conn) {
		readHandshake(t, conn)
		// Drop the connection without a close frame.
		conn.Close()
	})
	defer vendor.Close()

	bridgeSrv := newBridgeServer(t, wsURL(vendor))
	defer bridgeSrv.Close()

	client := dialClient(t, bridgeSrv)
	defer client.Close()

	if err := client.WriteJSON(map[string]string{"type": "setup"}); err != nil {
		t.Fatalf("sending setup: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, data, err := client.ReadMessage()
		if err != nil {
			t.Fatal("connection closed before the error envelope arrived")
		}
		var env clientEnvelope
		if json.Unmarshal(data, &env) == nil && env.Type == "error" {
			if !strings.Contains(env.Message, "closed unexpectedly") {
				t.Errorf("unexpected error message: %q", env.Message)
			}
			return
		}
	}
}

func TestBridgeForwardsClientJSONVerbatim(t *testing.T) {
	received := make(chan []byte, 1)
	vendor := newVendorServer(t, func(conn *websocket.Conn) {
		readHandshake(t, conn)
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("reading forwarded frame: %v", err)
			return
		}
		received <- data
		conn.ReadMessage()
	})
	defer vendor.Close()

	bridgeSrv := newBridgeServer(t, wsURL(vendor))
	defer bridgeSrv.Close()

	client := dialClient(t, bridgeSrv)
	defer client.Close()

	if err := client.WriteJSON(map[string]string{"type": "setup"}); err != nil {
		t.Fatalf("sending setup: %v", err)
	}

	frame := `{"realtime_input":{"media_chunks":[{"mime_type":"image/jpeg","data":"AAAA"}]}}`
	// Give the bridge a moment to finish the vendor handshake; frames sent
	// before readiness are dropped by design.
	deadline := time.After(3 * time.Second)
	for {
		if err := client.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatalf("sending frame: %v", err)
		}
		select {
		case data := <-received:
			if string(data) != frame {
				t.Errorf("frame not forwarded verbatim: %s", data)
			}
			return
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("vendor never received the forwarded frame")
		}
	}
}
