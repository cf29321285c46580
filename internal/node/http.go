package node

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/driftmesh/drift/internal/policy"
	"github.com/driftmesh/drift/internal/relay"
)

var decisionLabels = map[relay.Decision]string{
	relay.DecisionStoreAndRelay: "store_and_relay",
	relay.DecisionDeliverLocal:  "deliver_local",
	relay.DecisionDuplicate:     "duplicate",
	relay.DecisionDropped:       "dropped",
}

var reasonLabels = map[relay.DropReason]string{
	relay.ReasonNone:             "",
	relay.ReasonExpired:          "expired",
	relay.ReasonNetworkDormant:   "network_dormant",
	relay.ReasonMaxHopsExceeded:  "max_hops_exceeded",
	relay.ReasonLowPriority:      "low_priority",
	relay.ReasonRateLimited:      "rate_limited",
	relay.ReasonStoreFull:        "store_full",
}

func decisionLabel(d relay.Decision) string { return decisionLabels[d] }
func reasonLabel(r relay.DropReason) string { return reasonLabels[r] }

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// PublicHandler exposes the single peer-facing endpoint: submit a raw
// DriftEnvelope for this node's Relay Engine to process.
func (n *Node) PublicHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/envelope", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "use POST", http.StatusMethodNotAllowed)
			return
		}
		raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		decision, reason, err := n.Receive(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, struct {
			Decision string `json:"decision"`
			Reason   string `json:"reason,omitempty"`
		}{decisionLabel(decision), reasonLabel(reason)})
	})

	return mux
}

// ControlHandler exposes localhost-only administrative endpoints: status,
// send, and device-state/policy updates.
func (n *Node) ControlHandler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", n.MetricsHandler())

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		cfg := n.CurrentRelayConfig()
		writeJSON(w, struct {
			IdentityB64 string `json:"identity_b64"`
			HintB64     string `json:"hint_b64"`
			Profile     string `json:"profile"`
			RelayBudget int    `json:"relay_budget"`
			StoreSize   int    `json:"store_size"`
			OutboxSize  int    `json:"outbox_size"`
		}{
			IdentityB64: base64.StdEncoding.EncodeToString(n.Identity()),
			HintB64:     base64.StdEncoding.EncodeToString(n.localHint[:]),
			Profile:     cfg.Profile.String(),
			RelayBudget: cfg.RelayBudget,
			StoreSize:   n.store.Len(),
			OutboxSize:  n.outbox.Len(),
		})
	})

	mux.HandleFunc("/send", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "use POST", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			RecipientB64 string `json:"recipient_b64"`
			Message      string `json:"message"`
			Priority     uint8  `json:"priority"`
			TTLSeconds   int    `json:"ttl_seconds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}
		recipient, err := base64.StdEncoding.DecodeString(req.RecipientB64)
		if err != nil || len(recipient) != ed25519.PublicKeySize {
			http.Error(w, "invalid recipient_b64", http.StatusBadRequest)
			return
		}
		wire, err := n.Send(ed25519.PublicKey(recipient), []byte(req.Message), req.Priority, time.Duration(req.TTLSeconds)*time.Second)
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, struct {
			EnvelopeB64 string `json:"envelope_b64"`
		}{base64.StdEncoding.EncodeToString(wire)})
	})

	mux.HandleFunc("/policy/device-state", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "use POST", http.StatusMethodNotAllowed)
			return
		}
		var state policy.DeviceState
		if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}
		if err := n.ApplyDeviceState(state, policy.Overrides{}); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, n.CurrentRelayConfig())
	})

	return mux
}
