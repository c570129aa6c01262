package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avgwguard/internal/admission"
	"github.com/vyrodovalexey/avgwguard/internal/auth/ethsig"
	"github.com/vyrodovalexey/avgwguard/internal/config"
	"github.com/vyrodovalexey/avgwguard/internal/server/middleware"
)

// A throwaway key used only to produce claims in tests.
const signerSecret = "809465b17d0a4ddb3e4c69e8f23c2cabad868f51f8bed5c765ad1d6516c3306f"

func newHandlerTestServer(t *testing.T, cfg *config.Config) (*Server, *admission.MemoryStore) {
	t.Helper()

	if cfg == nil {
		cfg = newTestConfig()
	}

	store := admission.NewMemoryStore()
	srv, err := New(cfg, store, ethsig.NewVerifier())
	require.NoError(t, err)
	return srv, store
}

func doJSON(srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *strings.Reader
	switch b := body.(type) {
	case nil:
		reader = strings.NewReader("")
	case string:
		reader = strings.NewReader(b)
	default:
		raw, _ := json.Marshal(b)
		reader = strings.NewReader(string(raw))
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func signedClaim(t *testing.T, validFor time.Duration) *ethsig.SignedMessage {
	t.Helper()

	key, err := ethsig.PrivateKeyFromHex(signerSecret)
	require.NoError(t, err)

	msg, err := ethsig.SignMessage(key, time.Now().Add(validFor).Format(ethsig.DateLayout))
	require.NoError(t, err)
	return msg
}

func TestUpsertStatuses(t *testing.T) {
	srv, store := newHandlerTestServer(t, nil)

	w := doJSON(srv, http.MethodPost, "/ip-status", []admission.Record{
		{IP: "10.0.0.1", Status: 1},
		{IP: "10.0.0.2", Status: 0},
	})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	ctx := context.Background()
	assert.Equal(t, admission.StatusBlocked, store.Read(ctx, "10.0.0.1"))
	assert.Equal(t, admission.StatusTrusted, store.Read(ctx, "10.0.0.2"))
}

func TestUpsertStatuses_DuplicateLastWins(t *testing.T) {
	srv, store := newHandlerTestServer(t, nil)

	w := doJSON(srv, http.MethodPost, "/ip-status", []admission.Record{
		{IP: "10.0.0.1", Status: 1},
		{IP: "10.0.0.1", Status: 0},
	})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, admission.StatusTrusted, store.Read(context.Background(), "10.0.0.1"))
}

func TestUpsertStatuses_EmptyBatch(t *testing.T) {
	srv, store := newHandlerTestServer(t, nil)

	w := doJSON(srv, http.MethodPost, "/ip-status", []admission.Record{})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, store.Len())
}

func TestUpsertStatuses_MalformedBody(t *testing.T) {
	srv, _ := newHandlerTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{
			name: "object instead of array",
			body: `{"ip":"10.0.0.1","status":1}`,
		},
		{
			name: "not json",
			body: "definitely not json",
		},
		{
			name: "empty body",
			body: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(srv, http.MethodPost, "/ip-status", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "bad request")
		})
	}
}

func TestUpsertStatuses_StorageFailure(t *testing.T) {
	srv, store := newHandlerTestServer(t, nil)
	store.Fail(true)

	w := doJSON(srv, http.MethodPost, "/ip-status", []admission.Record{
		{IP: "10.0.0.1", Status: 1},
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "admission store unavailable")
}

func TestUpsertStatuses_BodyTooLarge(t *testing.T) {
	cfg := newTestConfig()
	cfg.Server.MaxRequestBodySize = 16

	srv, _ := newHandlerTestServer(t, cfg)

	records := make([]admission.Record, 16)
	for i := range records {
		records[i] = admission.Record{IP: "10.0.0.1", Status: 1}
	}

	w := doJSON(srv, http.MethodPost, "/ip-status", records)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListStatuses(t *testing.T) {
	srv, store := newHandlerTestServer(t, nil)

	require.NoError(t, store.BulkInsert(context.Background(), []admission.Record{
		{IP: "10.0.0.3", Status: 1},
		{IP: "10.0.0.1", Status: 0},
		{IP: "10.0.0.2", Status: 7},
	}))

	w := doJSON(srv, http.MethodGet, "/ip-status", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var records []admission.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))

	// Sorted by IP, codes exactly as stored including the raw 7.
	assert.Equal(t, []admission.Record{
		{IP: "10.0.0.1", Status: 0},
		{IP: "10.0.0.2", Status: 7},
		{IP: "10.0.0.3", Status: 1},
	}, records)
}

func TestListStatuses_Empty(t *testing.T) {
	srv, _ := newHandlerTestServer(t, nil)

	w := doJSON(srv, http.MethodGet, "/ip-status", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestListStatuses_OutageFailsOpen(t *testing.T) {
	srv, store := newHandlerTestServer(t, nil)

	require.NoError(t, store.Insert(context.Background(), "10.0.0.1", admission.StatusBlocked))
	store.Fail(true)

	w := doJSON(srv, http.MethodGet, "/ip-status", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestVerify(t *testing.T) {
	srv, _ := newHandlerTestServer(t, nil)

	t.Run("valid claim", func(t *testing.T) {
		msg := signedClaim(t, time.Hour)

		w := doJSON(srv, http.MethodPost, "/auth/verify", msg)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Valid   bool   `json:"valid"`
			Address string `json:"address"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Valid)
		assert.Equal(t, msg.Address, resp.Address)
	})

	t.Run("expired claim", func(t *testing.T) {
		msg := signedClaim(t, -time.Hour)

		w := doJSON(srv, http.MethodPost, "/auth/verify", msg)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"valid":false}`, w.Body.String())
	})

	t.Run("malformed signature", func(t *testing.T) {
		msg := signedClaim(t, time.Hour)
		msg.Signature = "0xnothex"

		w := doJSON(srv, http.MethodPost, "/auth/verify", msg)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_signature")
	})

	t.Run("invalid body", func(t *testing.T) {
		w := doJSON(srv, http.MethodPost, "/auth/verify", `["not","a","claim"]`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid request body")
	})
}

func TestLive(t *testing.T) {
	srv, _ := newHandlerTestServer(t, nil)

	w := doJSON(srv, http.MethodGet, "/live", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
}

func TestGate_BlockedClientRejected(t *testing.T) {
	srv, store := newHandlerTestServer(t, nil)

	require.NoError(t, store.Insert(context.Background(), "192.0.2.1", admission.StatusBlocked))

	// httptest requests originate from 192.0.2.1 by default.
	w := doJSON(srv, http.MethodGet, "/ip-status", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The skip path stays reachable for the blocked client.
	w = doJSON(srv, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Disabling the gate at runtime restores access.
	srv.UpdateGateSettings(middleware.GateSettings{Enabled: false})

	w = doJSON(srv, http.MethodGet, "/ip-status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
