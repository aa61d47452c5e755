package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usmanhaider/raydium-swap-engine/internal/rpc"
)

func TestIsPoolInit(t *testing.T) {
	assert.True(t, isPoolInit([]string{
		"Program 675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8 invoke [1]",
		"Program log: initialize2: InitializeInstruction2",
	}))
	assert.True(t, isPoolInit([]string{
		"Program log: init_pc_amount: 30000000000",
	}))
	assert.False(t, isPoolInit([]string{
		"Program log: ray_log: A4DGxFMuAAAA",
		"Program log: Instruction: SwapBaseIn",
	}))
	assert.False(t, isPoolInit(nil))
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "abcdefgh", shorten("abcdefghijkl"))
	assert.Equal(t, "short", shorten("short"))
}

type fakeRPC struct {
	mu         sync.Mutex
	signatures []map[string]any
	txLogs     map[string][]string
	sigCalls   int
}

func (f *fakeRPC) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()

		switch req.Method {
		case "getSignaturesForAddress":
			f.sigCalls++
			resp := map[string]any{"jsonrpc": "2.0", "id": 1, "result": f.signatures}
			_ = json.NewEncoder(w).Encode(resp)
			// Subsequent polls see nothing new.
			f.signatures = []map[string]any{}
		case "getTransaction":
			var sig string
			_ = json.Unmarshal(req.Params[0], &sig)
			logs := f.txLogs[sig]
			resp := map[string]any{
				"jsonrpc": "2.0",
				"id":      1,
				"result": map[string]any{
					"slot":      12345,
					"blockTime": 1700000000,
					"transaction": map[string]any{
						"message": map[string]any{
							"accountKeys": []string{"key1", "key2"},
						},
					},
					"meta": map[string]any{
						"err":         nil,
						"logMessages": logs,
					},
				},
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			http.Error(w, fmt.Sprintf("unexpected method %s", req.Method), http.StatusBadRequest)
		}
	}
}

func TestWatcherPoll_DetectsPoolInit(t *testing.T) {
	fake := &fakeRPC{
		signatures: []map[string]any{
			{"signature": "sigInit", "slot": 12345, "err": nil},
		},
		txLogs: map[string][]string{
			"sigInit": {"Program log: initialize2: InitializeInstruction2"},
		},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := rpc.NewClient(rpc.ClientConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	})

	w := NewWatcher(WatcherConfig{RPCClient: client})

	var events []*PoolEvent
	err := w.poll(context.Background(), func(ev *PoolEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, "sigInit", events[0].Signature)
	assert.Equal(t, int64(12345), events[0].Slot)
	assert.Equal(t, []string{"key1", "key2"}, events[0].AccountKeys)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), events[0].BlockTime)
}

func TestWatcherPoll_IgnoresSwapsAndFailures(t *testing.T) {
	fake := &fakeRPC{
		signatures: []map[string]any{
			{"signature": "sigSwap", "slot": 2, "err": nil},
			{"signature": "sigFailed", "slot": 1, "err": map[string]any{"InstructionError": []any{}}},
		},
		txLogs: map[string][]string{
			"sigSwap": {"Program log: Instruction: SwapBaseIn"},
		},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := rpc.NewClient(rpc.ClientConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	})

	w := NewWatcher(WatcherConfig{RPCClient: client})

	called := false
	err := w.poll(context.Background(), func(ev *PoolEvent) { called = true })
	require.NoError(t, err)
	assert.False(t, called)

	// The newest signature becomes the cursor even when nothing matched.
	assert.Equal(t, "sigSwap", w.lastSignature)
}

func TestWatcherStart_RejectsDoubleStart(t *testing.T) {
	fake := &fakeRPC{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := rpc.NewClient(rpc.ClientConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	})

	w := NewWatcher(WatcherConfig{
		RPCClient:    client,
		PollInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- w.Start(ctx, func(*PoolEvent) {})
	}()

	// Wait for the first poll so the running flag is definitely set.
	require.Eventually(t, func() bool {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		return fake.sigCalls > 0
	}, 2*time.Second, 5*time.Millisecond)

	err := w.Start(ctx, func(*PoolEvent) {})
	assert.ErrorContains(t, err, "already running")

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
