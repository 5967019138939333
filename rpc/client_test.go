package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      json.RawMessage   `json:"id"`
}

// newTestNode runs a single-method JSON-RPC endpoint. The handler returns the
// result object and the HTTP status to reply with.
func newTestNode(t *testing.T, handler func(req rpcRequest) (interface{}, int)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "2.0", req.JSONRPC)

		result, status := handler(req)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		}))
	}))
	t.Cleanup(server.Close)
	return server
}

func dialTestNode(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := Dial(server.URL)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestNodeInfo(t *testing.T) {
	server := newTestNode(t, func(req rpcRequest) (interface{}, int) {
		require.Equal(t, "admin_nodeInfo", req.Method)
		require.Empty(t, req.Params)
		return map[string]interface{}{
			"id":    "44826a5d6a55f88a18298bca4773fca5749cdc3a5c9f308aa7d810e9b31123f3",
			"name":  "Geth/v1.10.17/linux-amd64",
			"enode": "enode://abc@1.2.3.4:30303?discport=0",
			"ip":    "1.2.3.4",
			"ports": map[string]int{"discovery": 0, "listener": 30303},
		}, http.StatusOK
	})

	info, err := dialTestNode(t, server).NodeInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "enode://abc@1.2.3.4:30303?discport=0", info.Enode)
	assert.Equal(t, "Geth/v1.10.17/linux-amd64", info.Name)
	assert.Equal(t, 30303, info.Ports.Listener)
	assert.Equal(t, 0, info.Ports.Discovery)
}

func TestNodeInfoMissingEnode(t *testing.T) {
	server := newTestNode(t, func(req rpcRequest) (interface{}, int) {
		return map[string]interface{}{"id": "deadbeef"}, http.StatusOK
	})

	_, err := dialTestNode(t, server).NodeInfo(context.Background())
	require.ErrorIs(t, err, ErrMissingEnode)
}

func TestAddPeer(t *testing.T) {
	const peerURL = "enode://abc@1.2.3.4:30303"

	server := newTestNode(t, func(req rpcRequest) (interface{}, int) {
		require.Equal(t, "admin_addPeer", req.Method)
		require.Len(t, req.Params, 1)
		var got string
		require.NoError(t, json.Unmarshal(req.Params[0], &got))
		require.Equal(t, peerURL, got)
		return true, http.StatusOK
	})

	accepted, err := dialTestNode(t, server).AddPeer(context.Background(), peerURL)
	require.NoError(t, err)
	assert.True(t, accepted)
}

func TestAddTrustedPeer(t *testing.T) {
	const peerURL = "enode://abc@127.0.0.1:64480"

	server := newTestNode(t, func(req rpcRequest) (interface{}, int) {
		require.Equal(t, "admin_addTrustedPeer", req.Method)
		require.Len(t, req.Params, 1)
		var got string
		require.NoError(t, json.Unmarshal(req.Params[0], &got))
		require.Equal(t, peerURL, got)
		return true, http.StatusOK
	})

	accepted, err := dialTestNode(t, server).AddTrustedPeer(context.Background(), peerURL)
	require.NoError(t, err)
	assert.True(t, accepted)
}

func TestPeerCount(t *testing.T) {
	server := newTestNode(t, func(req rpcRequest) (interface{}, int) {
		require.Equal(t, "net_peerCount", req.Method)
		return "0x2", http.StatusOK
	})

	count, err := dialTestNode(t, server).PeerCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestHTTPErrorPropagates(t *testing.T) {
	server := newTestNode(t, func(req rpcRequest) (interface{}, int) {
		return nil, http.StatusInternalServerError
	})

	client := dialTestNode(t, server)

	_, err := client.NodeInfo(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin_nodeInfo")

	_, err = client.PeerCount(context.Background())
	require.Error(t, err)
}
