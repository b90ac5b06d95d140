package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openanchor/gw-anchor-dispatcher/internal/logger"
	"github.com/openanchor/gw-anchor-dispatcher/internal/models"
)

// ActionDispatcher runs a named action against a transaction.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, method string, params json.RawMessage) (*models.GetTransactionResponse, error)
}

// NewRPCHandler returns the HTTP handler for the JSON-RPC 2.0 endpoint.
// Every action of the dispatcher is exposed as a method of the envelope;
// errors are reported with the dispatcher's code taxonomy. HTTP status is
// 200 for every well-formed envelope, including error responses.
func NewRPCHandler(dispatcher ActionDispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req models.RPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Log.Errorw("failed to decode rpc request", "error", err)
			writeRPCResponse(w, models.RPCResponse{
				JSONRPC: models.JSONRPCVersion,
				Error:   models.NewInvalidRequestError("invalid JSON request body"),
			})
			return
		}

		if req.JSONRPC != models.JSONRPCVersion {
			writeRPCResponse(w, models.RPCResponse{
				JSONRPC: models.JSONRPCVersion,
				ID:      req.ID,
				Error:   models.NewInvalidRequestError("jsonrpc version must be %s", models.JSONRPCVersion),
			})
			return
		}

		result, err := dispatcher.Dispatch(ctx, req.Method, req.Params)
		if err != nil {
			writeRPCResponse(w, models.RPCResponse{
				JSONRPC: models.JSONRPCVersion,
				ID:      req.ID,
				Error:   toRPCError(req.Method, err),
			})
			return
		}

		writeRPCResponse(w, models.RPCResponse{
			JSONRPC: models.JSONRPCVersion,
			ID:      req.ID,
			Result:  result,
		})
	}
}

// toRPCError maps a dispatcher error onto the wire taxonomy. Anything that
// is not already a typed RPC error is an infrastructure failure and is
// reported as an opaque internal error.
func toRPCError(method string, err error) *models.RPCError {
	var rpcErr *models.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	logger.Log.Errorw("action failed with internal error", "method", method, "error", err)
	return models.NewInternalError()
}

func writeRPCResponse(w http.ResponseWriter, resp models.RPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Log.Errorw("failed to encode rpc response", "error", err)
	}
}
