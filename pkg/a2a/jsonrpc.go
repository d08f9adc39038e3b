package a2a

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const (
	MethodMessageStream = "message/stream"
	MethodMessageSend   = "message/send"
	MethodTasksGet      = "tasks/get"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *JSONRPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

const (
	ErrCodeParse        = -32700
	ErrCodeInvalidReq   = -32600
	ErrCodeNotFound     = -32601
	ErrCodeInternal     = -32603
	ErrCodeTaskNotFound = -32001
)

type MessageSendParams struct {
	Message       Message               `json:"message"`
	Configuration *MessageConfiguration `json:"configuration,omitempty"`
}

type MessageConfiguration struct {
	Blocking bool `json:"blocking"`
}

type TaskQueryParams struct {
	ID             string `json:"id"`
	IncludeHistory bool   `json:"includeHistory"`
}

// NewRequest wraps params in a JSON-RPC 2.0 envelope with a fresh request id.
// The request id is unrelated to any message id inside params.
func NewRequest(method string, params any) (JSONRPCRequest, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return JSONRPCRequest{}, fmt.Errorf("a2a: marshaling %s params: %w", method, err)
	}
	return JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  raw,
	}, nil
}

// restStreamRequest is the body for the REST streaming path, which keeps the
// JSON-RPC shape without method or version.
type restStreamRequest struct {
	ID     string            `json:"id"`
	Params MessageSendParams `json:"params"`
}

func NewJSONRPCResponse(id any, result any) (JSONRPCResponse, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return JSONRPCResponse{}, err
	}
	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  raw,
	}, nil
}

func NewJSONRPCError(id any, code int, message string) JSONRPCResponse {
	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	}
}
