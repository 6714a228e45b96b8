// Package mcptypes defines shared types and interfaces for the MCP
// server and middleware components. This file contains core data structures
// used across different packages to prevent import cycles.
// file: internal/mcptypes/types.go
package mcptypes

import (
	"encoding/json"
)

// --- Core MCP Data Structures ---.

// Implementation describes the name and version of an MCP client or server.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientCapabilities describes features supported by the client.
type ClientCapabilities struct {
	Roots    *RootsCapability    `json:"roots,omitempty"`
	Sampling *SamplingCapability `json:"sampling,omitempty"`
}

// RootsCapability indicates client support for filesystem roots.
type RootsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// SamplingCapability indicates client support for LLM sampling requests.
type SamplingCapability struct{}

// ServerCapabilities describes features supported by the server.
type ServerCapabilities struct {
	Tools   *ToolsCapability   `json:"tools,omitempty"`
	Logging *LoggingCapability `json:"logging,omitempty"`
}

// ToolsCapability indicates server support for tools.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// LoggingCapability indicates server support for logging.
type LoggingCapability struct{}

// InitializeRequest represents the parameters for the 'initialize' request.
type InitializeRequest struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ClientInfo      Implementation     `json:"clientInfo"`
	Capabilities    ClientCapabilities `json:"capabilities"`
}

// InitializeResult represents the successful result of an 'initialize' request.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ServerInfo      *Implementation    `json:"serverInfo"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	Instructions    string             `json:"instructions,omitempty"`
}

// Tool represents a tool that the server offers to the client.
type Tool struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	InputSchema json.RawMessage  `json:"inputSchema"`
	Annotations *ToolAnnotations `json:"annotations,omitempty"`
}

// ToolAnnotations contains additional information about a tool.
type ToolAnnotations struct {
	Title           string `json:"title,omitempty"`
	ReadOnlyHint    bool   `json:"readOnlyHint,omitempty"`
	IdempotentHint  bool   `json:"idempotentHint,omitempty"`
	OpenWorldHint   bool   `json:"openWorldHint,omitempty"`
	DestructiveHint bool   `json:"destructiveHint,omitempty"`
}

// ListToolsResult represents the successful result of a 'tools/list' request.
type ListToolsResult struct {
	Tools      []Tool `json:"tools"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// CallToolRequest represents the parameters for the 'tools/call' request.
type CallToolRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"` // Kept raw; specific args parsed by the tool handler.
}

// CallToolResult represents the result of a tool call. Tool-level failures are
// reported here via IsError, not as JSON-RPC protocol errors.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// --- Content Types ---.

// Content represents a content item in a message.
// This is an interface fulfilled by specific content types like TextContent.
type Content interface {
	GetType() string
}

// TextContent represents a text content item.
// Implements the Content interface.
type TextContent struct {
	Type string `json:"type"` // Should always be "text".
	Text string `json:"text"`
}

// GetType returns the type of content ("text").
func (t TextContent) GetType() string {
	return "text"
}

// NewTextContent builds a text content item.
func NewTextContent(text string) TextContent {
	return TextContent{Type: "text", Text: text}
}

// --- JSON-RPC Error Structures ---

// JSONRPCErrorPayload represents the 'error' object in a JSON-RPC error response.
type JSONRPCErrorPayload struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// JSONRPCErrorContainer represents the full JSON-RPC error response object.
type JSONRPCErrorContainer struct {
	JSONRPC string              `json:"jsonrpc"` // Should always be "2.0".
	Error   JSONRPCErrorPayload `json:"error"`
	ID      json.RawMessage     `json:"id"` // Can be string, number, or null.
}
