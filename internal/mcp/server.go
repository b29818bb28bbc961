// Package mcp implements the MCP stdio server exposing Attio CRM
// tools with field, filter and value normalization applied to every
// request before it reaches the API.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/attio-labs/attio-mcp/internal/attio"
	"github.com/attio-labs/attio-mcp/internal/audit"
	"github.com/attio-labs/attio-mcp/internal/normalize"
	"github.com/attio-labs/attio-mcp/internal/storage"
	"github.com/attio-labs/attio-mcp/pkg/types"
)

const serverVersion = "1.0.0"

// session bundles the API client for a loaded profile with the schema
// cache and value transformer built on top of it.
type session struct {
	client      AttioClient
	schema      *normalize.SchemaCache
	transformer *normalize.Transformer
}

// Server implements the MCP protocol server
type Server struct {
	store          storage.ProfileStore
	sessions       map[string]*session
	currentProfile string
	logger         *audit.Logger
	resolver       *normalize.Resolver
	options        *ServerOptions
	rateLimiter    *RateLimiter
	newClient      func(apiKey string) (AttioClient, error)
	sessionID      string
	startTime      time.Time
	mu             sync.RWMutex
}

// ServerOptions configuration for the server
type ServerOptions struct {
	Timeout     time.Duration
	ProfileName string
	RateLimit   int // requests per minute
	Mappings    *normalize.Mappings
}

// NewServer creates a new MCP server
func NewServer(store storage.ProfileStore, logger *audit.Logger, options *ServerOptions) *Server {
	if options == nil {
		options = &ServerOptions{
			Timeout:   30 * time.Second,
			RateLimit: 60,
		}
	}
	if options.RateLimit <= 0 {
		options.RateLimit = 60
	}

	s := &Server{
		store:       store,
		sessions:    make(map[string]*session),
		logger:      logger,
		resolver:    normalize.NewResolver(options.Mappings),
		options:     options,
		rateLimiter: NewRateLimiter(options.RateLimit),
		sessionID:   uuid.NewString(),
		startTime:   time.Now(),
	}
	s.newClient = func(apiKey string) (AttioClient, error) {
		return attio.NewClient(apiKey, attio.WithLogger(logger))
	}
	return s
}

// ReplaceMappings swaps the field alias dictionaries, typically after
// a config file reload.
func (s *Server) ReplaceMappings(m *normalize.Mappings) {
	s.resolver.ReplaceMappings(m)
	s.logger.LogSystem(audit.EventConfigReload, "Field mappings reloaded", nil)
}

// Start starts the MCP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.LogSystem(audit.EventStartup, "MCP server started", map[string]interface{}{
		"session_id": s.sessionID,
		"profile":    s.options.ProfileName,
	})

	if s.options.ProfileName != "" {
		if err := s.loadProfile(ctx, s.options.ProfileName); err != nil {
			return fmt.Errorf("failed to load profile %s: %w", s.options.ProfileName, err)
		}
		s.mu.Lock()
		s.currentProfile = s.options.ProfileName
		s.mu.Unlock()
	}

	reader := bufio.NewReader(os.Stdin)
	writer := bufio.NewWriter(os.Stdout)
	defer writer.Flush()

	for {
		select {
		case <-ctx.Done():
			s.logger.LogSystem(audit.EventShutdown, "MCP server stopped", map[string]interface{}{
				"session_id": s.sessionID,
				"duration":   time.Since(s.startTime).String(),
			})
			return ctx.Err()
		default:
			line, err := reader.ReadBytes('\n')
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return fmt.Errorf("failed to read message: %w", err)
			}

			if err := s.processMessage(ctx, line, writer); err != nil {
				s.logger.LogError("mcp", err, map[string]interface{}{
					"message": string(line),
				})
			}
		}
	}
}

// processMessage processes a single MCP message
func (s *Server) processMessage(ctx context.Context, data []byte, writer *bufio.Writer) error {
	var request types.MCPRequest
	if err := json.Unmarshal(data, &request); err != nil {
		_ = s.sendErrorResponse(writer, nil, -32700, "Parse error", nil)
		return fmt.Errorf("failed to parse request: %w", err)
	}

	if !s.rateLimiter.Allow() {
		_ = s.sendErrorResponse(writer, request.ID, -32029, "Rate limit exceeded", nil)
		return fmt.Errorf("rate limit exceeded")
	}

	switch request.Method {
	case "initialize":
		return s.handleInitialize(request, writer)
	case "initialized", "notifications/initialized":
		// Notification, no response.
		return nil
	case "tools/list":
		return s.handleToolsList(request, writer)
	case "tools/call":
		return s.handleToolCall(ctx, request, writer)
	case "sessions/list":
		return s.handleSessionsList(request, writer)
	case "sessions/create":
		return s.handleSessionCreate(ctx, request, writer)
	case "sessions/end":
		return s.handleSessionEnd(request, writer)
	default:
		_ = s.sendErrorResponse(writer, request.ID, -32601, "Method not found", nil)
		return fmt.Errorf("unknown method: %s", request.Method)
	}
}

// loadProfile builds an API session for the given profile
func (s *Server) loadProfile(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[name]; exists {
		return nil
	}

	profile, err := s.store.Get(name)
	if err != nil {
		return fmt.Errorf("failed to get profile: %w", err)
	}

	client, err := s.newClient(profile.Config["api_key"])
	if err != nil {
		return fmt.Errorf("failed to create Attio client: %w", err)
	}

	if err := client.TestConnection(ctx); err != nil {
		return fmt.Errorf("failed to connect to Attio: %w", err)
	}

	// The registry feeds resource-type canonicalization; without it
	// every custom object would be rejected.
	if err := client.RefreshObjects(ctx); err != nil {
		return fmt.Errorf("failed to load workspace objects: %w", err)
	}

	schema, err := normalize.NewSchemaCache(client)
	if err != nil {
		return fmt.Errorf("failed to build schema cache: %w", err)
	}

	s.sessions[name] = &session{
		client:      client,
		schema:      schema,
		transformer: normalize.NewTransformer(schema),
	}
	return nil
}

// currentSession returns the session for the active profile
func (s *Server) currentSession() (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentProfile == "" {
		return nil, fmt.Errorf("no profile selected")
	}
	sess, exists := s.sessions[s.currentProfile]
	if !exists {
		return nil, fmt.Errorf("profile not loaded: %s", s.currentProfile)
	}
	return sess, nil
}

// handleInitialize handles the initialize request
func (s *Server) handleInitialize(request types.MCPRequest, writer *bufio.Writer) error {
	var params struct {
		ProtocolVersion string `json:"protocolVersion"`
		ClientInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"clientInfo"`
	}
	if request.Params != nil {
		raw, err := json.Marshal(request.Params)
		if err != nil {
			return fmt.Errorf("failed to marshal params: %w", err)
		}
		if err := json.Unmarshal(raw, &params); err != nil {
			return fmt.Errorf("failed to parse initialize params: %w", err)
		}
	}

	s.logger.LogSystem(audit.EventAccess, "Client connected", map[string]interface{}{
		"client_name":    params.ClientInfo.Name,
		"client_version": params.ClientInfo.Version,
		"protocol":       params.ProtocolVersion,
	})

	return s.sendResponse(writer, request.ID, map[string]interface{}{
		"protocolVersion": "1.0",
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{
				"list": true,
				"call": true,
			},
			"sessions": map[string]interface{}{
				"list":   true,
				"create": true,
				"end":    true,
			},
		},
		"serverInfo": map[string]interface{}{
			"name":    "attio-mcp",
			"version": serverVersion,
		},
	})
}

// handleToolsList handles the tools/list request
func (s *Server) handleToolsList(request types.MCPRequest, writer *bufio.Writer) error {
	return s.sendResponse(writer, request.ID, map[string]interface{}{
		"tools": s.getAvailableTools(),
	})
}

// handleToolCall handles the tools/call request
func (s *Server) handleToolCall(ctx context.Context, request types.MCPRequest, writer *bufio.Writer) error {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if request.Params != nil {
		raw, err := json.Marshal(request.Params)
		if err != nil {
			return fmt.Errorf("failed to marshal params: %w", err)
		}
		if err := json.Unmarshal(raw, &params); err != nil {
			return fmt.Errorf("failed to parse tool call params: %w", err)
		}
	}

	if s.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.Timeout)
		defer cancel()
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		_ = s.sendErrorResponse(writer, request.ID, -32002, err.Error(), nil)
		return err
	}
	return s.sendResponse(writer, request.ID, result)
}

// handleSessionsList handles the sessions/list request
func (s *Server) handleSessionsList(request types.MCPRequest, writer *bufio.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := s.store.List()
	sessions := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		_, loaded := s.sessions[name]
		sessions = append(sessions, map[string]interface{}{
			"id":        name,
			"name":      name,
			"is_active": name == s.currentProfile,
			"is_loaded": loaded,
		})
	}

	return s.sendResponse(writer, request.ID, map[string]interface{}{
		"sessions": sessions,
		"current":  s.currentProfile,
	})
}

// handleSessionCreate handles the sessions/create request
func (s *Server) handleSessionCreate(ctx context.Context, request types.MCPRequest, writer *bufio.Writer) error {
	var params struct {
		ProfileName string `json:"profile_name"`
	}
	if request.Params != nil {
		raw, err := json.Marshal(request.Params)
		if err != nil {
			return fmt.Errorf("failed to marshal params: %w", err)
		}
		if err := json.Unmarshal(raw, &params); err != nil {
			return fmt.Errorf("failed to parse session create params: %w", err)
		}
	}
	if params.ProfileName == "" {
		return fmt.Errorf("profile_name is required")
	}

	if err := s.loadProfile(ctx, params.ProfileName); err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	s.mu.Lock()
	s.currentProfile = params.ProfileName
	s.mu.Unlock()

	s.logger.LogSystem(audit.EventAccess, "Profile session activated", map[string]interface{}{
		"profile": params.ProfileName,
	})

	return s.sendResponse(writer, request.ID, map[string]interface{}{
		"session_id": params.ProfileName,
		"status":     "active",
	})
}

// handleSessionEnd handles the sessions/end request
func (s *Server) handleSessionEnd(request types.MCPRequest, writer *bufio.Writer) error {
	var params struct {
		ProfileName string `json:"profile_name"`
	}
	if request.Params != nil {
		raw, err := json.Marshal(request.Params)
		if err != nil {
			return fmt.Errorf("failed to marshal params: %w", err)
		}
		if err := json.Unmarshal(raw, &params); err != nil {
			return fmt.Errorf("failed to parse session end params: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ended := params.ProfileName
	if ended == "" {
		ended = s.currentProfile
	}
	delete(s.sessions, ended)
	if s.currentProfile == ended {
		s.currentProfile = ""
	}

	s.logger.LogSystem(audit.EventAccess, "Profile session ended", map[string]interface{}{
		"profile": ended,
	})

	return s.sendResponse(writer, request.ID, map[string]interface{}{
		"session_id": ended,
		"status":     "ended",
	})
}

// sendResponse sends a JSON-RPC response
func (s *Server) sendResponse(writer *bufio.Writer, id interface{}, result interface{}) error {
	return s.write(writer, types.MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

// sendErrorResponse sends a JSON-RPC error response
func (s *Server) sendErrorResponse(writer *bufio.Writer, id interface{}, code int, message string, data interface{}) error {
	return s.write(writer, types.MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &types.MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	})
}

func (s *Server) write(writer *bufio.Writer, response types.MCPResponse) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return writer.Flush()
}
