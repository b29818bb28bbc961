package mcp

import (
	"context"
	"fmt"
	"time"
)

// HealthStatus represents the health check result
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Profile   string    `json:"profile,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
	Checks    []Check   `json:"checks,omitempty"`
}

// Check represents an individual health check
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthCheck performs a health check on the MCP server
func (s *Server) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Profile:   s.currentProfile,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Checks:    []Check{},
	}

	storageCheck := Check{Name: "storage", Status: "ok"}
	if s.store == nil {
		storageCheck.Status = "failed"
		storageCheck.Error = "profile store not initialized"
		status.Status = "unhealthy"
	}
	status.Checks = append(status.Checks, storageCheck)

	profileCheck := Check{Name: "profile", Status: "ok"}
	if s.currentProfile == "" {
		profileCheck.Status = "warning"
		profileCheck.Error = "no profile loaded"
		if status.Status == "healthy" {
			status.Status = "degraded"
		}
	} else if sess, exists := s.sessions[s.currentProfile]; !exists || sess == nil {
		profileCheck.Status = "failed"
		profileCheck.Error = "profile not accessible"
		status.Status = "unhealthy"
	}
	status.Checks = append(status.Checks, profileCheck)

	apiCheck := Check{Name: "attio_connection", Status: "ok"}
	if sess, exists := s.sessions[s.currentProfile]; s.currentProfile != "" && exists && sess != nil {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := sess.client.TestConnection(ctx); err != nil {
			apiCheck.Status = "failed"
			apiCheck.Error = fmt.Sprintf("connection test failed: %v", err)
			status.Status = "unhealthy"
		}
	} else {
		apiCheck.Status = "skipped"
		apiCheck.Error = "no active profile"
	}
	status.Checks = append(status.Checks, apiCheck)

	auditCheck := Check{Name: "audit_logger", Status: "ok"}
	if s.logger == nil {
		auditCheck.Status = "warning"
		auditCheck.Error = "audit logging disabled"
		if status.Status == "healthy" {
			status.Status = "degraded"
		}
	}
	status.Checks = append(status.Checks, auditCheck)

	return status, nil
}

// handleHealthCheck processes health check requests via MCP
func (s *Server) handleHealthCheck(ctx context.Context) (interface{}, error) {
	health, err := s.HealthCheck(ctx)
	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{
		"status":    health.Status,
		"timestamp": health.Timestamp.Format(time.RFC3339),
		"uptime":    health.Uptime,
		"profile":   health.Profile,
	}

	if health.Status != "healthy" {
		checks := make(map[string]interface{})
		for _, check := range health.Checks {
			info := map[string]string{"status": check.Status}
			if check.Error != "" {
				info["error"] = check.Error
			}
			checks[check.Name] = info
		}
		result["checks"] = checks
	}

	return result, nil
}
