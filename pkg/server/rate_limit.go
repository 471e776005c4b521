package server

import (
	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/time/rate"
)

const (
	DefaultRateLimitRPS   = 5.0
	DefaultRateLimitBurst = 10
)

func newRateLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func (s *MCPServer) enforceRateLimit() *mcp.CallToolResult {
	if s.limiter == nil {
		return nil
	}
	if !s.limiter.Allow() {
		return mcp.NewToolResultError("rate limit exceeded")
	}
	return nil
}
