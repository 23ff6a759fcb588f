package server

import (
	"fmt"
	"io"
	"os"
)

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.writeServerInfo(os.Stdout)
}

func (s *Server) writeServerInfo(w io.Writer) {
	s.displayEndpoints(w)
	s.displayAuthInfo(w)
	s.displayRequestLimitInfo(w)
	s.displayRateLimitInfo(w)
}

func (s *Server) displayEndpoints(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Available endpoints:")
	_, _ = fmt.Fprintln(w, "  GET  /health    - Health check")
	_, _ = fmt.Fprintln(w, "  GET  /stats     - Server statistics")
	_, _ = fmt.Fprintln(w, "  GET  /ws        - Form session websocket (requires API key)")
	if s.StaticDir != "" {
		_, _ = fmt.Fprintf(w, "  GET  /*         - Static files from %s\n", s.StaticDir)
	}
}

func (s *Server) displayAuthInfo(w io.Writer) {
	if len(s.APIKeys) > 0 {
		_, _ = fmt.Fprintf(w, "API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		_, _ = fmt.Fprintln(w, "Pass 'X-API-Key: <your-key>' or '?api_key=<your-key>' when opening /ws")
	} else {
		_, _ = fmt.Fprintln(w, "API authentication: DISABLED (no API keys configured)")
		_, _ = fmt.Fprintln(w, "WARNING: form sessions are publicly accessible!")
	}
}

func (s *Server) displayRequestLimitInfo(w io.Writer) {
	if s.MaxRequestSize > 0 {
		_, _ = fmt.Fprintf(w, "Message size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		_, _ = fmt.Fprintln(w, "Message size limit: DISABLED")
	}
}

func (s *Server) displayRateLimitInfo(w io.Writer) {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		_, _ = fmt.Fprintf(w, "Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			_, _ = fmt.Fprintln(w, "  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			_, _ = fmt.Fprintln(w, "  - Per IP address rate limiting enabled")
		}
	} else {
		_, _ = fmt.Fprintln(w, "Rate limiting: DISABLED")
	}
}
