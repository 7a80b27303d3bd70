package api

import (
	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"
)

// browserWSHandler upgrades GET /ws/browser and hands the connection to the
// ingest hub. Origin checking follows the configured allowlist; with no
// patterns configured only same-origin connections are accepted.
func (s *Server) browserWSHandler(c *echo.Context) error {
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: s.cfg.Server.AllowedWSOrigins,
	})
	if err != nil {
		return err
	}

	// HandleConnection blocks until the WebSocket closes.
	s.hub.HandleConnection(c.Request().Context(), conn)
	return nil
}
