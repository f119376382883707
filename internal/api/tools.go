package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Cyclone1070/devrun/internal/orchestrator/adapter"
	"github.com/Cyclone1070/devrun/internal/tool/policy"
	"github.com/Cyclone1070/devrun/internal/tool/server"
)

func (s *Server) listTools(c echo.Context) error {
	defs := make([]adapter.ToolDefinition, 0, len(s.tools))
	for _, t := range s.tools {
		defs = append(defs, t.Definition())
	}
	return c.JSON(http.StatusOK, map[string]any{"tools": defs})
}

func (s *Server) callTool(c echo.Context) error {
	name := c.Param("name")
	tool, ok := adapter.Lookup(s.tools, name)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "unknown tool: " + name,
		})
	}

	// Body only: Bind would also copy the :name path param into the map.
	args := map[string]any{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &args); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
	}

	out, err := tool.Execute(c.Request().Context(), args)
	if err != nil {
		return c.JSON(statusFor(err), map[string]string{
			"error": err.Error(),
		})
	}
	return c.JSONBlob(http.StatusOK, []byte(out))
}

func (s *Server) listProcesses(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"processes": s.sup.Servers().List()})
}

// statusFor maps tool errors onto HTTP status codes using the marker
// methods the error types carry.
func statusFor(err error) int {
	var (
		input   interface{ InvalidInput() bool }
		timeout interface{ Timeout() bool }
	)
	switch {
	case errors.Is(err, server.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, server.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, policy.ErrPolicyViolation):
		return http.StatusForbidden
	case errors.As(err, &input) && input.InvalidInput():
		return http.StatusBadRequest
	case errors.As(err, &timeout) && timeout.Timeout():
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
