package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/memory"
	"github.com/hupe1980/agenttask/runner"
	"github.com/hupe1980/agenttask/tool"
)

type runRequest struct {
	Prompt         string `form:"prompt" json:"prompt"`
	ConversationID string `form:"conversation_id" json:"conversation_id"`
	DeviceID       string `form:"device_id" json:"device_id"`
	Updates        bool   `form:"updates" json:"updates"`
	// Timeout is in seconds.
	Timeout int `form:"timeout" json:"timeout"`
}

func (r runRequest) startRequest() runner.StartRequest {
	req := runner.StartRequest{
		Prompt:  r.Prompt,
		Timeout: time.Duration(r.Timeout) * time.Second,
		Updates: r.Updates,
	}
	if r.ConversationID != "" || r.DeviceID != "" {
		req.Notify = &core.NotifyTarget{ConversationID: r.ConversationID, DeviceID: r.DeviceID}
	}
	return req
}

type memoryRequest struct {
	Text      string  `form:"text" json:"text"`
	Prompt    string  `form:"prompt" json:"prompt"`
	Count     int     `form:"count" json:"count"`
	Threshold float32 `form:"threshold" json:"threshold"`
}

type interveneRequest struct {
	Message string `form:"message" json:"message"`
}

type resultResponse struct {
	Result string `json:"result"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) runAgent(c *gin.Context) {
	req := runRequest{Timeout: int(s.opts.DefaultTimeout / time.Second)}
	if !bind(c, &req) {
		return
	}

	res, err := s.backend.Runner().Run(c.Request.Context(), req.startRequest())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resultResponse{Result: res.Response})
}

func (s *Server) runAgentAsync(c *gin.Context) {
	req := runRequest{Timeout: int(s.opts.DefaultTimeout / time.Second)}
	if !bind(c, &req) {
		return
	}

	id, err := s.backend.Runner().Start(c.Request.Context(), req.startRequest())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resultResponse{Result: fmt.Sprintf("Agent %s started on the task", id)})
}

func (s *Server) remember(c *gin.Context) {
	var req memoryRequest
	if !bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		abort(c, http.StatusBadRequest, "text is required")
		return
	}
	s.respond(c)(s.backend.Remember(c.Request.Context(), req.Text))
}

func (s *Server) forget(c *gin.Context) {
	req := memoryRequest{Count: memory.DefaultCount, Threshold: memory.DefaultThreshold}
	if !bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		abort(c, http.StatusBadRequest, "prompt is required")
		return
	}
	s.respond(c)(s.backend.Forget(c.Request.Context(), req.Prompt))
}

func (s *Server) recall(c *gin.Context) {
	req := memoryRequest{Count: memory.DefaultCount, Threshold: memory.DefaultThreshold}
	if !bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		abort(c, http.StatusBadRequest, "prompt is required")
		return
	}
	s.respond(c)(s.backend.Recall(c.Request.Context(), req.Prompt, req.Count, req.Threshold))
}

func (s *Server) research(c *gin.Context) {
	var req memoryRequest
	if !bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		abort(c, http.StatusBadRequest, "Prompt is required for research")
		return
	}
	s.respond(c)(s.backend.Research(c.Request.Context(), req.Prompt))
}

func (s *Server) perplexitySearch(c *gin.Context) {
	var req memoryRequest
	if !bind(c, &req) {
		return
	}
	s.respond(c)(s.backend.OnlineSearch(c.Request.Context(), req.Prompt))
}

func (s *Server) listTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": s.backend.Runner().List()})
}

func (s *Server) getTask(c *gin.Context) {
	info, ok := s.backend.Runner().Get(c.Param("id"))
	if !ok {
		s.fail(c, runner.ErrTaskNotFound)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) cancelTask(c *gin.Context) {
	s.taskAction(c, s.backend.Runner().Cancel(c.Param("id")), "cancelled")
}

func (s *Server) interveneTask(c *gin.Context) {
	var req interveneRequest
	if !bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		abort(c, http.StatusBadRequest, "message is required")
		return
	}
	s.taskAction(c, s.backend.Runner().Intervene(c.Param("id"), req.Message), "intervention queued")
}

func (s *Server) pauseTask(c *gin.Context) {
	s.taskAction(c, s.backend.Runner().Pause(c.Param("id")), "paused")
}

func (s *Server) resumeTask(c *gin.Context) {
	s.taskAction(c, s.backend.Runner().Resume(c.Param("id")), "resumed")
}

func (s *Server) taskAction(c *gin.Context, err error, done string) {
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resultResponse{Result: done})
}

// respond adapts a (message, error) pair into a response.
func (s *Server) respond(c *gin.Context) func(string, error) {
	return func(msg string, err error) {
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, resultResponse{Result: msg})
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var toolErr *tool.ToolError
	switch {
	case errors.Is(err, runner.ErrTaskNotFound):
		abort(c, http.StatusNotFound, err.Error())
	case errors.Is(err, runner.ErrEmptyPrompt),
		errors.As(err, &toolErr) && toolErr.Code == tool.CodeValidation:
		abort(c, http.StatusBadRequest, err.Error())
	default:
		abort(c, http.StatusInternalServerError, err.Error())
	}
}

// bind decodes query parameters for GET and the JSON body for POST on top
// of the defaults already set in dst.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBind(dst); err != nil {
		abort(c, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return false
	}
	return true
}

func abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, errorResponse{Detail: detail})
}
