package handlers

import (
	"errors"
	"io"
	"net/http"

	"dualtodo/internal/dto"
	"dualtodo/internal/service"
	"dualtodo/internal/utils"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ContextKeyRequestID is the gin context key holding the request id.
const ContextKeyRequestID = "request_id"

type TodoHandler struct {
	svc *service.TodoService
	log *log.Entry
}

func NewTodoHandler(svc *service.TodoService, logger *log.Logger) *TodoHandler {
	return &TodoHandler{svc: svc, log: logger.WithField("backend", svc.Backend())}
}

// Register mounts the CRUD routes on g.
func (h *TodoHandler) Register(g *gin.RouterGroup) {
	g.POST("", h.Create)
	g.POST("/", h.Create)
	g.GET("", h.List)
	g.GET("/", h.List)
	g.GET("/by-due-date", h.ListByDueDate)
	g.GET("/:id", h.GetByID)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// Create godoc
// @Summary      Create a todo
// @Tags         todos
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateTodoRequest  true  "Todo body"
// @Success      201   {object}  dto.TodoResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /todo [post]
// @Router       /todoSql [post]
func (h *TodoHandler) Create(c *gin.Context) {
	var req dto.CreateTodoRequest
	if !h.bind(c, "create", &req) {
		return
	}
	t, err := h.svc.Create(c.Request.Context(), req.ToPatch())
	if err != nil {
		h.writeError(c, "create", err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewTodoResponse(t))
}

// List godoc
// @Summary      List all todos
// @Tags         todos
// @Produce      json
// @Success      200  {array}   dto.TodoResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /todo [get]
// @Router       /todoSql [get]
func (h *TodoHandler) List(c *gin.Context) {
	list, err := h.svc.ListAll(c.Request.Context())
	if err != nil {
		h.writeError(c, "list", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTodoResponses(list))
}

// ListByDueDate godoc
// @Summary      List todos due on a UTC day
// @Tags         todos
// @Produce      json
// @Param        dueDateUtc  query     string  true  "Date (YYYY-MM-DD) or RFC3339 datetime"
// @Success      200         {array}   dto.TodoResponse
// @Failure      400         {object}  dto.ErrorResponse
// @Failure      500         {object}  dto.ErrorResponse
// @Router       /todo/by-due-date [get]
// @Router       /todoSql/by-due-date [get]
func (h *TodoHandler) ListByDueDate(c *gin.Context) {
	list, err := h.svc.ListByDueDate(c.Request.Context(), c.Query("dueDateUtc"))
	if err != nil {
		h.writeError(c, "list_by_due_date", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTodoResponses(list))
}

// GetByID godoc
// @Summary      Get a todo by ID
// @Tags         todos
// @Produce      json
// @Param        id   path      string  true  "Todo ID"
// @Success      200  {object}  dto.TodoResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /todo/{id} [get]
// @Router       /todoSql/{id} [get]
func (h *TodoHandler) GetByID(c *gin.Context) {
	t, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "get", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTodoResponse(t))
}

// Update godoc
// @Summary      Partially update a todo
// @Tags         todos
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true  "Todo ID"
// @Param        body  body      dto.UpdateTodoRequest  true  "Fields to change"
// @Success      200   {object}  dto.TodoResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /todo/{id} [patch]
// @Router       /todoSql/{id} [patch]
func (h *TodoHandler) Update(c *gin.Context) {
	var req dto.UpdateTodoRequest
	if !h.bind(c, "update", &req) {
		return
	}
	t, err := h.svc.UpdateByID(c.Request.Context(), c.Param("id"), req.ToPatch())
	if err != nil {
		h.writeError(c, "update", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTodoResponse(t))
}

// Delete godoc
// @Summary      Delete a todo
// @Tags         todos
// @Produce      json
// @Param        id   path      string  true  "Todo ID"
// @Success      200  {object}  dto.TodoResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /todo/{id} [delete]
// @Router       /todoSql/{id} [delete]
func (h *TodoHandler) Delete(c *gin.Context) {
	t, err := h.svc.DeleteByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "delete", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTodoResponse(t))
}

// bind decodes the JSON body into req. An empty body leaves req zero.
// Decoder details are logged, the client gets a fixed message.
func (h *TodoHandler) bind(c *gin.Context, op string, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	msg := "invalid request body"
	if errors.Is(err, utils.ErrInvalidTimestamp) {
		msg = "dueDateUtc must be a date (YYYY-MM-DD) or RFC3339 datetime"
	}
	h.entry(c, op).WithError(err).Warn("invalid request body")
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: msg})
	return false
}

// writeError maps the service error taxonomy onto status codes. Causes are logged, not returned.
func (h *TodoHandler) writeError(c *gin.Context, op string, err error) {
	var (
		verr *service.ValidationError
		nerr *service.NotFoundError
		perr *service.PersistenceError
	)
	entry := h.entry(c, op).WithError(err)
	switch {
	case errors.As(err, &verr):
		entry.Warn("validation failed")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: verr.Msg})
	case errors.As(err, &nerr):
		entry.Warn("todo not found")
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: nerr.Error()})
	case errors.As(err, &perr):
		entry.Error("store failure")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: perr.Msg})
	default:
		entry.Error("unexpected error")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Server Error"})
	}
}

func (h *TodoHandler) entry(c *gin.Context, op string) *log.Entry {
	fields := log.Fields{"op": op}
	if id := c.Param("id"); id != "" {
		fields["id"] = id
	}
	if rid := c.GetString(ContextKeyRequestID); rid != "" {
		fields["request_id"] = rid
	}
	return h.log.WithFields(fields)
}
