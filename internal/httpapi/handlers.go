package httpapi

import (
	"net/http"
	"strconv"

	"github.com/Aamm5845/residentone-workflow-sub002/internal/core"
	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
	"github.com/gin-gonic/gin"
)

// envelope is the success body of mutations: the written value and any
// non-blocking rule violations.
type envelope struct {
	Data       any                `json:"data"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

type createTemplateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type addSectionRequest struct {
	Name string `json:"name" binding:"required"`
}

type itemRequest struct {
	Name         string               `json:"name" binding:"required"`
	Category     string               `json:"category"`
	Description  string               `json:"description"`
	LogicOptions []domain.LogicOption `json:"logic_options"`
}

func (r itemRequest) definition() core.ItemDefinition {
	return core.ItemDefinition{Name: r.Name, Category: r.Category, Description: r.Description}
}

type instantiateRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
}

type visibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

type logicOptionRequest struct {
	OptionID string `json:"option_id" binding:"required"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type notesRequest struct {
	Notes *string `json:"notes" binding:"required"`
}

type importRequest struct {
	Key string `json:"key" binding:"required"`
}

// bind decodes the JSON body and writes a 400 when it does not fit.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abortJSON(c, http.StatusBadRequest, string(domain.KindValidation), err.Error())
		return false
	}
	return true
}

func (s *server) respond(c *gin.Context, status int, data any, res domain.Result, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(status, envelope{Data: data, Violations: res.Violations})
}

func (s *server) listTemplates(c *gin.Context) {
	out, err := s.workflow.ListTemplates(c.Request.Context())
	s.respond(c, http.StatusOK, out, domain.Result{}, err)
}

func (s *server) createTemplate(c *gin.Context) {
	var req createTemplateRequest
	if !bind(c, &req) {
		return
	}
	out, res, err := s.workflow.CreateTemplate(c.Request.Context(), req.Name, req.Description)
	s.respond(c, http.StatusCreated, out, res, err)
}

func (s *server) getTemplate(c *gin.Context) {
	out, err := s.workflow.GetTemplate(c.Request.Context(), c.Param("templateID"))
	s.respond(c, http.StatusOK, out, domain.Result{}, err)
}

func (s *server) addSection(c *gin.Context) {
	var req addSectionRequest
	if !bind(c, &req) {
		return
	}
	out, res, err := s.workflow.AddSection(c.Request.Context(), c.Param("templateID"), req.Name)
	s.respond(c, http.StatusCreated, out, res, err)
}

func (s *server) addItem(c *gin.Context) {
	var req itemRequest
	if !bind(c, &req) {
		return
	}
	out, res, err := s.workflow.AddItem(c.Request.Context(), c.Param("sectionID"), req.definition(), req.LogicOptions)
	s.respond(c, http.StatusCreated, out, res, err)
}

func (s *server) updateItem(c *gin.Context) {
	var req itemRequest
	if !bind(c, &req) {
		return
	}
	out, res, err := s.workflow.UpdateItem(c.Request.Context(), c.Param("itemID"), req.definition(), req.LogicOptions)
	s.respond(c, http.StatusOK, out, res, err)
}

func (s *server) listArchives(c *gin.Context) {
	out, err := s.archive.List(c.Request.Context(), c.Param("templateID"))
	s.respond(c, http.StatusOK, out, domain.Result{}, err)
}

func (s *server) exportTemplate(c *gin.Context) {
	key, err := s.archive.Export(c.Request.Context(), c.Param("templateID"))
	s.respond(c, http.StatusCreated, gin.H{"key": key}, domain.Result{}, err)
}

func (s *server) importArchive(c *gin.Context) {
	var req importRequest
	if !bind(c, &req) {
		return
	}
	out, err := s.archive.Import(c.Request.Context(), req.Key)
	s.respond(c, http.StatusCreated, out, domain.Result{}, err)
}

func (s *server) instantiate(c *gin.Context) {
	var req instantiateRequest
	if !bind(c, &req) {
		return
	}
	out, res, err := s.workflow.Instantiate(c.Request.Context(), c.Param("roomID"), req.TemplateID)
	s.respond(c, http.StatusCreated, out, res, err)
}

func (s *server) roomState(c *gin.Context) {
	includeHidden := false
	if raw := c.Query("include_hidden"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			abortJSON(c, http.StatusBadRequest, string(domain.KindValidation), "include_hidden must be a boolean")
			return
		}
		includeHidden = v
	}
	out, err := s.workflow.GetRoomState(c.Request.Context(), c.Param("roomID"), includeHidden)
	s.respond(c, http.StatusOK, out, domain.Result{}, err)
}

func (s *server) progress(c *gin.Context) {
	out, err := s.workflow.ComputeProgress(c.Request.Context(), c.Param("roomID"))
	s.respond(c, http.StatusOK, out, domain.Result{}, err)
}

func (s *server) setVisibility(c *gin.Context) {
	var req visibilityRequest
	if !bind(c, &req) {
		return
	}
	out, res, err := s.workflow.SetVisibility(c.Request.Context(), c.Param("itemID"), *req.Visible)
	s.respond(c, http.StatusOK, out, res, err)
}

func (s *server) applyLogicOption(c *gin.Context) {
	var req logicOptionRequest
	if !bind(c, &req) {
		return
	}
	out, res, err := s.workflow.ApplyLogicOption(c.Request.Context(), c.Param("itemID"), req.OptionID)
	s.respond(c, http.StatusOK, out, res, err)
}

func (s *server) clearLogicOption(c *gin.Context) {
	out, res, err := s.workflow.ClearLogicOption(c.Request.Context(), c.Param("itemID"))
	s.respond(c, http.StatusOK, out, res, err)
}

func (s *server) listExpansions(c *gin.Context) {
	out, err := s.workflow.ListExpansions(c.Request.Context(), c.Param("itemID"))
	s.respond(c, http.StatusOK, out, domain.Result{}, err)
}

func (s *server) setStatus(c *gin.Context) {
	var req statusRequest
	if !bind(c, &req) {
		return
	}
	out, res, err := s.workflow.SetStatus(c.Request.Context(), c.Param("itemID"), domain.Status(req.Status))
	s.respond(c, http.StatusOK, out, res, err)
}

func (s *server) setNotes(c *gin.Context) {
	var req notesRequest
	if !bind(c, &req) {
		return
	}
	out, res, err := s.workflow.SetNotes(c.Request.Context(), c.Param("itemID"), *req.Notes)
	s.respond(c, http.StatusOK, out, res, err)
}
