package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"timetable-admin/backend/internal/dto"
	"timetable-admin/backend/internal/service"
	"timetable-admin/backend/pkg/response"
)

// CatalogHandler 科目 / 教师 / 教室 HTTP 处理器
type CatalogHandler struct {
	catalogSvc service.CatalogService
}

// NewCatalogHandler 创建 CatalogHandler
func NewCatalogHandler(catalogSvc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc}
}

// ── 科目 ──

// ListSubjects GET /api/v1/subjects
func (h *CatalogHandler) ListSubjects(c *gin.Context) {
	list, err := h.catalogSvc.ListSubjects(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// GetSubject GET /api/v1/subjects/:id
func (h *CatalogHandler) GetSubject(c *gin.Context) {
	subject, err := h.catalogSvc.GetSubject(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}
	response.OK(c, subject)
}

// CreateSubject POST /api/v1/subjects
func (h *CatalogHandler) CreateSubject(c *gin.Context) {
	var req dto.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	subject, err := h.catalogSvc.CreateSubject(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}
	response.Created(c, subject)
}

// ── 教师 ──

// ListFaculty GET /api/v1/faculty
func (h *CatalogHandler) ListFaculty(c *gin.Context) {
	list, err := h.catalogSvc.ListFaculty(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// GetFaculty GET /api/v1/faculty/:id
func (h *CatalogHandler) GetFaculty(c *gin.Context) {
	faculty, err := h.catalogSvc.GetFaculty(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}
	response.OK(c, faculty)
}

// CreateFaculty POST /api/v1/faculty
func (h *CatalogHandler) CreateFaculty(c *gin.Context) {
	var req dto.CreateFacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	faculty, err := h.catalogSvc.CreateFaculty(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}
	response.Created(c, faculty)
}

// ── 教室 ──

// ListClassrooms GET /api/v1/classrooms
func (h *CatalogHandler) ListClassrooms(c *gin.Context) {
	list, err := h.catalogSvc.ListClassrooms(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// GetClassroom GET /api/v1/classrooms/:id
func (h *CatalogHandler) GetClassroom(c *gin.Context) {
	classroom, err := h.catalogSvc.GetClassroom(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}
	response.OK(c, classroom)
}

// CreateClassroom POST /api/v1/classrooms
func (h *CatalogHandler) CreateClassroom(c *gin.Context) {
	var req dto.CreateClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	classroom, err := h.catalogSvc.CreateClassroom(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}
	response.Created(c, classroom)
}

func (h *CatalogHandler) handleCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 17003, "科目不存在")
	case errors.Is(err, service.ErrFacultyNotFound):
		response.NotFound(c, 17004, "教师不存在")
	case errors.Is(err, service.ErrClassroomNotFound):
		response.NotFound(c, 17005, "教室不存在")
	case errors.Is(err, service.ErrSubjectCodeExists):
		response.Conflict(c, 18001, "科目代码已存在")
	default:
		response.InternalError(c)
	}
}
