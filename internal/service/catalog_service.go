package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"timetable-admin/backend/internal/dto"
	"timetable-admin/backend/internal/model"
	"timetable-admin/backend/internal/repository"
)

var ErrSubjectCodeExists = errors.New("科目代码已存在")

// CatalogService 科目/教师/教室基础数据（仅维护课表项所需的最小字段）
type CatalogService interface {
	CreateSubject(ctx context.Context, req *dto.CreateSubjectRequest, callerID string) (*dto.SubjectResponse, error)
	GetSubject(ctx context.Context, id string) (*dto.SubjectResponse, error)
	ListSubjects(ctx context.Context) ([]dto.SubjectResponse, error)

	CreateFaculty(ctx context.Context, req *dto.CreateFacultyRequest, callerID string) (*dto.FacultyResponse, error)
	GetFaculty(ctx context.Context, id string) (*dto.FacultyResponse, error)
	ListFaculty(ctx context.Context) ([]dto.FacultyResponse, error)

	CreateClassroom(ctx context.Context, req *dto.CreateClassroomRequest, callerID string) (*dto.ClassroomResponse, error)
	GetClassroom(ctx context.Context, id string) (*dto.ClassroomResponse, error)
	ListClassrooms(ctx context.Context) ([]dto.ClassroomResponse, error)
}

type catalogService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCatalogService 创建 CatalogService 实例
func NewCatalogService(repo *repository.Repository, logger *zap.Logger) CatalogService {
	return &catalogService{repo: repo, logger: logger}
}

// ── Subject ──

func (s *catalogService) CreateSubject(ctx context.Context, req *dto.CreateSubjectRequest, callerID string) (*dto.SubjectResponse, error) {
	subject := &model.Subject{
		Code: strings.ToUpper(strings.TrimSpace(req.Code)),
		Name: strings.TrimSpace(req.Name),
	}
	subject.CreatedBy = model.OperatorRef(callerID)
	subject.UpdatedBy = model.OperatorRef(callerID)

	if err := s.repo.Subject.Create(ctx, subject); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSubjectCodeExists
		}
		s.logger.Error("创建科目失败", zap.Error(err))
		return nil, err
	}
	return toSubjectResponse(subject), nil
}

func (s *catalogService) GetSubject(ctx context.Context, id string) (*dto.SubjectResponse, error) {
	subject, err := s.repo.Subject.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrSubjectNotFound)
	}
	return toSubjectResponse(subject), nil
}

func (s *catalogService) ListSubjects(ctx context.Context) ([]dto.SubjectResponse, error) {
	list, err := s.repo.Subject.List(ctx)
	if err != nil {
		s.logger.Error("列出科目失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.SubjectResponse, 0, len(list))
	for i := range list {
		result = append(result, *toSubjectResponse(&list[i]))
	}
	return result, nil
}

// ── Faculty ──

func (s *catalogService) CreateFaculty(ctx context.Context, req *dto.CreateFacultyRequest, callerID string) (*dto.FacultyResponse, error) {
	faculty := &model.Faculty{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
	}
	faculty.CreatedBy = model.OperatorRef(callerID)
	faculty.UpdatedBy = model.OperatorRef(callerID)

	if err := s.repo.Faculty.Create(ctx, faculty); err != nil {
		s.logger.Error("创建教师失败", zap.Error(err))
		return nil, err
	}
	return toFacultyResponse(faculty), nil
}

func (s *catalogService) GetFaculty(ctx context.Context, id string) (*dto.FacultyResponse, error) {
	faculty, err := s.repo.Faculty.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrFacultyNotFound)
	}
	return toFacultyResponse(faculty), nil
}

func (s *catalogService) ListFaculty(ctx context.Context) ([]dto.FacultyResponse, error) {
	list, err := s.repo.Faculty.List(ctx)
	if err != nil {
		s.logger.Error("列出教师失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.FacultyResponse, 0, len(list))
	for i := range list {
		result = append(result, *toFacultyResponse(&list[i]))
	}
	return result, nil
}

// ── Classroom ──

func (s *catalogService) CreateClassroom(ctx context.Context, req *dto.CreateClassroomRequest, callerID string) (*dto.ClassroomResponse, error) {
	classroom := &model.Classroom{
		RoomNumber: strings.TrimSpace(req.RoomNumber),
		Building:   strings.TrimSpace(req.Building),
		Capacity:   req.Capacity,
	}
	classroom.CreatedBy = model.OperatorRef(callerID)
	classroom.UpdatedBy = model.OperatorRef(callerID)

	if err := s.repo.Classroom.Create(ctx, classroom); err != nil {
		s.logger.Error("创建教室失败", zap.Error(err))
		return nil, err
	}
	return toClassroomResponse(classroom), nil
}

func (s *catalogService) GetClassroom(ctx context.Context, id string) (*dto.ClassroomResponse, error) {
	classroom, err := s.repo.Classroom.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrClassroomNotFound)
	}
	return toClassroomResponse(classroom), nil
}

func (s *catalogService) ListClassrooms(ctx context.Context) ([]dto.ClassroomResponse, error) {
	list, err := s.repo.Classroom.List(ctx)
	if err != nil {
		s.logger.Error("列出教室失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.ClassroomResponse, 0, len(list))
	for i := range list {
		result = append(result, *toClassroomResponse(&list[i]))
	}
	return result, nil
}

// ── 转换 ──

func toSubjectResponse(m *model.Subject) *dto.SubjectResponse {
	return &dto.SubjectResponse{ID: m.SubjectID, Code: m.Code, Name: m.Name}
}

func toFacultyResponse(m *model.Faculty) *dto.FacultyResponse {
	return &dto.FacultyResponse{ID: m.FacultyID, Name: m.Name, Email: m.Email}
}

func toClassroomResponse(m *model.Classroom) *dto.ClassroomResponse {
	return &dto.ClassroomResponse{ID: m.ClassroomID, RoomNumber: m.RoomNumber, Building: m.Building, Capacity: m.Capacity}
}
