package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"corp_learning_backend/internal/model"
	"corp_learning_backend/internal/repository"
	"corp_learning_backend/internal/util"
	"corp_learning_backend/pkg/logger"
	"corp_learning_backend/pkg/mockapi"
	"corp_learning_backend/pkg/monitoring"
	"corp_learning_backend/pkg/tracing"

	"go.uber.org/zap"
)

type CourseRequest struct {
	Title           string `json:"title" binding:"required"`
	Description     string `json:"description"`
	Thumbnail       string `json:"thumbnail"`
	InstructorName  string `json:"instructorName"`
	InstructorTitle string `json:"instructorTitle"`
	Duration        int    `json:"duration" binding:"min=0"`
}

type ModuleRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Position    *int   `json:"position"`
}

type LessonRequest struct {
	Title    string           `json:"title" binding:"required"`
	Type     model.LessonType `json:"type" binding:"required"`
	Content  string           `json:"content"`
	Duration int              `json:"duration" binding:"min=0"`
	Position *int             `json:"position"`
}

type ReorderRequest struct {
	LessonIDs []string `json:"lessonIds" binding:"required"`
}

// learnerCourses 单个学员的已叠加进度的课程树；version 落后于目录版本时重新加载
type learnerCourses struct {
	mu      sync.Mutex
	loaded  bool
	version uint64
	order   []string
	courses map[string]*model.Course
}

type CourseService struct {
	Repo     *repository.CourseRepository
	Progress *repository.ProgressRepository
	Storage  *StorageService
	API      *mockapi.Client
	Cache    CatalogCache

	// ProbeVideo 读取视频时长，测试中可替换
	ProbeVideo func(path string) (*util.VideoInfo, error)

	mu       sync.Mutex
	version  uint64
	learners map[string]*learnerCourses
}

func NewCourseService(repo *repository.CourseRepository, progress *repository.ProgressRepository, storage *StorageService, api *mockapi.Client, cache CatalogCache) *CourseService {
	if cache == nil {
		cache = noopCache{}
	}
	return &CourseService{
		Repo:       repo,
		Progress:   progress,
		Storage:    storage,
		API:        api,
		Cache:      cache,
		ProbeVideo: util.GetVideoInfo,
		learners:   make(map[string]*learnerCourses),
	}
}

func (s *CourseService) store(userID string) *learnerCourses {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.learners[userID]
	if !ok {
		st = &learnerCourses{}
		s.learners[userID] = st
	}
	return st
}

func (s *CourseService) catalogVersion() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// catalogChanged 目录写操作后调用：清理缓存并使所有学员视图失效
func (s *CourseService) catalogChanged(ctx context.Context) {
	s.mu.Lock()
	s.version++
	s.mu.Unlock()
	s.Cache.Invalidate(ctx, cacheKeyCourses, cacheKeyReports)
}

func (s *CourseService) catalog(ctx context.Context) ([]model.Course, error) {
	var list []model.Course
	if s.Cache.Get(ctx, cacheKeyCourses, &list) {
		return list, nil
	}
	list, err := mockapi.Fetch(ctx, s.API, "GET", "/api/courses", func(ctx context.Context) ([]model.Course, error) {
		return s.Repo.ListCourses(ctx)
	})
	if err != nil {
		return nil, err
	}
	s.Cache.Set(ctx, cacheKeyCourses, list)
	return list, nil
}

// refreshLocked 调用方需持有 st.mu
func (s *CourseService) refreshLocked(ctx context.Context, userID string, st *learnerCourses) error {
	version := s.catalogVersion()
	if st.loaded && st.version == version {
		return nil
	}

	catalog, err := s.catalog(ctx)
	if err != nil {
		return err
	}
	done, err := mockapi.Fetch(ctx, s.API, "GET", "/api/progress", func(ctx context.Context) (map[string]bool, error) {
		return s.Progress.CompletedLessons(ctx, userID, "")
	})
	if err != nil {
		return err
	}
	enrolled, err := mockapi.Fetch(ctx, s.API, "GET", "/api/enrollments", func(ctx context.Context) (map[string]bool, error) {
		return s.Progress.EnrolledCourses(ctx, userID)
	})
	if err != nil {
		return err
	}

	st.order = make([]string, 0, len(catalog))
	st.courses = make(map[string]*model.Course, len(catalog))
	for i := range catalog {
		c := catalog[i].Clone()
		ApplyCompletions(c, done)
		c.Enrolled = enrolled[c.ID]
		st.order = append(st.order, c.ID)
		st.courses[c.ID] = c
	}
	st.version = version
	st.loaded = true
	return nil
}

// ListCourses 课程目录叠加学员的选课与完成进度
func (s *CourseService) ListCourses(ctx context.Context, userID string) ([]model.Course, error) {
	st := s.store(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := s.refreshLocked(ctx, userID, st); err != nil {
		return nil, err
	}
	out := make([]model.Course, 0, len(st.order))
	for _, id := range st.order {
		out = append(out, *st.courses[id].Clone())
	}
	return out, nil
}

func (s *CourseService) GetCourse(ctx context.Context, userID, courseID string) (*model.Course, error) {
	st := s.store(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := s.refreshLocked(ctx, userID, st); err != nil {
		return nil, err
	}
	c, ok := st.courses[courseID]
	if !ok {
		return nil, util.NewNotFound("course", courseID)
	}
	return c.Clone(), nil
}

func (s *CourseService) Enroll(ctx context.Context, userID, courseID string) (*model.Course, error) {
	st := s.store(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := s.refreshLocked(ctx, userID, st); err != nil {
		return nil, err
	}
	c, ok := st.courses[courseID]
	if !ok {
		return nil, util.NewNotFound("course", courseID)
	}
	err := s.API.Do(ctx, "POST", "/api/courses/"+courseID+"/enroll", func(ctx context.Context) error {
		return s.Progress.Enroll(ctx, userID, courseID, time.Now())
	})
	if err != nil {
		return nil, err
	}

	next := c.Clone()
	next.Enrolled = true
	st.courses[courseID] = next
	s.Cache.Invalidate(ctx, cacheKeyReports)
	return next.Clone(), nil
}

// MarkLessonComplete 计算新课程树，持久化成功后才替换学员视图；失败时视图保持不变
func (s *CourseService) MarkLessonComplete(ctx context.Context, userID, courseID, moduleID, lessonID string) (*model.Course, error) {
	ctx, span := tracing.Start(ctx, "CourseService.MarkLessonComplete")
	defer span.End()

	st := s.store(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := s.refreshLocked(ctx, userID, st); err != nil {
		return nil, err
	}
	course, ok := st.courses[courseID]
	if !ok {
		return nil, util.NewNotFound("course", courseID)
	}
	next, err := MarkLessonComplete(course, moduleID, lessonID)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/api/courses/%s/modules/%s/lessons/%s/complete", courseID, moduleID, lessonID)
	err = s.API.Do(ctx, "POST", path, func(ctx context.Context) error {
		return s.Progress.MarkLessonComplete(ctx, userID, courseID, moduleID, lessonID, time.Now())
	})
	if err != nil {
		return nil, err
	}

	m, _ := course.FindModule(moduleID)
	prev, _ := m.FindLesson(lessonID)
	next.Enrolled = true
	st.courses[courseID] = next
	s.Cache.Invalidate(ctx, cacheKeyReports)

	if !prev.Completed {
		monitoring.LessonCompletions.WithLabelValues(courseID).Inc()
		logger.Log.Info("Lesson completed",
			zap.String("userId", userID),
			zap.String("courseId", courseID),
			zap.String("lessonId", lessonID),
			zap.Float64("courseProgress", next.ProgressPercentage),
			zap.Bool("courseCompleted", next.Completed))
	}
	return next.Clone(), nil
}

func (r *CourseRequest) apply(c *model.Course) error {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", util.ErrValidation)
	}
	if r.Duration < 0 {
		return fmt.Errorf("%w: duration must not be negative", util.ErrValidation)
	}
	c.Title = title
	c.Description = r.Description
	c.Thumbnail = r.Thumbnail
	c.InstructorName = r.InstructorName
	c.InstructorTitle = r.InstructorTitle
	c.Duration = r.Duration
	return nil
}

func (r *ModuleRequest) apply(m *model.Module) error {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", util.ErrValidation)
	}
	m.Title = title
	m.Description = r.Description
	if r.Position != nil {
		m.Position = *r.Position
	}
	return nil
}

func (r *LessonRequest) apply(l *model.Lesson) error {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", util.ErrValidation)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: unknown lesson type %q", util.ErrValidation, r.Type)
	}
	if r.Duration < 0 {
		return fmt.Errorf("%w: duration must not be negative", util.ErrValidation)
	}
	l.Title = title
	l.Type = r.Type
	l.Content = r.Content
	l.Duration = r.Duration
	if r.Position != nil {
		l.Position = *r.Position
	}
	return nil
}

// GetCourseTree 管理端课程树，不含学员进度
func (s *CourseService) GetCourseTree(ctx context.Context, courseID string) (*model.Course, error) {
	return mockapi.Fetch(ctx, s.API, "GET", "/api/admin/courses/"+courseID, func(ctx context.Context) (*model.Course, error) {
		return s.Repo.FindCourseByID(ctx, courseID)
	})
}

func (s *CourseService) CreateCourse(ctx context.Context, req *CourseRequest) (*model.Course, error) {
	c := &model.Course{}
	if err := req.apply(c); err != nil {
		return nil, err
	}
	err := s.API.Do(ctx, "POST", "/api/admin/courses", func(ctx context.Context) error {
		return s.Repo.CreateCourse(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.catalogChanged(ctx)
	logger.Log.Info("Course created", zap.String("courseId", c.ID), zap.String("title", c.Title))
	return c, nil
}

func (s *CourseService) UpdateCourse(ctx context.Context, courseID string, req *CourseRequest) (*model.Course, error) {
	c, err := s.GetCourseTree(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := req.apply(c); err != nil {
		return nil, err
	}
	err = s.API.Do(ctx, "PUT", "/api/admin/courses/"+courseID, func(ctx context.Context) error {
		return s.Repo.UpdateCourse(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.catalogChanged(ctx)
	return c, nil
}

func (s *CourseService) DeleteCourse(ctx context.Context, courseID string) error {
	err := s.API.Do(ctx, "DELETE", "/api/admin/courses/"+courseID, func(ctx context.Context) error {
		return s.Repo.DeleteCourse(ctx, courseID)
	})
	if err != nil {
		return err
	}
	s.catalogChanged(ctx)
	logger.Log.Info("Course deleted", zap.String("courseId", courseID))
	return nil
}

func (s *CourseService) AddModule(ctx context.Context, courseID string, req *ModuleRequest) (*model.Module, error) {
	m := &model.Module{CourseID: courseID}
	if err := req.apply(m); err != nil {
		return nil, err
	}
	err := s.API.Do(ctx, "POST", "/api/admin/courses/"+courseID+"/modules", func(ctx context.Context) error {
		if _, err := s.Repo.FindCourseByID(ctx, courseID); err != nil {
			return err
		}
		if req.Position == nil {
			pos, err := s.Repo.NextModulePosition(ctx, courseID)
			if err != nil {
				return err
			}
			m.Position = pos
		}
		return s.Repo.CreateModule(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	s.catalogChanged(ctx)
	return m, nil
}

func (s *CourseService) UpdateModule(ctx context.Context, courseID, moduleID string, req *ModuleRequest) (*model.Module, error) {
	path := "/api/admin/courses/" + courseID + "/modules/" + moduleID
	m, err := mockapi.Fetch(ctx, s.API, "GET", path, func(ctx context.Context) (*model.Module, error) {
		return s.Repo.FindModule(ctx, courseID, moduleID)
	})
	if err != nil {
		return nil, err
	}
	if err := req.apply(m); err != nil {
		return nil, err
	}
	err = s.API.Do(ctx, "PUT", path, func(ctx context.Context) error {
		return s.Repo.UpdateModule(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	s.catalogChanged(ctx)
	return m, nil
}

func (s *CourseService) DeleteModule(ctx context.Context, courseID, moduleID string) error {
	err := s.API.Do(ctx, "DELETE", "/api/admin/courses/"+courseID+"/modules/"+moduleID, func(ctx context.Context) error {
		return s.Repo.DeleteModule(ctx, courseID, moduleID)
	})
	if err != nil {
		return err
	}
	s.catalogChanged(ctx)
	return nil
}

func (s *CourseService) AddLesson(ctx context.Context, courseID, moduleID string, req *LessonRequest) (*model.Lesson, error) {
	l := &model.Lesson{ModuleID: moduleID}
	if err := req.apply(l); err != nil {
		return nil, err
	}
	err := s.API.Do(ctx, "POST", "/api/admin/courses/"+courseID+"/modules/"+moduleID+"/lessons", func(ctx context.Context) error {
		if _, err := s.Repo.FindModule(ctx, courseID, moduleID); err != nil {
			return err
		}
		if req.Position == nil {
			pos, err := s.Repo.NextLessonPosition(ctx, moduleID)
			if err != nil {
				return err
			}
			l.Position = pos
		}
		return s.Repo.CreateLesson(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	s.catalogChanged(ctx)
	return l, nil
}

func (s *CourseService) findLesson(ctx context.Context, courseID, moduleID, lessonID string) (*model.Lesson, error) {
	path := "/api/admin/courses/" + courseID + "/modules/" + moduleID + "/lessons/" + lessonID
	return mockapi.Fetch(ctx, s.API, "GET", path, func(ctx context.Context) (*model.Lesson, error) {
		if _, err := s.Repo.FindModule(ctx, courseID, moduleID); err != nil {
			return nil, err
		}
		return s.Repo.FindLesson(ctx, moduleID, lessonID)
	})
}

func (s *CourseService) UpdateLesson(ctx context.Context, courseID, moduleID, lessonID string, req *LessonRequest) (*model.Lesson, error) {
	l, err := s.findLesson(ctx, courseID, moduleID, lessonID)
	if err != nil {
		return nil, err
	}
	if err := req.apply(l); err != nil {
		return nil, err
	}
	err = s.API.Do(ctx, "PUT", "/api/admin/lessons/"+lessonID, func(ctx context.Context) error {
		return s.Repo.UpdateLesson(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	s.catalogChanged(ctx)
	return l, nil
}

func (s *CourseService) DeleteLesson(ctx context.Context, courseID, moduleID, lessonID string) error {
	err := s.API.Do(ctx, "DELETE", "/api/admin/lessons/"+lessonID, func(ctx context.Context) error {
		if _, err := s.Repo.FindModule(ctx, courseID, moduleID); err != nil {
			return err
		}
		return s.Repo.DeleteLesson(ctx, moduleID, lessonID)
	})
	if err != nil {
		return err
	}
	s.catalogChanged(ctx)
	return nil
}

// ReorderLessons lessonIDs 必须恰好是该模块全部课时的一个排列
func (s *CourseService) ReorderLessons(ctx context.Context, courseID, moduleID string, lessonIDs []string) (*model.Module, error) {
	path := "/api/admin/courses/" + courseID + "/modules/" + moduleID + "/lessons/order"
	m, err := mockapi.Fetch(ctx, s.API, "GET", path, func(ctx context.Context) (*model.Module, error) {
		return s.Repo.FindModule(ctx, courseID, moduleID)
	})
	if err != nil {
		return nil, err
	}
	if len(lessonIDs) != len(m.Lessons) {
		return nil, fmt.Errorf("%w: expected %d lesson ids, got %d", util.ErrValidation, len(m.Lessons), len(lessonIDs))
	}
	seen := make(map[string]bool, len(lessonIDs))
	for _, id := range lessonIDs {
		if _, ok := m.FindLesson(id); !ok {
			return nil, util.NewNotFound("lesson", id)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate lesson id %q", util.ErrValidation, id)
		}
		seen[id] = true
	}

	err = s.API.Do(ctx, "PUT", path, func(ctx context.Context) error {
		return s.Repo.ReorderLessons(ctx, moduleID, lessonIDs)
	})
	if err != nil {
		return nil, err
	}
	s.catalogChanged(ctx)
	return s.Repo.FindModule(ctx, courseID, moduleID)
}

// lessonTypeFor 按扩展名判定上传资料对应的课时类型
func lessonTypeFor(filename string) (model.LessonType, bool) {
	switch {
	case util.HasAllowedExtension(filename, util.AllowedVideoExtensions):
		return model.LessonVideo, true
	case strings.EqualFold(filepath.Ext(filename), ".pdf"):
		return model.LessonPDF, true
	}
	return "", false
}

// UploadLessonContent 上传课时资料（视频或 PDF）并回写课时内容地址；视频时长由 ffmpeg 探测
func (s *CourseService) UploadLessonContent(ctx context.Context, courseID, moduleID, lessonID, filename string, file io.Reader) (*model.Lesson, error) {
	ctx, span := tracing.Start(ctx, "CourseService.UploadLessonContent")
	defer span.End()

	lessonType, ok := lessonTypeFor(filename)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported lesson file %q", util.ErrValidation, filepath.Base(filename))
	}
	l, err := s.findLesson(ctx, courseID, moduleID, lessonID)
	if err != nil {
		return nil, err
	}

	// 扩展名之外再按文件头校验，读取的部分拼回原始流
	var head bytes.Buffer
	sniffed, err := util.ValidateMimeType(io.TeeReader(file, &head), allowedLessonMimes(lessonType))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrValidation, err)
	}
	file = io.MultiReader(&head, file)

	tmp, cleanup, err := s.Storage.SaveTemp(file, filename)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if lessonType == model.LessonVideo && s.ProbeVideo != nil {
		info, err := s.ProbeVideo(tmp)
		if err != nil {
			logger.Log.Warn("Video probe failed, keeping lesson duration",
				zap.String("lessonId", lessonID), zap.Error(err))
		} else if minutes := info.DurationMinutes(); minutes > 0 {
			l.Duration = minutes
		}
	}

	contentType := sniffed
	if contentType == util.MimeOctetStream {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
			contentType = byExt
		}
	}
	url, err := s.Storage.UploadFile(ctx, ObjectKey("lessons/"+courseID, filename), tmp, contentType)
	if err != nil {
		return nil, &util.UpstreamError{Op: "upload lesson content", Err: err}
	}

	l.Type = lessonType
	l.Content = url
	err = s.API.Do(ctx, "PUT", "/api/admin/lessons/"+lessonID, func(ctx context.Context) error {
		return s.Repo.UpdateLesson(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	s.catalogChanged(ctx)
	logger.Log.Info("Lesson content uploaded",
		zap.String("lessonId", lessonID),
		zap.String("type", string(l.Type)),
		zap.String("url", url),
		zap.Int("duration", l.Duration))
	return l, nil
}

func allowedLessonMimes(t model.LessonType) []string {
	if t == model.LessonPDF {
		return []string{util.MimePDF}
	}
	// 部分容器格式（mov / mkv / wmv）无法按文件头识别
	return []string{util.MimeVideo, util.MimeOctetStream}
}
