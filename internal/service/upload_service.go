package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/penmark-edu/penmark-api/internal/models"
	"github.com/penmark-edu/penmark-api/internal/observability"
	"github.com/penmark-edu/penmark-api/internal/repository"
)

var (
	// ErrFileRequired indicates the multipart payload carried no file.
	ErrFileRequired = errors.New("file is required")
	// ErrFileTooLarge indicates the payload exceeded the configured limit.
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrFileTypeNotAllowed indicates the detected type is not an accepted
	// handwriting format.
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	// ErrExamNotFound indicates the referenced exam template does not exist.
	ErrExamNotFound = errors.New("exam template not found")
	// ErrStudentNotFound indicates the referenced student does not exist.
	ErrStudentNotFound = errors.New("student not found")
)

// Handwriting formats accepted for grading. HEIC often arrives without a
// usable declared type, so the extension doubles as a fallback signal.
var (
	allowedUploadMIMEs = map[string]struct{}{
		"image/jpeg":      {},
		"image/png":       {},
		"image/heic":      {},
		"application/pdf": {},
	}
	allowedUploadExtensions = map[string]struct{}{
		".jpg":  {},
		".jpeg": {},
		".png":  {},
		".heic": {},
		".pdf":  {},
	}
)

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// UploadService validates and stores scanned exam submissions.
type UploadService interface {
	Upload(ctx context.Context, examTemplateID, studentID, teacherID string, file *multipart.FileHeader) (models.Submission, error)
	UploadBatch(ctx context.Context, examTemplateID, studentID, teacherID string, files []*multipart.FileHeader) ([]models.Submission, int, error)
}

type uploadService struct {
	storage     FileStorage
	submissions repository.SubmissionRepository
	exams       repository.ExamTemplateRepository
	students    repository.StudentRepository
	maxSize     int64
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewUploadService constructs an upload service.
func NewUploadService(storage FileStorage, submissions repository.SubmissionRepository, exams repository.ExamTemplateRepository, students repository.StudentRepository, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &uploadService{
		storage:     storage,
		submissions: submissions,
		exams:       exams,
		students:    students,
		maxSize:     int64(maxSizeMB) * 1024 * 1024,
		logger:      logger.With().Str("component", "upload_service").Logger(),
		tracer:      otel.Tracer("github.com/penmark-edu/penmark-api/internal/service/upload"),
	}
}

func (s *uploadService) Upload(ctx context.Context, examTemplateID, studentID, teacherID string, file *multipart.FileHeader) (models.Submission, error) {
	ctx, span := s.tracer.Start(ctx, "upload.store")
	defer span.End()

	span.SetAttributes(
		attribute.String("upload.exam_template_id", examTemplateID),
		attribute.String("upload.student_id", studentID),
	)

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	if file == nil {
		span.RecordError(ErrFileRequired)
		span.SetStatus(codes.Error, "validation failed")
		return models.Submission{}, ErrFileRequired
	}

	if file.Size > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		span.RecordError(ErrFileTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return models.Submission{}, ErrFileTooLarge
	}

	if _, err := s.exams.GetByID(ctx, examTemplateID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "exam not found")
			return models.Submission{}, ErrExamNotFound
		}
		return models.Submission{}, err
	}
	if _, err := s.students.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "student not found")
			return models.Submission{}, ErrStudentNotFound
		}
		return models.Submission{}, err
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return models.Submission{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return models.Submission{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		span.RecordError(ErrFileTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return models.Submission{}, ErrFileTooLarge
	}

	detected := strings.ToLower(mimetype.Detect(buf.Bytes()).String())
	extension := strings.ToLower(filepath.Ext(file.Filename))
	span.SetAttributes(attribute.String("upload.detected_mime", detected))

	_, mimeOK := allowedUploadMIMEs[stripMIMEParams(detected)]
	_, extOK := allowedUploadExtensions[extension]
	if !mimeOK && !extOK {
		observability.UploadRejected().WithLabelValues("type").Inc()
		span.RecordError(ErrFileTypeNotAllowed)
		span.SetStatus(codes.Error, "type not allowed")
		return models.Submission{}, ErrFileTypeNotAllowed
	}

	url, err := s.storage.Upload(ctx, file.Filename, bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.UploadRejected().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return models.Submission{}, err
	}

	submission := models.Submission{
		ExamTemplateID: examTemplateID,
		StudentID:      studentID,
		TeacherID:      teacherID,
		FileURL:        url,
		FileName:       file.Filename,
		Status:         models.SubmissionStatusPending,
		Metadata: datatypes.JSONMap{
			"original_name": file.Filename,
			"detected_mime": detected,
			"size_bytes":    buf.Len(),
		},
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return models.Submission{}, err
	}

	observability.UploadRequests().WithLabelValues(stripMIMEParams(detected)).Inc()
	span.SetStatus(codes.Ok, "stored")
	s.logger.Info().
		Str("submission_id", submission.ID).
		Str("file_name", submission.FileName).
		Msg("submission stored")

	return submission, nil
}

// UploadBatch stores each file independently: one bad page never sinks the
// rest of the batch. The failed count covers files rejected or errored.
func (s *uploadService) UploadBatch(ctx context.Context, examTemplateID, studentID, teacherID string, files []*multipart.FileHeader) ([]models.Submission, int, error) {
	if len(files) == 0 {
		return nil, 0, ErrFileRequired
	}

	stored := make([]models.Submission, 0, len(files))
	failed := 0
	for _, file := range files {
		submission, err := s.Upload(ctx, examTemplateID, studentID, teacherID, file)
		if err != nil {
			// Missing exam or student dooms every file in the batch alike.
			if errors.Is(err, ErrExamNotFound) || errors.Is(err, ErrStudentNotFound) {
				return nil, 0, err
			}
			failed++
			s.logger.Warn().Err(err).Str("file_name", fileName(file)).Msg("batch file rejected")
			continue
		}
		stored = append(stored, submission)
	}

	return stored, failed, nil
}

func fileName(file *multipart.FileHeader) string {
	if file == nil {
		return ""
	}
	return file.Filename
}

func stripMIMEParams(m string) string {
	if idx := strings.IndexByte(m, ';'); idx >= 0 {
		return strings.TrimSpace(m[:idx])
	}
	return m
}
