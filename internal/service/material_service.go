package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-english/academy-api/internal/models"
	appErrors "github.com/brightpath-english/academy-api/pkg/errors"
	"github.com/brightpath-english/academy-api/pkg/storage"
)

type materialStore interface {
	Create(ctx context.Context, material *models.Material) error
	FindByID(ctx context.Context, id string) (*models.Material, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Material, error)
	Delete(ctx context.Context, id string) error
}

type materialStudentSource interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
}

type materialFileStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

// MaterialConfig bounds uploads.
type MaterialConfig struct {
	MaxSizeBytes int64
	AllowedMIME  []string
}

// UploadMaterialRequest describes one file upload.
type UploadMaterialRequest struct {
	FileName   string
	MimeType   string
	SizeBytes  int64
	Content    io.Reader
	UploadedBy string
}

// SignedDownload is a time-limited download grant for a material.
type SignedDownload struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MaterialService stores study materials per student and hands out
// HMAC-signed download tokens so files are never served by plain path.
type MaterialService struct {
	materials materialStore
	students  materialStudentSource
	files     materialFileStore
	signer    *storage.SignedURLSigner
	config    MaterialConfig
	logger    *zap.Logger
}

// NewMaterialService constructs the material service.
func NewMaterialService(materials materialStore, students materialStudentSource, files materialFileStore, signer *storage.SignedURLSigner, cfg MaterialConfig, logger *zap.Logger) *MaterialService {
	if cfg.MaxSizeBytes <= 0 {
		cfg.MaxSizeBytes = 10 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaterialService{materials: materials, students: students, files: files, signer: signer, config: cfg, logger: logger}
}

// Upload saves a file for the student and records its metadata.
func (s *MaterialService) Upload(ctx context.Context, studentID string, req UploadMaterialRequest) (*models.Material, error) {
	if _, err := s.loadStudent(ctx, studentID); err != nil {
		return nil, err
	}
	if req.SizeBytes <= 0 || req.SizeBytes > s.config.MaxSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("file size must be between 1 byte and %d bytes", s.config.MaxSizeBytes))
	}
	if !s.mimeAllowed(req.MimeType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file type not allowed")
	}

	id := uuid.NewString()
	stored := fmt.Sprintf("%s/%s%s", studentID, id, filepath.Ext(req.FileName))
	if _, err := s.files.SaveStream(stored, io.LimitReader(req.Content, s.config.MaxSizeBytes)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	material := &models.Material{
		ID:         id,
		StudentID:  studentID,
		FileName:   req.FileName,
		Path:       stored,
		MimeType:   req.MimeType,
		SizeBytes:  req.SizeBytes,
		UploadedBy: req.UploadedBy,
	}
	if err := s.materials.Create(ctx, material); err != nil {
		if delErr := s.files.Delete(stored); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", stored), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record material")
	}
	return material, nil
}

// List returns a student's materials, scoped so students only see their own.
func (s *MaterialService) List(ctx context.Context, caller models.Caller, studentID string) ([]models.Material, error) {
	if err := s.authorize(ctx, caller, studentID); err != nil {
		return nil, err
	}
	materials, err := s.materials.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list materials")
	}
	return materials, nil
}

// SignDownload issues a time-limited token for one material.
func (s *MaterialService) SignDownload(ctx context.Context, caller models.Caller, materialID string) (*SignedDownload, error) {
	material, err := s.loadMaterial(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, caller, material.StudentID); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(material.ID, material.Path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download")
	}
	return &SignedDownload{Token: token, ExpiresAt: expiresAt}, nil
}

// OpenSigned resolves a signed token back to the file and its metadata.
func (s *MaterialService) OpenSigned(ctx context.Context, token string) (*models.Material, *os.File, error) {
	materialID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	material, err := s.loadMaterial(ctx, materialID)
	if err != nil {
		return nil, nil, err
	}
	if material.Path != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token")
	}
	file, err := s.files.Open(material.Path)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return material, file, nil
}

// Delete removes the material record and its file.
func (s *MaterialService) Delete(ctx context.Context, materialID string) error {
	material, err := s.loadMaterial(ctx, materialID)
	if err != nil {
		return err
	}
	if err := s.materials.Delete(ctx, materialID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete material")
	}
	if err := s.files.Delete(material.Path); err != nil {
		s.logger.Warn("material record deleted but file removal failed",
			zap.String("path", material.Path), zap.Error(err))
	}
	return nil
}

func (s *MaterialService) authorize(ctx context.Context, caller models.Caller, studentID string) error {
	if caller.Role != models.RoleStudent {
		return nil
	}
	own, err := s.students.FindByUserID(ctx, caller.UserID)
	if err != nil || own.ID != studentID {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return nil
}

func (s *MaterialService) mimeAllowed(mime string) bool {
	if len(s.config.AllowedMIME) == 0 {
		return true
	}
	for _, allowed := range s.config.AllowedMIME {
		if allowed == mime {
			return true
		}
	}
	return false
}

func (s *MaterialService) loadStudent(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *MaterialService) loadMaterial(ctx context.Context, id string) (*models.Material, error) {
	material, err := s.materials.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load material")
	}
	return material, nil
}
