package timetable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"anchor/internal/cloudinary"
)

// MaxUploadBytes caps a single timetable upload.
const MaxUploadBytes = 10 << 20

var (
	// ErrNotFound is returned when the user has never uploaded a timetable.
	ErrNotFound = errors.New("timetable not found")
	// ErrUnsupportedType is returned for files that are neither images nor PDFs.
	ErrUnsupportedType = errors.New("timetable must be an image or a PDF")
	// ErrTooLarge is returned for uploads above MaxUploadBytes.
	ErrTooLarge = errors.New("timetable file too large")
	// ErrStorageDisabled is returned when no object storage is configured.
	ErrStorageDisabled = errors.New("file storage not configured")
)

// Timetable is an uploaded schedule file.
type Timetable struct {
	ID         string    `json:"id"`
	UserID     string    `json:"-"`
	URL        string    `json:"url"`
	PublicID   string    `json:"public_id"`
	Filename   string    `json:"filename"`
	Format     string    `json:"format"`
	Bytes      int       `json:"bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Uploader stores files in object storage; *cloudinary.Client implements it.
type Uploader interface {
	UploadBytes(ctx context.Context, data []byte, filename, subfolder string) (*cloudinary.UploadResult, error)
	UploadDataURL(ctx context.Context, dataURL, subfolder string) (*cloudinary.UploadResult, error)
}

// Store persists timetable metadata; *Repository implements it.
type Store interface {
	Insert(ctx context.Context, t Timetable) (Timetable, error)
	Latest(ctx context.Context, userID string) (Timetable, error)
}

// Service uploads timetables and records where they live.
type Service struct {
	store    Store
	uploader Uploader
}

// NewService creates a service. uploader may be nil when storage is not configured.
func NewService(store Store, uploader Uploader) *Service {
	return &Service{store: store, uploader: uploader}
}

// UploadFile validates and stores raw file bytes.
func (s *Service) UploadFile(ctx context.Context, userID string, data []byte, filename string) (Timetable, error) {
	if s.uploader == nil {
		return Timetable{}, ErrStorageDisabled
	}
	if len(data) > MaxUploadBytes {
		return Timetable{}, ErrTooLarge
	}
	if !allowedContentType(http.DetectContentType(data)) {
		return Timetable{}, ErrUnsupportedType
	}
	res, err := s.uploader.UploadBytes(ctx, data, filepath.Base(filename), userID)
	if err != nil {
		return Timetable{}, err
	}
	return s.record(ctx, userID, filepath.Base(filename), res)
}

// UploadDataURL validates and stores a base64 data URL.
func (s *Service) UploadDataURL(ctx context.Context, userID, dataURL string) (Timetable, error) {
	if s.uploader == nil {
		return Timetable{}, ErrStorageDisabled
	}
	header, _, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return Timetable{}, fmt.Errorf("%w: expected a base64 data URL", ErrUnsupportedType)
	}
	if !allowedContentType(strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")) {
		return Timetable{}, ErrUnsupportedType
	}
	// base64 inflates by 4/3
	if len(dataURL)-len(header) > MaxUploadBytes*4/3+4 {
		return Timetable{}, ErrTooLarge
	}
	res, err := s.uploader.UploadDataURL(ctx, dataURL, userID)
	if err != nil {
		return Timetable{}, err
	}
	return s.record(ctx, userID, "", res)
}

// Latest returns the most recent upload.
func (s *Service) Latest(ctx context.Context, userID string) (Timetable, error) {
	return s.store.Latest(ctx, userID)
}

func (s *Service) record(ctx context.Context, userID, filename string, res *cloudinary.UploadResult) (Timetable, error) {
	return s.store.Insert(ctx, Timetable{
		UserID:   userID,
		URL:      res.SecureURL,
		PublicID: res.PublicID,
		Filename: filename,
		Format:   res.Format,
		Bytes:    res.Bytes,
	})
}

func allowedContentType(ct string) bool {
	ct = strings.TrimSpace(strings.Split(ct, ";")[0])
	return strings.HasPrefix(ct, "image/") || ct == "application/pdf"
}

// Repository persists timetable metadata in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert stores a new upload.
func (r *Repository) Insert(ctx context.Context, t Timetable) (Timetable, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO timetables (id, user_id, url, public_id, filename, format, bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING uploaded_at
	`, t.ID, t.UserID, t.URL, t.PublicID, t.Filename, t.Format, t.Bytes)
	if err := row.Scan(&t.UploadedAt); err != nil {
		return Timetable{}, err
	}
	return t, nil
}

// Latest returns the most recent upload for the user.
func (r *Repository) Latest(ctx context.Context, userID string) (Timetable, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, url, public_id, filename, format, bytes, uploaded_at
		FROM timetables WHERE user_id = $1
		ORDER BY uploaded_at DESC LIMIT 1
	`, userID)
	var t Timetable
	if err := row.Scan(&t.ID, &t.UserID, &t.URL, &t.PublicID, &t.Filename, &t.Format, &t.Bytes, &t.UploadedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Timetable{}, ErrNotFound
		}
		return Timetable{}, err
	}
	return t, nil
}
