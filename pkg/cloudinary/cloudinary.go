package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// AttachmentKey identifies the submission attempt a file belongs to.
type AttachmentKey struct {
	AssignmentID uint
	StudentID    uint
	Attempt      int
}

// Service stores submission attachments in Cloudinary.
type Service struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Service{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// UploadAttachment stores the file under a deterministic public id so that a
// re-upload for the same attempt replaces the previous asset.
func (s *Service) UploadAttachment(ctx context.Context, key AttachmentKey, name string, reader io.Reader) (string, error) {
	overwrite := true
	params := uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     PublicID(key, name),
		ResourceType: "auto",
		Overwrite:    &overwrite,
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload attachment: %w", err)
	}

	s.logger.Info().
		Str("public_id", result.PublicID).
		Uint("assignment_id", key.AssignmentID).
		Uint("student_id", key.StudentID).
		Int("attempt", key.Attempt).
		Msg("attachment uploaded")

	return result.SecureURL, nil
}

// PublicID derives the asset id for an attachment.
func PublicID(key AttachmentKey, name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = "attachment"
	}

	return fmt.Sprintf("a%d-s%d-t%d-%s", key.AssignmentID, key.StudentID, key.Attempt, strings.ToLower(base))
}
