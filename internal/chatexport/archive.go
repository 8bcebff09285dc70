package chatexport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatdesk-backend/internal/models"

	"cloud.google.com/go/storage"
)

var ErrArchiveNotConfigured = errors.New("export archiving is not configured")

// Uploader stores an object
type Uploader interface {
	Upload(ctx context.Context, object, contentType string, data []byte) error
}

// GCSUploader writes objects to one Cloud Storage bucket
type GCSUploader struct {
	client *storage.Client
	bucket string
}

func NewGCSUploader(client *storage.Client, bucket string) *GCSUploader {
	return &GCSUploader{client: client, bucket: bucket}
}

func (u *GCSUploader) Upload(ctx context.Context, object, contentType string, data []byte) error {
	w := u.client.Bucket(u.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", u.bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gs://%s/%s: %w", u.bucket, object, err)
	}
	return nil
}

// Archiver keeps copies of exported transcripts
type Archiver struct {
	uploader Uploader
	bucket   string
	loc      *time.Location
	now      func() time.Time
}

// NewArchiver returns nil when there is nowhere to archive to
func NewArchiver(uploader Uploader, bucket string) *Archiver {
	if uploader == nil || bucket == "" {
		return nil
	}
	return &Archiver{uploader: uploader, bucket: bucket, loc: time.Local, now: time.Now}
}

// Archive uploads the transcript and returns its gs:// path
func (a *Archiver) Archive(ctx context.Context, chat *models.Chat, messages []models.Message) (string, error) {
	if a == nil {
		return "", ErrArchiveNotConfigured
	}
	now := a.now()
	object := fmt.Sprintf("exports/%s/%s/%s", chat.UserID, chat.ID, Filename(chat.Title, now, a.loc))
	body := Format(chat.Title, messages, now, a.loc)
	if err := a.uploader.Upload(ctx, object, "text/plain; charset=utf-8", []byte(body)); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", a.bucket, object), nil
}
