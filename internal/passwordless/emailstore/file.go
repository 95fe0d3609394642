package emailstore

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

type fileRecord struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// File persists the email between `escrowgate signin` invocations.
type File struct {
	path string
	now  func() time.Time
}

func NewFile(path string) *File {
	return &File{path: path, now: time.Now}
}

// DefaultFilePath is signin.json under the user config directory.
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "escrowgate", "signin.json"), nil
}

func (f *File) Save(email string, ttl time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	raw, err := json.Marshal(fileRecord{Email: email, ExpiresAt: f.now().Add(ttl)})
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, raw, 0o600)
}

func (f *File) EmailForSignIn(context.Context) (string, bool) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return "", false
	}
	var rec fileRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return "", false
	}
	if rec.Email == "" || !f.now().Before(rec.ExpiresAt) {
		return "", false
	}
	return rec.Email, true
}

func (f *File) Clear() error {
	err := os.Remove(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
