package gallery

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nfnt/resize"
)

// thumbWidth is the width thumbnails are resized to, aspect ratio preserved.
const thumbWidth = 300

type Photo struct {
	FileName  string
	Path      string
	ThumbPath string
}

// Activity is one photo gallery: a directory of scanned event photos.
type Activity struct {
	Key    string
	Name   string
	Photos []Photo
}

// Scanner builds the photo catalogue from the photos directory. The
// filesystem is the source of truth; there is no item table.
type Scanner struct {
	PhotosDir string
	ThumbsDir string
}

func NewScanner(photosDir, thumbsDir string) *Scanner {
	return &Scanner{PhotosDir: photosDir, ThumbsDir: thumbsDir}
}

// Scan walks photos/<activity>/ and returns the activities sorted by key.
// Missing thumbnails are generated on the way.
func (s *Scanner) Scan() ([]Activity, error) {
	entries, err := os.ReadDir(s.PhotosDir)
	if err != nil {
		return nil, fmt.Errorf("read photos dir %s: %w", s.PhotosDir, err)
	}

	var activities []Activity
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		activity, err := s.scanActivity(entry.Name())
		if err != nil {
			slog.Warn("Skipping unreadable activity", "activity", entry.Name(), "error", err)
			continue
		}
		if len(activity.Photos) > 0 {
			activities = append(activities, activity)
		}
	}
	sort.Slice(activities, func(i, j int) bool { return activities[i].Key < activities[j].Key })
	return activities, nil
}

// ScanActivity returns one activity's gallery.
func (s *Scanner) ScanActivity(key string) (Activity, error) {
	if key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return Activity{}, fmt.Errorf("invalid activity key %q", key)
	}
	return s.scanActivity(key)
}

func (s *Scanner) scanActivity(key string) (Activity, error) {
	dir := filepath.Join(s.PhotosDir, key)
	files, err := os.ReadDir(dir)
	if err != nil {
		return Activity{}, err
	}

	activity := Activity{Key: key, Name: displayName(key)}
	for _, f := range files {
		if f.IsDir() || !isImage(f.Name()) {
			continue
		}
		photo := Photo{
			FileName: f.Name(),
			Path:     filepath.Join(dir, f.Name()),
		}
		thumb, err := s.ensureThumbnail(key, photo.Path, f.Name())
		if err != nil {
			slog.Warn("Failed to build thumbnail", "photo", photo.Path, "error", err)
		} else {
			photo.ThumbPath = thumb
		}
		activity.Photos = append(activity.Photos, photo)
	}
	sort.Slice(activity.Photos, func(i, j int) bool { return activity.Photos[i].FileName < activity.Photos[j].FileName })
	return activity, nil
}

// ensureThumbnail generates thumbs/<activity>/<name>.jpg if it is missing or
// older than the source photo.
func (s *Scanner) ensureThumbnail(key, srcPath, name string) (string, error) {
	thumbDir := filepath.Join(s.ThumbsDir, key)
	thumbPath := filepath.Join(thumbDir, strings.TrimSuffix(name, filepath.Ext(name))+".jpg")

	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		return "", err
	}
	if thumbInfo, err := os.Stat(thumbPath); err == nil && thumbInfo.ModTime().After(srcInfo.ModTime()) {
		return thumbPath, nil
	}

	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return "", err
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	var img image.Image
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		img, err = png.Decode(src)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(src)
	default:
		return "", fmt.Errorf("unsupported image format %s", filepath.Ext(name))
	}
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", srcPath, err)
	}

	small := resize.Resize(thumbWidth, 0, img, resize.Lanczos3)

	out, err := os.Create(thumbPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if err := jpeg.Encode(out, small, &jpeg.Options{Quality: 80}); err != nil {
		return "", fmt.Errorf("encode thumbnail %s: %w", thumbPath, err)
	}
	return thumbPath, nil
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// displayName turns a directory key like "2025_gala_danse" into "2025 gala danse".
func displayName(key string) string {
	return strings.ReplaceAll(strings.ReplaceAll(key, "_", " "), "-", " ")
}
