// Package media turns downloaded channel videos into Xiaohongshu posts: it
// drives yt-dlp, finds new files, derives titles and captions, and archives
// what has been handled.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	videoExtensions     = []string{".mp4", ".mkv", ".webm", ".mov"}
	thumbnailExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

	bracketed     = regexp.MustCompile(`\[.*?\]`)
	parenthesized = regexp.MustCompile(`\(.*\)`)
)

// UploadedDir is the archive directory inside the download directory
const UploadedDir = "uploaded"

// Video is a downloaded video waiting to be posted
type Video struct {
	Path      string
	Thumbnail string
	Filename  string
}

// Title returns the cleaned-up post title
func (v Video) Title() string {
	return CleanTitle(v.Filename)
}

// FindNewVideos lists the videos directly inside dir, each paired with the
// first thumbnail sharing its base name. Results are sorted by file name.
func FindNewVideos(dir string) ([]Video, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read download directory: %w", err)
	}

	var videos []Video
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !hasExtension(entry.Name(), videoExtensions) {
			continue
		}
		v := Video{
			Path:     filepath.Join(dir, entry.Name()),
			Filename: entry.Name(),
		}
		base := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		for _, ext := range thumbnailExtensions {
			candidate := filepath.Join(dir, base+ext)
			if _, err := os.Stat(candidate); err == nil {
				v.Thumbnail = candidate
				break
			}
		}
		videos = append(videos, v)
	}

	sort.Slice(videos, func(i, j int) bool { return videos[i].Filename < videos[j].Filename })
	return videos, nil
}

func hasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// CleanTitle turns a downloaded file name into a readable title: the
// extension, [tags] and (parenthesised notes) are dropped, underscores and
// dots become spaces.
func CleanTitle(filename string) string {
	title := strings.TrimSuffix(filename, filepath.Ext(filename))
	title = bracketed.ReplaceAllString(title, "")
	title = parenthesized.ReplaceAllString(title, "")
	title = strings.NewReplacer("_", " ", ".", " ").Replace(title)
	return strings.TrimSpace(title)
}

// Caption builds the post body from the title and the hashtag line
func Caption(title, hashtags string) string {
	if strings.TrimSpace(hashtags) == "" {
		return title
	}
	return title + "\n\n" + hashtags
}

// Library is the download directory and its archive
type Library struct {
	dir string
}

// NewLibrary creates a library over dir
func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// Dir returns the download directory
func (l *Library) Dir() string {
	return l.dir
}

// New returns the videos not yet archived
func (l *Library) New() ([]Video, error) {
	return FindNewVideos(l.dir)
}

// MarkUploaded moves the video and its thumbnail into the archive
func (l *Library) MarkUploaded(v Video) error {
	archive := filepath.Join(l.dir, UploadedDir)
	if err := os.MkdirAll(archive, 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := os.Rename(v.Path, filepath.Join(archive, filepath.Base(v.Path))); err != nil {
		return fmt.Errorf("failed to archive video: %w", err)
	}
	if v.Thumbnail != "" {
		if err := os.Rename(v.Thumbnail, filepath.Join(archive, filepath.Base(v.Thumbnail))); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to archive thumbnail: %w", err)
		}
	}
	return nil
}
