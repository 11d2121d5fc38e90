// Package stream inspects the HLS output directory produced by the
// external packager: playlist location and basic liveness info.
package stream

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/model"
)

const playlistName = "index.m3u8"

var (
	targetDurationPattern = regexp.MustCompile(`#EXT-X-TARGETDURATION:(\d+)`)
	mediaSequencePattern  = regexp.MustCompile(`#EXT-X-MEDIA-SEQUENCE:(\d+)`)
)

// Service answers questions about the packager's output directory.
type Service struct {
	dir    string
	logger *zap.Logger
}

// NewService creates a stream service over the HLS directory.
func NewService(dir string, logger *zap.Logger) *Service {
	return &Service{dir: dir, logger: logger}
}

// PlaylistPath returns the absolute path of the live playlist.
func (s *Service) PlaylistPath() string {
	return filepath.Join(s.dir, playlistName)
}

// SegmentPath returns the absolute path of a segment file. The name is
// reduced to its base so a crafted filename cannot escape the
// directory.
func (s *Service) SegmentPath(filename string) string {
	return filepath.Join(s.dir, filepath.Base(filename))
}

// Info reports whether the stream is live and, if so, how the playlist
// currently looks.
func (s *Service) Info() model.StreamInfo {
	data, err := os.ReadFile(s.PlaylistPath())
	if err != nil {
		return model.StreamInfo{
			Status:  "offline",
			Message: "playlist not found",
		}
	}

	count := 0
	if entries, err := os.ReadDir(s.dir); err == nil {
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".ts") {
				count++
			}
		}
	}

	info := model.StreamInfo{
		Status:       "online",
		Segments:     count,
		PlaylistPath: "/api/stream/playlist",
	}
	if m := targetDurationPattern.FindSubmatch(data); m != nil {
		if v, err := strconv.Atoi(string(m[1])); err == nil {
			info.TargetDuration = &v
		}
	}
	if m := mediaSequencePattern.FindSubmatch(data); m != nil {
		if v, err := strconv.Atoi(string(m[1])); err == nil {
			info.MediaSequence = &v
		}
	}
	return info
}
