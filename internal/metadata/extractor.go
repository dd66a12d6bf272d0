package metadata

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"midnightmedia/pkg/models"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"
)

// Extractor builds media records from files on disk, reading embedded tags
// where available and falling back to the filename.
type Extractor struct {
	supportedFormats []string
	logger           *logrus.Logger
}

// NewExtractor creates a new metadata extractor
func NewExtractor(supportedFormats []string) *Extractor {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Extractor{
		supportedFormats: supportedFormats,
		logger:           logger,
	}
}

// IsMediaFile reports whether the path has a supported media extension.
func (e *Extractor) IsMediaFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range e.supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// ExtractFromFile builds a media record for an audio file. Tag data fills
// name/author/album; a file with no readable tags still yields a usable
// record named after the file.
func (e *Extractor) ExtractFromFile(filePath string) (models.Media, error) {
	file, err := os.Open(filePath)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"filePath": filePath,
			"error":    err.Error(),
		}).Error("Failed to open media file")
		return models.Media{}, err
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(filePath))
	format := strings.TrimPrefix(ext, ".")
	fallbackName := strings.TrimSuffix(filepath.Base(filePath), ext)

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"filePath": filePath,
			"error":    err.Error(),
		}).Warn("Failed to extract metadata, using filename")

		return models.Media{
			Path:   filePath,
			Name:   fallbackName,
			Format: format,
		}, nil
	}

	name := metadata.Title()
	if name == "" {
		name = fallbackName
	}

	media := models.Media{
		Path:   filePath,
		Name:   name,
		Format: format,
		Author: metadata.Artist(),
		Album:  metadata.Album(),
	}

	e.logger.WithFields(logrus.Fields{
		"filePath": filePath,
		"name":     media.Name,
		"author":   media.Author,
		"album":    media.Album,
	}).Debug("Successfully extracted metadata")

	return media, nil
}

// ProbeDuration calculates the duration of a media file. Used for display;
// playback timing comes from the audio capability itself.
func (e *Extractor) ProbeDuration(filePath string) (time.Duration, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".mp3":
		return e.durationMP3(filePath)
	case ".flac":
		return e.durationFLAC(filePath)
	case ".wav":
		return e.durationWAV(filePath)
	default:
		return 0, fmt.Errorf("unsupported format: %s", ext)
	}
}

// MP3 duration using frame decoding; fallback to average bitrate estimation
// only if frames fail entirely.
func (e *Extractor) durationMP3(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 { // could not decode any frame
				return e.estimateFromFileSize(path, 192000) // assume 192 kbps
			}
			break // partial decode; use what we have
		}
		total += fr.Duration()
		frames++
	}
	return total, nil
}

// FLAC duration via STREAMINFO metadata block
func (e *Extractor) durationFLAC(path string) (time.Duration, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	si := stream.Info
	if si.NSamples > 0 && si.SampleRate > 0 {
		secs := float64(si.NSamples) / float64(si.SampleRate)
		return time.Duration(secs * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("flac stream missing sample info")
}

// WAV duration using go-audio/wav to read the header
func (e *Extractor) durationWAV(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("invalid wav file")
	}
	d, err := dec.Duration()
	if err != nil {
		return 0, err
	}
	return d, nil
}

// estimateFromFileSize approximates duration from file size and an assumed
// constant bitrate in bits per second.
func (e *Extractor) estimateFromFileSize(path string, bitrate int64) (time.Duration, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if bitrate <= 0 {
		return 0, fmt.Errorf("invalid bitrate")
	}
	seconds := float64(stat.Size()*8) / float64(bitrate)
	return time.Duration(seconds * float64(time.Second)), nil
}
