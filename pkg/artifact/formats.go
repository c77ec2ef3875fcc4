package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// FileKind identifies what an artifact file holds.
type FileKind int

const (
	KindUnknown    FileKind = iota
	KindVocabulary          // msgpack symptoms + diseases
	KindModel               // msgpack classifier weights
	KindCatalog             // YAML disease information
)

// FormatInfo describes the on-disk shape of a file kind.
type FormatInfo struct {
	Kind        FileKind
	Description string
	Extensions  []string
	MinSize     int64 // Minimum expected file size in bytes
}

var supportedFormats = map[FileKind]FormatInfo{
	KindVocabulary: {
		Kind:        KindVocabulary,
		Description: "Symptom Vocabulary",
		Extensions:  []string{".msgpack", ".mp"},
		MinSize:     4, // map header + two empty arrays
	},
	KindModel: {
		Kind:        KindModel,
		Description: "Classifier Model",
		Extensions:  []string{".msgpack", ".mp"},
		MinSize:     8,
	},
	KindCatalog: {
		Kind:        KindCatalog,
		Description: "Disease Catalog",
		Extensions:  []string{".yaml", ".yml"},
		MinSize:     1,
	},
}

func (k FileKind) String() string {
	if info, ok := supportedFormats[k]; ok {
		return info.Description
	}
	return "Unknown"
}

// ValidateFile checks that path exists, has an extension and size that fit
// kind, and for msgpack kinds that it starts with a map header.
func ValidateFile(path string, kind FileKind) error {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", ErrArtifact, path, err)
	}
	if fileInfo.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrArtifact, path)
	}

	formatInfo, exists := supportedFormats[kind]
	if !exists {
		return fmt.Errorf("%w: unknown file kind %d", ErrArtifact, kind)
	}

	if fileInfo.Size() < formatInfo.MinSize {
		return fmt.Errorf("%w: file %s is too small (%d bytes) for %s (minimum: %d bytes)",
			ErrArtifact, path, fileInfo.Size(), formatInfo.Description, formatInfo.MinSize)
	}

	ext := strings.ToLower(filepath.Ext(path))
	validExt := false
	for _, e := range formatInfo.Extensions {
		if ext == e {
			validExt = true
			break
		}
	}
	if !validExt {
		return fmt.Errorf("%w: file %s has invalid extension %q for %s (expected: %v)",
			ErrArtifact, path, ext, formatInfo.Description, formatInfo.Extensions)
	}

	if detected := DetectKind(path); detected != KindUnknown && detected != kind {
		log.Warnf("%s looks like a %s file, reading it as %s", path, detected, kind)
	}

	switch kind {
	case KindVocabulary, KindModel:
		return validateMsgpackHeader(path)
	}
	return nil
}

// validateMsgpackHeader accepts fixmap, map16 and map32 leading bytes.
func validateMsgpackHeader(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrArtifact, path, err)
	}
	defer file.Close()

	head := make([]byte, 1)
	if _, err := io.ReadFull(file, head); err != nil {
		return fmt.Errorf("%w: read header from %s: %v", ErrArtifact, path, err)
	}
	b := head[0]
	if (b&0xf0) != 0x80 && b != 0xde && b != 0xdf {
		return fmt.Errorf("%w: %s does not start with a msgpack map (0x%02x)", ErrArtifact, path, b)
	}

	log.Debugf("msgpack file %s validated", path)
	return nil
}

// DetectKind guesses the kind of path from its name.
func DetectKind(path string) FileKind {
	ext := strings.ToLower(filepath.Ext(path))
	base := strings.ToLower(filepath.Base(path))
	switch ext {
	case ".yaml", ".yml":
		return KindCatalog
	case ".msgpack", ".mp":
		if strings.HasPrefix(base, "vocab") {
			return KindVocabulary
		}
		if strings.HasPrefix(base, "model") {
			return KindModel
		}
	}
	return KindUnknown
}
