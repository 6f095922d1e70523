package analysis

import (
	"mime"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultMaxBytes matches the upload limit of the web client.
const DefaultMaxBytes int64 = 10 * 1024 * 1024

// Candidate is a file the user picked but that has not been accepted yet.
type Candidate struct {
	Name        string
	Category    Category
	ContentType string
	Data        []byte

	// Size is the declared size; the larger of Size and len(Data) is checked.
	Size int64
}

// Accept lists what a category allows.
type Accept struct {
	MIMEPrefix string
	Extensions []string
}

type Constraints struct {
	Accept   map[Category]Accept
	MaxBytes int64
}

// DefaultConstraints returns the accepted types per category and a 10 MiB cap.
func DefaultConstraints() Constraints {
	return Constraints{
		Accept: map[Category]Accept{
			CategoryImage: {MIMEPrefix: "image/", Extensions: []string{".png", ".jpg", ".jpeg", ".gif"}},
			CategoryAudio: {MIMEPrefix: "audio/", Extensions: []string{".mp3", ".wav", ".ogg", ".m4a"}},
			CategoryVideo: {MIMEPrefix: "video/", Extensions: []string{".mp4", ".mov", ".avi", ".webm"}},
			CategoryText:  {MIMEPrefix: "text/", Extensions: []string{".txt", ".md"}},
		},
		MaxBytes: DefaultMaxBytes,
	}
}

// Validate accepts or rejects a candidate. A zero MaxBytes means no limit.
// Zero-byte files are accepted.
func Validate(c Candidate, cons Constraints) (Artifact, error) {
	acc, ok := cons.Accept[c.Category]
	if !ok {
		return Artifact{}, reject("unsupported file category %q", c.Category)
	}

	ext := strings.ToLower(filepath.Ext(c.Name))
	if !slices.Contains(acc.Extensions, ext) {
		return Artifact{}, reject("file type %q is not accepted for %s analysis", ext, c.Category)
	}

	ct := c.ContentType
	if ct != "" && ct != "application/octet-stream" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return Artifact{}, reject("invalid content type %q", c.ContentType)
		}
		if acc.MIMEPrefix != "" && !strings.HasPrefix(mt, acc.MIMEPrefix) {
			return Artifact{}, reject("content type %q is not accepted for %s analysis", mt, c.Category)
		}
		ct = mt
	} else if byExt := mime.TypeByExtension(ext); byExt != "" {
		ct = byExt
	} else {
		ct = "application/octet-stream"
	}

	size := max(c.Size, int64(len(c.Data)))
	if cons.MaxBytes > 0 && size > cons.MaxBytes {
		return Artifact{}, reject("exceeds size limit")
	}

	return Artifact{
		Name:        filepath.Base(c.Name),
		Category:    c.Category,
		ContentType: ct,
		Size:        size,
		Data:        c.Data,
	}, nil
}

// NewTextArtifact builds a text artifact from typed symptoms.
func NewTextArtifact(text string, sev Severity) (Artifact, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Artifact{}, reject("Please enter symptoms")
	}
	if !sev.Valid() {
		return Artifact{}, reject("invalid severity %q", sev)
	}
	return Artifact{
		Name:        "symptoms.txt",
		Category:    CategoryText,
		ContentType: "text/plain",
		Size:        int64(len(text)),
		Data:        []byte(text),
		Severity:    sev,
	}, nil
}
