package corabooks

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	maxDisplayNameRunes = 200
	maxExtensionLength  = 16
	fallbackExtension   = "bin"
	untitledName        = "untitled"
)

// IsValidObjectName validates that a name is usable as a flat storage object key.
// It checks that the name:
//   - is not empty, "." or ".."
//   - contains no "/" or "\" (objects are not nested)
//   - does not contain "..", whitespace or the characters ? # ~
//   - is valid UTF-8
//   - does not contain null bytes, control characters (< 0x20) or DEL (0x7f)
func IsValidObjectName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}

	if strings.ContainsAny(name, `/\?#~`) {
		return false
	}

	if strings.Contains(name, "..") {
		return false
	}

	if !utf8.ValidString(name) {
		return false
	}

	for _, r := range name {
		if r < 0x20 || r == 0x7f || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}

// FileExtension returns the lower-cased extension of filename without the dot,
// keeping only ASCII letters and digits. It returns "bin" when none remains.
func FileExtension(filename string) string {
	ext := strings.TrimPrefix(path.Ext(baseName(filename)), ".")

	var b strings.Builder
	for _, r := range strings.ToLower(ext) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}

	out := b.String()
	if out == "" || len(out) > maxExtensionLength {
		return fallbackExtension
	}

	return out
}

// ObjectNameFor returns the storage object name of a file: the id followed by
// the extension of the original filename.
func ObjectNameFor(id, originalFilename string) string {
	return id + "." + FileExtension(originalFilename)
}

// CoverObjectNameFor returns the storage object name of a cover image.
func CoverObjectNameFor(id, originalFilename string) string {
	ext := FileExtension(originalFilename)
	if ext == fallbackExtension {
		ext = "jpg"
	}
	return id + ".cover." + ext
}

// SanitizeDisplayName turns a client supplied filename into a title that is safe
// to store and echo back: NFC normalized, without directory components or
// control characters, whitespace collapsed, and bounded in length.
func SanitizeDisplayName(name string) string {
	name = norm.NFC.String(strings.ToValidUTF8(name, ""))
	name = baseName(name)

	var b strings.Builder
	space := false
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r):
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}

	out := b.String()
	if utf8.RuneCountInString(out) > maxDisplayNameRunes {
		out = string([]rune(out)[:maxDisplayNameRunes])
	}

	if out == "" || out == "." || out == ".." {
		return untitledName
	}

	return out
}

// DownloadName returns the filename offered to clients downloading the record.
// The stored extension is appended when the display name lacks it.
func (r FileRecord) DownloadName() string {
	name := r.DisplayName
	if name == "" {
		name = r.OriginalName
	}
	if name == "" {
		return r.StorageObjectName
	}

	ext := strings.TrimPrefix(path.Ext(r.StorageObjectName), ".")
	if ext == "" || ext == fallbackExtension {
		return name
	}
	if strings.EqualFold(strings.TrimPrefix(path.Ext(name), "."), ext) {
		return name
	}

	return name + "." + ext
}

func baseName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.ReplaceAll(name, "\x00", "")
}

func normalizeExtensions(exts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			out[e] = struct{}{}
		}
	}
	return out
}
