package chatmedia

import (
	"encoding/base64"
	"strings"
)

// Media kinds understood by the gateway's sendMedia endpoint.
const (
	KindImage    = "image"
	KindVideo    = "video"
	KindAudio    = "audio"
	KindDocument = "document"
)

// Subtypes whose name is not the usual file extension.
var subtypeExtensions = map[string]string{
	"plain":        "txt",
	"quicktime":    "mov",
	"jpeg":         "jpg",
	"msword":       "doc",
	"vnd.ms-excel": "xls",

	"vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"vnd.openxmlformats-officedocument.spreadsheetml.sheet":       "xlsx",
}

var mimeExtensions = map[string]string{
	"audio/mpeg": "mp3",
}

var kindExtensions = map[string]string{
	KindImage:    "jpg",
	KindVideo:    "mp4",
	KindAudio:    "ogg",
	KindDocument: "bin",
}

// ExtensionForMime derives a file extension from a MIME type, e.g.
// "text/plain" -> "txt", "audio/ogg; codecs=opus" -> "ogg".
// It returns "" when the MIME type has no subtype.
func ExtensionForMime(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if !strings.Contains(mimeType, "/") {
		return ""
	}
	base := strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	if ext, ok := mimeExtensions[base]; ok {
		return ext
	}

	sub := base[strings.LastIndex(base, "/")+1:]
	if ext, ok := subtypeExtensions[sub]; ok {
		return ext
	}
	return sub
}

// ResolveFileName returns the name an inbound attachment is stored under.
// A declared name with a dot-extension is kept verbatim; otherwise the
// extension comes from the MIME type, or from the media kind as last resort.
func ResolveFileName(declared, kind, mimeType string) string {
	defaultName := "whatsapp_" + kind
	name := strings.TrimSpace(declared)
	if name == "" {
		name = defaultName
	}
	if name != defaultName && strings.Contains(name, ".") {
		return name
	}

	ext := ExtensionForMime(mimeType)
	if ext == "" {
		ext = kindExtensions[kind]
	}
	if ext == "" {
		return name
	}
	return name + "." + ext
}

// KindForMime maps an attachment MIME type to a gateway media kind.
func KindForMime(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "image"):
		return KindImage
	case strings.Contains(mimeType, "video"):
		return KindVideo
	case strings.Contains(mimeType, "audio"):
		return KindAudio
	default:
		return KindDocument
	}
}

// StripDataURI drops a "data:<mime>;base64," prefix so only raw base64 remains.
func StripDataURI(content string) string {
	if i := strings.Index(content, ","); i >= 0 {
		return content[i+1:]
	}
	return content
}

// DecodeBase64 decodes attachment content, tolerating a data-URI prefix and
// missing padding.
func DecodeBase64(content string) ([]byte, error) {
	raw := strings.TrimSpace(StripDataURI(content))
	data, err := base64.StdEncoding.DecodeString(raw)
	if err == nil {
		return data, nil
	}
	if alt, altErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(raw, "=")); altErr == nil {
		return alt, nil
	}
	return nil, err
}
