package drivers

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// DecodeDataURI decodes a data URI (base64 or percent-encoded) into its
// raw bytes and MIME type. The queue carries incident media in this
// form until the first successful upload.
func DecodeDataURI(uri string) ([]byte, string, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", fmt.Errorf("not a data URI")
	}

	header, data, found := strings.Cut(uri[len("data:"):], ",")
	if !found {
		return nil, "", fmt.Errorf("malformed data URI: missing comma separator")
	}

	isBase64 := strings.HasSuffix(header, ";base64")
	mediaType := strings.TrimSuffix(header, ";base64")
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	if isBase64 {
		raw, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, "", fmt.Errorf("failed to decode base64 data: %w", err)
		}
		return raw, mediaType, nil
	}

	raw, err := url.QueryUnescape(data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode percent-encoded data: %w", err)
	}
	return []byte(raw), mediaType, nil
}

// extensionFor maps a MIME type to the file extension used in generated
// object paths.
func extensionFor(mediaType string) string {
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "audio/webm", "video/webm":
		return ".webm"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	default:
		return ".bin"
	}
}
