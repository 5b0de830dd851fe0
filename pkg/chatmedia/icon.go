package chatmedia

import (
	"bytes"
	"encoding/base64"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"
)

// IconSize is the bounding box for stored group icons and contact avatars.
const IconSize = 128

// NormalizeIcon shrinks a base64 image to fit IconSize x IconSize and
// re-encodes it as PNG. Content that cannot be decoded is returned unchanged.
func NormalizeIcon(content string) string {
	if content == "" {
		return ""
	}
	raw, err := DecodeBase64(content)
	if err != nil {
		return content
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		logrus.Debugf("[CHATMEDIA] icon not decodable, keeping original: %v", err)
		return content
	}

	b := img.Bounds()
	if b.Dx() > IconSize || b.Dy() > IconSize {
		img = imaging.Fit(img, IconSize, IconSize, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return content
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}
