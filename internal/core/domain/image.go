package domain

import (
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ImagePrefix est à la fois le préfixe des clés de stockage et le chemin public.
const ImagePrefix = "images"

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpg":  true,
	"image/jpeg": true,
}

// IsAllowedImageType applique le filtre mime {png, jpg, jpeg}.
func IsAllowedImageType(mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return allowedImageTypes[mt]
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// NewImageKey construit une clé unique "images/<ownerID>/<uuid>_<nom>" :
// l'uploader est encodé dans la clé.
func NewImageKey(ownerID, originalName string) string {
	base := path.Base(strings.ReplaceAll(originalName, `\`, "/"))
	base = unsafeChars.ReplaceAllString(base, "-")
	if base == "" || base == "." || base == "/" {
		base = "image"
	}
	return ImagePrefix + "/" + ownerSegment(ownerID) + "/" + uuid.NewString() + "_" + base
}

func ownerSegment(ownerID string) string {
	seg := strings.Trim(unsafeChars.ReplaceAllString(ownerID, "-"), ".")
	if seg == "" {
		return "_"
	}
	return seg
}

// ImageOwner extrait l'uploader d'une référence "images/<ownerID>/<fichier>".
func ImageOwner(ref string) (string, bool) {
	clean, ok := CleanImagePath(ref)
	if !ok {
		return "", false
	}
	owner, file, ok := strings.Cut(strings.TrimPrefix(clean, ImagePrefix+"/"), "/")
	if !ok || owner == "" || file == "" || strings.Contains(file, "/") {
		return "", false
	}
	return owner, true
}

// CheckImageOwner normalise ref et vérifie qu'elle a été uploadée par userID.
func CheckImageOwner(ref, userID string) (string, error) {
	owner, ok := ImageOwner(ref)
	if !ok || owner != ownerSegment(userID) {
		verr := &ValidationError{}
		verr.Add("imageUrl", "Image was not uploaded by you")
		return "", verr
	}
	clean, _ := CleanImagePath(ref)
	return clean, nil
}

// CleanImagePath normalise une référence d'image (séparateurs POSIX, pas de "/" initial)
// et refuse toute sortie du préfixe images/.
func CleanImagePath(ref string) (string, bool) {
	p := path.Clean("/" + strings.ReplaceAll(ref, `\`, "/"))
	p = strings.TrimPrefix(p, "/")
	if !strings.HasPrefix(p, ImagePrefix+"/") {
		return "", false
	}
	return p, true
}
