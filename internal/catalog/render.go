package catalog

import (
	"net/url"
	"strings"
)

// RenderKind tells the front end how to present a resource.
type RenderKind string

const (
	RenderImage RenderKind = "image"
	RenderPDF   RenderKind = "pdf"
	RenderFile  RenderKind = "file"
	RenderLink  RenderKind = "link"
)

// RenderKindFor maps a resource category to its presentation. Unknown
// categories are shown as links.
func RenderKindFor(categoryID int) RenderKind {
	switch categoryID {
	case 1:
		return RenderImage
	case 2:
		return RenderPDF
	case 3:
		return RenderFile
	default:
		return RenderLink
	}
}

const (
	cloudinaryHost = "res.cloudinary.com"
	uploadSegment  = "/upload/"
	attachmentFlag = "fl_attachment"
)

// DownloadURL rewrites a Cloudinary delivery URL so the browser downloads the
// file instead of displaying it. Other URLs are returned unchanged.
func DownloadURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !strings.EqualFold(u.Hostname(), cloudinaryHost) {
		return raw
	}

	i := strings.Index(u.Path, uploadSegment)
	if i < 0 {
		return raw
	}
	rest := u.Path[i+len(uploadSegment):]
	if rest == attachmentFlag || strings.HasPrefix(rest, attachmentFlag+"/") {
		return raw
	}

	u.Path = u.Path[:i+len(uploadSegment)] + attachmentFlag + "/" + rest
	u.RawPath = ""
	return u.String()
}
