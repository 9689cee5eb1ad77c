package catalog

import "github.com/EmpoweredVote/academic-portal/internal/api"

// CareerView is a career plus the semesters it spans.
type CareerView struct {
	api.Career
	Semesters []int `json:"semestres"`
}

// ResourceView is a resource plus how to present and download it.
type ResourceView struct {
	api.Resource
	Kind        RenderKind `json:"kind"`
	DownloadURL string     `json:"download_url"`
}

// ResourceInput is the body of resource create and update requests.
type ResourceInput struct {
	Title      string `json:"titulo"`
	Theme      string `json:"tema"`
	CategoryID int    `json:"id_categoria"`
	URL        string `json:"url"`
}

// NewResourceView decorates r for the front end.
func NewResourceView(r api.Resource) ResourceView {
	return ResourceView{
		Resource:    r,
		Kind:        RenderKindFor(r.CategoryID),
		DownloadURL: DownloadURL(r.URL),
	}
}
