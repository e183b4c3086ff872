package domain

// PreviewKind names one of the preview images a result can carry
type PreviewKind string

// Known preview kinds
const (
	PreviewImage             PreviewKind = "image"
	PreviewGIF               PreviewKind = "gif"
	PreviewIntermediateImage PreviewKind = "intermediate_image"
	PreviewIntermediateGIF   PreviewKind = "intermediate_gif"
)

// Preview is a remote preview image. ImageName is set once the image has
// been loaded into the document.
type Preview struct {
	Kind      PreviewKind `json:"kind"`
	URL       string      `json:"url"`
	ImageName string      `json:"image_name,omitempty"`
}

// Loaded reports whether the preview has a document image
func (p Preview) Loaded() bool {
	return p.ImageName != ""
}

// Result is one generated variant of a job
type Result struct {
	AssetID  string    `json:"asset_id"`
	ModelURL string    `json:"model_url"`
	Previews []Preview `json:"previews"`
	Saved    bool      `json:"saved"`
}

// Preview returns the preview of the given kind
func (r *Result) Preview(kind PreviewKind) (Preview, bool) {
	for _, p := range r.Previews {
		if p.Kind == kind {
			return p, true
		}
	}
	return Preview{}, false
}

// SetPreviewImage records the loaded image name for a preview kind
func (r *Result) SetPreviewImage(kind PreviewKind, imageName string) {
	for i := range r.Previews {
		if r.Previews[i].Kind == kind {
			r.Previews[i].ImageName = imageName
			return
		}
	}
}

// PreviewImageID is the document image name used for a preview
func (r *Result) PreviewImageID(kind PreviewKind) string {
	return r.AssetID + "_" + string(kind)
}

// LoadedImages returns the names of every loaded preview image
func (r *Result) LoadedImages() []string {
	var names []string
	for _, p := range r.Previews {
		if p.Loaded() {
			names = append(names, p.ImageName)
		}
	}
	return names
}

func (r *Result) mergePreview(pv Preview) {
	for i := range r.Previews {
		if r.Previews[i].Kind == pv.Kind {
			if pv.URL != "" {
				r.Previews[i].URL = pv.URL
			}
			return
		}
	}
	r.Previews = append(r.Previews, pv)
}
