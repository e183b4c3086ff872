package download

import (
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// DefaultFilename is used when neither the response nor the URL names the file
const DefaultFilename = "downloaded_model.glb"

const glbExt = ".glb"

var dispositionFilename = regexp.MustCompile(`filename="?([^;"]+)"?`)

// InferFilename picks the local file name for a download: the
// Content-Disposition filename when present, else the URL's base name when
// it already ends in .glb, else DefaultFilename. The result always ends in
// .glb and never contains a directory.
func InferFilename(contentDisposition, rawURL string) string {
	name := DefaultFilename

	if contentDisposition != "" {
		if _, params, err := mime.ParseMediaType(contentDisposition); err == nil && params["filename"] != "" {
			name = params["filename"]
		} else if m := dispositionFilename.FindStringSubmatch(contentDisposition); m != nil {
			name = m[1]
		}
	} else if u, err := url.Parse(rawURL); err == nil && strings.HasSuffix(u.Path, glbExt) {
		name = path.Base(u.Path)
	}

	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == ".." || name == "/" || name == "" {
		name = DefaultFilename
	}
	if !strings.HasSuffix(strings.ToLower(name), glbExt) {
		name += glbExt
	}
	return name
}
