// Package webassets embeds an HTML body for the protocol probe's HTTP
// fallback responses (SPEC_FULL.md §4.R) as a statik asset rendered
// through html/template. The probe's own 307/501 responses
// (internal/probe) are built from inline strings and do not read this
// package.
//
// Grounded on the teacher's rakyll/statik dependency declaration. A
// statik-generated package normally embeds a zip archive produced by
// `go generate` and registers it via fs.Register/fs.New; that codegen
// step can't run here, so this package builds the same small zip
// archive at init time and registers it through the real statik/fs
// runtime API instead of faking the file system interface.
package webassets

import (
	"archive/zip"
	"bytes"
	"html/template"
	"net/http"

	"github.com/rakyll/statik/fs"
)

const probePage = `<html>
<head><title>{{.Title}}</title></head>
<body>
<center><h1>{{.Title}}</h1></center>
{{if .Location}}<hr><center><a href="{{.Location}}">Redirect</a></center>{{end}}
</body>
</html>
`

var probeTemplate = template.Must(template.New("probe").Parse(probePage))

// ProbePage renders the probe's fallback HTML body. When location is
// non-empty the page includes a redirect link (the 307 case);
// otherwise it renders the bare 501 page.
func ProbePage(title, location string) ([]byte, error) {
	var buf bytes.Buffer
	err := probeTemplate.Execute(&buf, struct{ Title, Location string }{title, location})
	return buf.Bytes(), err
}

func init() {
	body, err := ProbePage("501 Not Implemented", "")
	if err != nil {
		return
	}
	archive, err := buildZip("/probe_501.html", body)
	if err != nil {
		return
	}
	fs.Register(archive)
}

// buildZip produces the single-file zip archive statik's runtime
// expects, with name stored at its root.
func buildZip(name string, body []byte) (string, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create(name)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(body); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FS returns the embedded asset file system, containing
// /probe_501.html.
func FS() (http.FileSystem, error) {
	return fs.New()
}
