// Package swagger serves the OpenAPI document and a ReDoc page for it.
package swagger

import (
	"context"
	"net/http"
)

const (
	docsPath = "/api-docs"
	specPath = "/openapi.yaml"

	redocScript = "https://cdn.redoc.ly/redoc/v2.1.5/bundles/redoc.standalone.js"
)

// Register mounts GET /api-docs (ReDoc) and GET /openapi.yaml on mux.
// Other methods on those paths get 405 from the mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET "+docsPath, static("text/html; charset=utf-8", []byte(docsPage)))
	mux.Handle("GET "+specPath, static("application/yaml; charset=utf-8", OpenAPI))
}

func static(contentType string, body []byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	})
}

const docsPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>upskill API</title>
  </head>
  <body style="margin:0">
    <div id="redoc-container"></div>
    <script src="` + redocScript + `"></script>
    <script>Redoc.init('` + specPath + `', { hideDownloadButton: false }, document.getElementById('redoc-container'));</script>
  </body>
</html>`
