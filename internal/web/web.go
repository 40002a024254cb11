package web

import (
	"html/template"
	"net/http"

	"github.com/local/psdconvert/internal/config"
)

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>PSD to PNG Converter</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, 'Segoe UI', Roboto, sans-serif;
            background: #f5f5f5;
            color: #222;
            line-height: 1.6;
        }
        .container { max-width: 640px; margin: 0 auto; padding: 3rem 1.5rem; }
        h1 { font-size: 1.8rem; margin-bottom: 1rem; }
        form { background: #fff; border: 1px solid #ddd; border-radius: 8px; padding: 1.5rem; margin-bottom: 2rem; }
        input[type=file] { display: block; margin-bottom: 1rem; }
        button {
            background: #2563eb; color: #fff; border: none;
            padding: 0.6rem 1.4rem; border-radius: 6px; cursor: pointer;
        }
        .limits { color: #666; font-size: 0.9rem; }
        .limits li { margin-left: 1.2rem; }
    </style>
</head>
<body>
    <div class="container">
        <h1>PSD to PNG Converter</h1>
        <form action="/convert" method="post" enctype="multipart/form-data">
            <input type="file" name="files" accept=".psd" multiple required>
            <button type="submit">Convert</button>
        </form>
        <div class="limits">
            <p>Limits:</p>
            <ul>
                <li>up to {{.MaxFiles}} files per request</li>
                <li>up to {{.MaxSingleMB}}MB per file</li>
                <li>up to {{.MaxTotalMB}}MB per request</li>
            </ul>
        </div>
    </div>
</body>
</html>`

// Web serves the landing page with the active limits rendered in.
type Web struct {
	tpl    *template.Template
	limits config.LimitsConfig
}

func New(limits config.LimitsConfig) *Web {
	return &Web{
		tpl:    template.Must(template.New("index").Parse(indexTemplate)),
		limits: limits,
	}
}

func (w *Web) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", w.handleIndex)
}

func (w *Web) handleIndex(wr http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(wr, r)
		return
	}
	wr.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = w.tpl.Execute(wr, map[string]any{
		"MaxFiles":    w.limits.MaxFilesCount,
		"MaxSingleMB": w.limits.MaxSingleFileSize / (1024 * 1024),
		"MaxTotalMB":  w.limits.MaxTotalRequestSize / (1024 * 1024),
	})
}
