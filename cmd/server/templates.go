package main

import (
	"bytes"
	"html/template"
	"net/http"
	"path"

	"go.uber.org/zap"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{range .Stylesheets}}<link rel="stylesheet" type="text/css" href="{{.}}">
{{end}}{{range .Scripts}}<script type="text/javascript" src="{{.}}"></script>
{{end}}</head>
<body>
<div id="navigation">
<p><a href="/">Home</a>&nbsp;<a href="..">Up</a>&nbsp;</p>
<p class="title">{{.Title}}</p>
<p>{{if .Username}}{{.Username}}&nbsp;{{end}}<a href="/auth/logout">logout</a></p>
</div>
<div id="container">
<div id="content"></div>
<div id="messages"></div>
<div id="extra"></div>
</div>
</body>
</html>
`))

var loginTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Login</title>
</head>
<body>
{{if .Message}}<p class="error">{{.Message}}</p>
{{end}}<form method="post" action="/auth/login">
<input type="hidden" name="next" value="{{.Next}}">
<p><label>Username <input type="text" name="username"></label></p>
<p><label>Password <input type="password" name="password"></label></p>
<p><input type="submit" value="Login"></p>
</form>
</body>
</html>
`))

type pageData struct {
	Title       string
	Username    string
	Stylesheets []string
	Scripts     []string
}

// newPageData lists the editor's stylesheets and scripts under the static
// prefix, in load order.
func newPageData(static, title string) pageData {
	data := pageData{Title: title}
	for _, name := range []string{"common.css", "ui.css", "db.css"} {
		data.Stylesheets = append(data.Stylesheets, path.Join("/", static, "css", name))
	}
	for _, name := range []string{"MochiKit.js", "proxy.js", "ui.js", "db.js", "countryset.js"} {
		data.Scripts = append(data.Scripts, path.Join("/", static, "js", name))
	}
	return data
}

func renderPage(w http.ResponseWriter, status int, data pageData) {
	render(w, status, pageTemplate, data)
}

func (s *Server) renderLogin(w http.ResponseWriter, status int, next, message string) {
	render(w, status, loginTemplate, struct{ Next, Message string }{next, message})
}

// render buffers the output; nothing is written when execution fails.
func render(w http.ResponseWriter, status int, t *template.Template, data any) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		zap.S().Errorw("failed to render template", "template", t.Name(), "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
