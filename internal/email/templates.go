package email

import (
	"bytes"
	"fmt"
	"html/template"
)

const layout = `{{define "layout"}}<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
{{template "body" .}}
<p style="margin-top: 30px; font-size: 12px; color: #666;">Meet-OS</p>
</body>
</html>{{end}}`

var bodies = map[string]string{
	"verification": `{{define "body"}}
<p>Hi {{.User.Name}},</p>
<p>Someone, probably you, registered at Meet-OS with this email address.
To confirm, please click on this link: <a href="{{.Link}}">{{.Link}}</a></p>
<p>If you did not register, you can safely ignore this email.</p>
{{end}}`,

	"reset-password": `{{define "body"}}
<p>Hi {{.User.Name}},</p>
<p>Someone asked to reset the password of your Meet-OS account.
To set a new password, click on this link: <a href="{{.Link}}">{{.Link}}</a></p>
<p>If you did not ask for this, you can safely ignore this email. Your password will remain unchanged.</p>
{{end}}`,

	"password-changed": `{{define "body"}}
<p>Hi {{.User.Name}},</p>
<p>The password of your Meet-OS account was changed.</p>
{{end}}`,

	"admin-new-user": `{{define "body"}}
<p>A new user registered: {{.User.Name}} &lt;{{.User.Email}}&gt;</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
{{end}}`,

	"admin-user-verified": `{{define "body"}}
<p>{{.User.Name}} &lt;{{.User.Email}}&gt; verified their email address.</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
{{end}}`,

	"group-created": `{{define "body"}}
<p>Hi {{.User.Name}},</p>
<p>A new group called <b>{{.Group.Name}}</b> was created and you are its owner.</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
{{end}}`,

	"member-joined": `{{define "body"}}
<p>Hi {{.User.Name}},</p>
<p><a href="{{.MemberLink}}">{{.Member.Name}}</a> joined the <a href="{{.Link}}">{{.Group.Name}}</a> group.</p>
{{end}}`,

	"member-left": `{{define "body"}}
<p>Hi {{.User.Name}},</p>
<p><a href="{{.MemberLink}}">{{.Member.Name}}</a> left the <a href="{{.Link}}">{{.Group.Name}}</a> group.</p>
{{end}}`,

	"group-message": `{{define "body"}}
<p>Message to the members of the <a href="{{.Link}}">{{.Group.Name}}</a> group.</p>
<hr>
{{.Content}}
{{end}}`,
}

type templates map[string]*template.Template

func parseTemplates() (templates, error) {
	out := make(templates, len(bodies))
	for name, body := range bodies {
		t, err := template.New(name).Parse(layout)
		if err != nil {
			return nil, fmt.Errorf("parse email layout: %w", err)
		}
		if _, err := t.Parse(body); err != nil {
			return nil, fmt.Errorf("parse email template %s: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

func (t templates) render(name string, data any) (string, error) {
	tmpl, ok := t[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %s", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
