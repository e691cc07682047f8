package templates

import "embed"

// PagesFS holds the HTML pages. layout.html wraps every other page, which
// defines a "content" block.
//
//go:embed pages/*.html
var PagesFS embed.FS

// StaticFS contains files served as-is under /static/.
//
//go:embed static/*
var StaticFS embed.FS
