// Package views embeds the HTML templates.
package views

import "embed"

// FS holds the *.html templates.
//
//go:embed *.html
var FS embed.FS
