// Package appfs exposes the embedded static assets: goose migrations and
// email templates.
package appfs

import "embed"

//go:embed migrations all:templates
var FS embed.FS
