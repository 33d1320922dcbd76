// Package resources embeds the HTML templates.
package resources

import "embed"

//go:embed views
var Views embed.FS
