//go:build !prod

package goflot

import "embed"

// In dev builds the web UI is not embedded; run with a reverse proxy or use
// the prod build tag to get the bundled page.
var webuiFiles embed.FS
