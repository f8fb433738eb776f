//go:build prod

package goflot

import "embed"

//go:embed webui
var webuiFiles embed.FS
