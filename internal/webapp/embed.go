// ABOUTME: Embeds HTML templates into the binary using go:embed
// ABOUTME: Provides templateFS for parsing templates at startup

package webapp

import "embed"

//go:embed templates/*.html
var templateFS embed.FS
