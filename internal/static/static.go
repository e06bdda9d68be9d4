// Package static embeds the dashboard page served at the site root.
package static

import "embed"

//go:embed index.html
var FS embed.FS

// Index returns the dashboard page.
func Index() []byte {
	bs, err := FS.ReadFile("index.html")
	if err != nil {
		// The file is embedded at build time; a read failure here means a
		// broken build.
		panic(err)
	}
	return bs
}
