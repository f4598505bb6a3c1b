package render

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
)

// BannerInfo contains information to display when a session starts.
type BannerInfo struct {
	// Host is the name of the embedding process.
	Host string
	// Version is the host's version string (empty to omit).
	Version string
	// StartedAt is when the host process started.
	StartedAt time.Time
	// Session is this session's identifier.
	Session string
}

// RenderBanner writes the session banner to w.
func RenderBanner(w io.Writer, info BannerInfo) {
	title := "debug console"
	if info.Host != "" {
		title = info.Host + " debug console"
	}
	fmt.Fprintln(w, TitleStyle.Render(title))

	if info.Version != "" {
		fmt.Fprintln(w, LabelStyle.Render("version: ")+ValueStyle.Render(info.Version))
	}
	if !info.StartedAt.IsZero() {
		fmt.Fprintln(w, LabelStyle.Render("up:      ")+ValueStyle.Render(humanize.Time(info.StartedAt)))
	}
	if info.Session != "" {
		fmt.Fprintln(w, LabelStyle.Render("session: ")+ValueStyle.Render(info.Session))
	}

	fmt.Fprintln(w, DimStyle.Render("type help for commands, exit to leave"))
}
