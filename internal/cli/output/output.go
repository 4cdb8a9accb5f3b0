package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/healthmate/server/internal/cli/api"
)

// Stdout is where every printer writes; tests swap it.
var Stdout io.Writer = os.Stdout

// JSON prints v as indented JSON.
func JSON(v interface{}) {
	enc := json.NewEncoder(Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func RecordTable(records []api.Record) {
	if len(records) == 0 {
		fmt.Fprintln(Stdout, "No records found.")
		return
	}

	w := tabwriter.NewWriter(Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tUPLOADED")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\n", r.ID, r.FileName, RelativeTime(r.CreatedAt))
	}
	w.Flush()
}

func UserInfo(me api.MeResponse) {
	w := tabwriter.NewWriter(Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s %s\n", me.User.FirstName, me.User.LastName)
	fmt.Fprintf(w, "Email:\t%s\n", me.User.Email)
	fmt.Fprintf(w, "ID:\t%d\n", me.User.ID)
	fmt.Fprintf(w, "Turns:\t%d\n", me.TranscriptLength)
	if !me.SessionExpiresAt.IsZero() {
		fmt.Fprintf(w, "Session expires:\t%s\n", me.SessionExpiresAt.Local().Format(time.RFC1123))
	}
	w.Flush()
}

// Transcript prints each turn prefixed with who said it.
func Transcript(turns []api.Turn) {
	for _, turn := range turns {
		Turn(turn)
	}
}

func Turn(turn api.Turn) {
	speaker := "You"
	if turn.Role == "assistant" {
		speaker = "CuraBot"
	}
	fmt.Fprintf(Stdout, "%s: %s\n\n", speaker, strings.TrimSpace(turn.Content))
}

func ActivityTable(entries []api.ActivityEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(Stdout, "No activity recorded.")
		return
	}

	w := tabwriter.NewWriter(Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tACTION\tIP")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", RelativeTime(e.CreatedAt), e.Action, e.IPAddress)
	}
	w.Flush()
}

// RelativeTime formats a timestamp relative to now (e.g. "2h ago", "3d ago").
func RelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// FormatSize renders a byte count in human-readable units.
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
