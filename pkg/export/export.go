// Package export renders a snapshot into its export representations. These
// are pure serializations of the record fields; no independent logic.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/flowrank/flowrank/internal/snapshot"
)

// WriteJSON writes the snapshot as indented JSON.
func WriteJSON(w io.Writer, snap *snapshot.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// WriteText writes the snapshot as an aligned plain-text table.
func WriteText(w io.Writer, snap *snapshot.Snapshot) error {
	refreshed := "never"
	if snap.Refreshed() {
		refreshed = snap.LastRefresh.Format(time.RFC3339)
	}
	if _, err := fmt.Fprintf(w, "%d workflows, last refresh: %s\n\n", len(snap.Records), refreshed); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tSOURCE\tREGION\tVIEWS\tWORKFLOW")
	for _, rec := range snap.Records {
		fmt.Fprintf(tw, "%.2f\t%s\t%s\t%d\t%s\n",
			rec.Metrics.EngagementScore, rec.Source, rec.Region,
			rec.Metrics.Views, rec.Workflow)
	}
	return tw.Flush()
}
