package main

import (
	"fmt"
	"io"
	"time"

	nameusecase "marketsync/internal/feature/names/usecase"
)

func printStatus(w io.Writer, st nameusecase.CacheStatus, horizonDays int) {
	fmt.Fprintln(w, "=== Asset Names Cache Status ===")
	fmt.Fprintf(w, "Total cached names: %d\n", st.Total)
	fmt.Fprintf(w, "Recent names (< %d days): %d\n", horizonDays, st.Recent)
	fmt.Fprintf(w, "Old names (> %d days): %d\n", horizonDays, st.Old)

	if len(st.Samples) == 0 {
		return
	}
	fmt.Fprintln(w, "\nRecent cache entries:")
	for _, e := range st.Samples {
		fmt.Fprintf(w, "  %s: %s (updated: %s)\n", e.Symbol, e.StatusLabel(), e.LastUpdated.Format(time.DateOnly))
	}
}

func printReport(w io.Writer, rep nameusecase.PrefetchReport) {
	fmt.Fprintf(w, "Requested: %d, already cached: %d, fetched: %d, failed: %d\n",
		rep.Requested, rep.Cached, rep.Fetched, rep.Failed)
}
