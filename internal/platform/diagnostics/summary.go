package diagnostics

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Count is one entry of a frequency table.
type Count struct {
	Key   string
	Count int
}

type ServerSummary struct {
	Total      int
	ErrorTypes []Count
	Endpoints  []Count
	Recent     []ServerError
}

type ClientSummary struct {
	Total      int
	ErrorTypes []Count
	Screens    []Count
}

// SummarizeServer ranks error types and endpoints, top n of each, and keeps
// the last three events in file order.
func SummarizeServer(events []ServerError, n int) ServerSummary {
	s := ServerSummary{
		Total: len(events),
		ErrorTypes: top(lo.CountValuesBy(events, func(e ServerError) string {
			return orUnknown(e.ErrorType)
		}), n),
		Endpoints: top(lo.CountValuesBy(events, func(e ServerError) string {
			return e.Method + " " + e.Path
		}), n),
	}
	if len(events) > 3 {
		s.Recent = events[len(events)-3:]
	} else {
		s.Recent = events
	}
	return s
}

func SummarizeClient(events []ClientError, n int) ClientSummary {
	return ClientSummary{
		Total: len(events),
		ErrorTypes: top(lo.CountValuesBy(events, func(e ClientError) string {
			return orUnknown(e.ErrorType)
		}), n),
		Screens: top(lo.CountValuesBy(events, func(e ClientError) string {
			return orUnknown(e.Screen)
		}), n),
	}
}

// top orders by count, then key, and keeps the first n.
func top(counts map[string]int, n int) []Count {
	out := lo.MapToSlice(counts, func(k string, v int) Count {
		return Count{Key: k, Count: v}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

// WriteReport prints both summaries in plain text.
func WriteReport(w io.Writer, server ServerSummary, client ClientSummary) {
	if server.Total == 0 {
		fmt.Fprintln(w, "No server errors recorded.")
	} else {
		fmt.Fprintf(w, "Server errors: %d\n", server.Total)
		writeCounts(w, "Top error types", server.ErrorTypes)
		writeCounts(w, "Top endpoints", server.Endpoints)
		fmt.Fprintln(w, "\nMost recent:")
		for _, e := range server.Recent {
			fmt.Fprintf(w, "  [%s] %s: %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.ErrorType, e.Message)
			fmt.Fprintf(w, "      %s %s (%d)\n", e.Method, e.Path, e.Status)
		}
	}

	if client.Total == 0 {
		return
	}
	fmt.Fprintf(w, "\nClient errors: %d\n", client.Total)
	writeCounts(w, "Top error types", client.ErrorTypes)
	writeCounts(w, "Top screens", client.Screens)
}

func writeCounts(w io.Writer, title string, counts []Count) {
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, c := range counts {
		fmt.Fprintf(w, "  %-40s %d\n", c.Key, c.Count)
	}
}
