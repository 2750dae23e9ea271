package upstream

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BulkCounts is the canonical result of a bulk endpoint.
//
// The admin API reports bulk outcomes in several shapes depending on the
// endpoint: {removed} for bulk delete, {succeeded, count?, failed?, message}
// for bulk approve/unapprove, and a per-id {results: [...]} list on newer
// endpoints. ParseBulkResponse folds all of them into this one shape so
// nothing past the client has to know which field a given endpoint used.
type BulkCounts struct {
	Succeeded int
	Failed    int
	Total     int
	// SucceededIDs is set when the response lists per-id outcomes, or when
	// every requested id succeeded. Nil means the subset is unknown.
	SucceededIDs []string
	// FailedIDs maps each failed id to the server's reason, when given.
	FailedIDs map[string]string
	Message   string
}

type bulkResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type bulkWire struct {
	Removed   *int         `json:"removed"`
	Succeeded *int         `json:"succeeded"`
	Count     *int         `json:"count"`
	Failed    *int         `json:"failed"`
	Message   string       `json:"message"`
	Results   []bulkResult `json:"results"`
}

// ParseBulkResponse normalizes a 2xx bulk response body for the ids that
// were requested.
//
// Precedence: per-id results, then succeeded, then removed, then count, then
// failed (Succeeded = Total-failed). A 2xx with none of them is read as
// "every id succeeded". Counts are clamped into [0, Total].
func ParseBulkResponse(body []byte, requested []string) (BulkCounts, error) {
	total := len(requested)
	out := BulkCounts{Total: total}

	var w bulkWire
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &w); err != nil {
			return BulkCounts{}, fmt.Errorf("upstream: decode bulk response: %w", err)
		}
	}
	out.Message = strings.TrimSpace(w.Message)

	if len(w.Results) > 0 {
		want := make(map[string]struct{}, total)
		for _, id := range requested {
			want[id] = struct{}{}
		}
		ok := make(map[string]struct{}, len(w.Results))
		for _, r := range w.Results {
			if _, asked := want[r.ID]; !asked {
				continue
			}
			if r.Success {
				ok[r.ID] = struct{}{}
				continue
			}
			if out.FailedIDs == nil {
				out.FailedIDs = make(map[string]string)
			}
			out.FailedIDs[r.ID] = r.Error
		}
		// Keep request order for the succeeded subset.
		out.SucceededIDs = make([]string, 0, len(ok))
		for _, id := range requested {
			if _, hit := ok[id]; hit {
				out.SucceededIDs = append(out.SucceededIDs, id)
			}
		}
		out.Succeeded = len(out.SucceededIDs)
		out.Failed = total - out.Succeeded
		return out, nil
	}

	switch {
	case w.Succeeded != nil:
		out.Succeeded = *w.Succeeded
	case w.Removed != nil:
		out.Succeeded = *w.Removed
	case w.Count != nil:
		out.Succeeded = *w.Count
	case w.Failed != nil:
		out.Succeeded = total - clamp(*w.Failed, 0, total)
	default:
		out.Succeeded = total
	}
	out.Succeeded = clamp(out.Succeeded, 0, total)

	// A success count wins over a disagreeing failed count: ids not reported
	// as succeeded are treated as unchanged.
	out.Failed = total - out.Succeeded

	if out.Failed == 0 && out.Succeeded == total {
		out.SucceededIDs = append([]string(nil), requested...)
	}
	return out, nil
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
