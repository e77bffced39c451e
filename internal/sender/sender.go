package sender

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/rkechols/bulk-sms/internal/recipients"
	"github.com/rkechols/bulk-sms/internal/services"
)

// maxConcurrentSends caps the fan-out so a big recipients file does not open
// an unbounded number of in-flight requests against the one connection pool.
const maxConcurrentSends = 8

// SendResult is the outcome for one recipient, tagged with the group it came
// from so failures can be retried by hand.
type SendResult struct {
	Group     string
	Number    string
	MessageID string
	Err       error
}

// Run sends the message to every number in every group, one API call per
// recipient, issued concurrently. A failed recipient never stops the others;
// its error is recorded in the result instead.
func Run(ctx context.Context, svc services.SMSServiceInterface, groups []recipients.GroupNumbers, message string) []SendResult {
	var results []SendResult
	for _, group := range groups {
		for _, number := range group.Numbers {
			results = append(results, SendResult{Group: group.Name, Number: number})
		}
	}

	eg := &errgroup.Group{}
	eg.SetLimit(maxConcurrentSends)
	for i := range results {
		i := i
		eg.Go(func() error {
			iden, err := svc.SendSMS(ctx, []string{results[i].Number}, message)
			// each goroutine owns exactly one slot, so no lock is needed
			results[i].MessageID = iden
			results[i].Err = err
			return nil
		})
	}
	// the group funcs always return nil; Wait is just the join point
	_ = eg.Wait()
	return results
}

// Summarize counts successes and failures.
func Summarize(results []SendResult) (sent, failed int) {
	for _, result := range results {
		if result.Err != nil {
			failed++
		} else {
			sent++
		}
	}
	return sent, failed
}

// Report writes the per-recipient outcomes and a final tally.
func Report(w io.Writer, results []SendResult) {
	fmt.Fprintln(w, "----- RESULTS -----")
	group := ""
	for _, result := range results {
		if result.Group != group {
			group = result.Group
			fmt.Fprintf(w, "%s:\n", group)
		}
		if result.Err != nil {
			fmt.Fprintf(w, "  %s: FAILED: %v\n", result.Number, result.Err)
		} else {
			fmt.Fprintf(w, "  %s: sent (message %s)\n", result.Number, result.MessageID)
		}
	}
	sent, failed := Summarize(results)
	fmt.Fprintf(w, "sent %d, failed %d\n", sent, failed)
}
