package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

const (
	rowFormat    = "%-12s %5s %5s %9s %5s %5s %10s %10s %10s %10s %10s\n"
	creditFormat = "%-12s %-12s %10s\n"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func carry(left, right int64) string {
	return fmt.Sprintf("%d/%d", left, right)
}

// WriteText renders day as a fixed-width table followed by its sponsor credits.
func WriteText(w io.Writer, day Day) error {
	ew := &errWriter{w: w}

	ew.printf("Settlement report %s\n\n", day.Date)
	ew.printf(rowFormat, "PARTICIPANT", "LEFT", "RIGHT", "CARRY", "PAIRS", "WASH",
		"BONUS", "BINARY", "FLASHOUT", "SPONSOR", "TOTAL")
	for _, s := range day.Settlements {
		ew.printf(rowFormat, s.ParticipantID,
			fmt.Sprint(s.LeftJoins), fmt.Sprint(s.RightJoins),
			carry(s.LeftCarryAfter, s.RightCarryAfter),
			fmt.Sprint(s.Pairs), fmt.Sprint(s.WashedPairs),
			money(s.EligibilityBonus), money(s.BinaryIncome), money(s.FlashoutAmount),
			money(s.SponsorIncome), money(s.Total))
	}
	t := day.Totals
	ew.printf(rowFormat, "TOTAL", "", "", "",
		fmt.Sprint(t.Pairs), fmt.Sprint(t.WashedPairs),
		money(t.EligibilityBonus), money(t.BinaryIncome), money(t.FlashoutAmount),
		money(t.SponsorIncome), money(t.Total))

	ew.printf("\nSponsor credits\n\n")
	if len(day.Credits) == 0 {
		ew.printf("none\n")
		return ew.err
	}
	ew.printf(creditFormat, "RECEIVER", "CHILD", "AMOUNT")
	for _, c := range day.Credits {
		ew.printf(creditFormat, c.ReceiverID, c.ChildID, money(c.Amount))
	}
	return ew.err
}

// WriteSummary renders a run summary for the terminal.
func WriteSummary(w io.Writer, s Summary) error {
	ew := &errWriter{w: w}

	ew.printf("Run %s for %s: %s\n", s.RunID, s.RunDate, s.Status)
	ew.printf("  participants  %d (settled %d, already settled %d, failed %d)\n",
		s.Participants, s.Settled, s.AlreadySettled, s.Failed)
	ew.printf("  credits       issued %d, skipped %d, forfeited %d, route failures %d\n",
		s.CreditsIssued, s.CreditsSkipped, s.CreditsForfeited, s.RouteFailures)
	ew.printf("  paid          bonus %s, binary %s, flashout %s, sponsor %s\n",
		money(s.EligibilityBonus), money(s.BinaryIncome), money(s.FlashoutAmount), money(s.SponsorIncome))
	ew.printf("  duration      %dms\n", s.DurationMS)
	for _, f := range s.Failures {
		ew.printf("  failed        %s [%s]: %s\n", f.ParticipantID, f.Phase, f.Error)
	}
	return ew.err
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// errWriter keeps the first write error so rendering reads straight through.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
