package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

const maxTagRows = 15

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime el reporte en el modo configurado.
func (c *Console) Notify(_ context.Context, r domain.Report) error {
	if r.Rows == 0 {
		fmt.Fprintf(c.out, "[%s] no data found for %s\n", time.Now().Format("15:04:05"), r.Wallet)
		return nil
	}

	if c.table {
		c.printFull(r)
	} else {
		c.printCompact(r)
	}
	return nil
}

// printCompact imprime una sola línea con los totales.
func (c *Console) printCompact(r domain.Report) {
	fmt.Fprintf(c.out, "[%s] %s %s → rows:%d trades:%d actions:%d",
		time.Now().Format("15:04:05"), r.Mode, compactName(r.Wallet, 12), r.Rows, r.Trades, r.Actions)
	if r.Positions.Bets > 0 {
		fmt.Fprintf(c.out, " | bets:%d pnl$%.2f roi%.2f%%", r.Positions.Bets, r.Positions.Profit, r.Positions.ROI*100)
	}
	if r.CLV != nil && r.CLV.Count > 0 {
		fmt.Fprintf(c.out, " | clv+ %.1f%%", r.CLV.PositivePercent)
	}
	if r.Artifact != "" {
		fmt.Fprintf(c.out, " → %s", r.Artifact)
	}
	fmt.Fprintln(c.out)
}

// printFull imprime las tablas de resumen, desglose por tag y CLV.
func (c *Console) printFull(r domain.Report) {
	fmt.Fprintf(c.out, "\n[%s] run %s | %s %s\n",
		time.Now().Format("15:04:05"), r.RunID, r.Mode, r.Wallet)

	table := tablewriter.NewWriter(c.out)
	table.Header("Rows", "Trades", "Actions", "Bets", "Profit", "Volume", "ROI", "Units")
	table.Append(
		fmt.Sprintf("%d", r.Rows),
		fmt.Sprintf("%d", r.Trades),
		fmt.Sprintf("%d", r.Actions),
		fmt.Sprintf("%d", r.Positions.Bets),
		fmt.Sprintf("$%.2f", r.Positions.Profit),
		fmt.Sprintf("$%.2f", r.Positions.Volume),
		fmt.Sprintf("%.2f%%", r.Positions.ROI*100),
		fmt.Sprintf("%.2f", r.Positions.Units),
	)
	table.Render()

	if len(r.Tags) > 0 {
		c.printTags(r.Tags)
	}
	if r.CLV != nil {
		c.printCLV(*r.CLV)
	}
	if r.Artifact != "" {
		fmt.Fprintf(c.out, "\n  exported to %s\n", r.Artifact)
	}
}

func (c *Console) printTags(tags []domain.TagStats) {
	fmt.Fprintf(c.out, "\n=== BY TAG (top %d) ===\n", min(len(tags), maxTagRows))

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Tag", "Bets", "Profit", "Volume", "ROI")
	for i, ts := range tags {
		if i >= maxTagRows {
			break
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(ts.Tag, 30),
			fmt.Sprintf("%d", ts.Bets),
			fmt.Sprintf("$%.2f", ts.Profit),
			fmt.Sprintf("$%.2f", ts.Volume),
			fmt.Sprintf("%.2f%%", ts.ROI*100),
		)
	}
	table.Render()
}

func (c *Console) printCLV(s domain.CLVSummary) {
	fmt.Fprintln(c.out, "\n=== CLOSING LINE VALUE ===")
	if s.Count == 0 {
		fmt.Fprintln(c.out, "  no bets with computable CLV")
		return
	}
	fmt.Fprintf(c.out, "  Bets with CLV: %d\n", s.Count)
	fmt.Fprintf(c.out, "  Positive: %.1f%%  Zero: %.1f%%  Negative: %.1f%%\n",
		s.PositivePercent, s.ZeroPercent, s.NegativePercent)
	fmt.Fprintf(c.out, "  Odds CLV mean: %.4f  median: %.4f\n", s.MeanOddsCLV, s.MedianOddsCLV)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// compactName acorta direcciones como 0x1234…abcd.
func compactName(s string, maxLen int) string {
	if len(s) <= maxLen || maxLen < 6 {
		return s
	}
	half := (maxLen - 1) / 2
	return s[:half] + "…" + s[len(s)-half:]
}
