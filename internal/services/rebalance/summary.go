package rebalance

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/vadiminshakov/folio/internal/domain"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"})
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"})
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// RenderReport formats a run report for the terminal.
func RenderReport(r domain.RunReport) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Rebalance %s", r.ID)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("mode %s · stage %s · total %s %s · buy power %s %s",
		r.Mode, r.Stage, r.Total.StringFixed(2), r.Currency, r.BuyPower.StringFixed(2), r.Currency)))
	b.WriteString("\n\n")

	if len(r.Planned.Buy) == 0 && len(r.Planned.Sell) == 0 {
		b.WriteString(okStyle.Render("Portfolio is within the rebalance band, nothing to do."))
		b.WriteString("\n")
		return b.String()
	}

	planned := newTable("Side", "Symbol", "Amount "+r.Currency)
	orders := domain.Orders{Buy: r.Planned.Buy, Sell: r.Planned.Sell}
	for _, side := range []domain.Side{domain.SideSell, domain.SideBuy} {
		for _, sym := range orders.SortedSymbols(side) {
			planned.Row(side.String(), sym, orders.Side(side)[sym].StringFixed(2))
		}
	}
	b.WriteString(planned.Render())
	b.WriteString("\n")

	if len(r.Executed) > 0 {
		executed := newTable("Side", "Pair", "Size", "Order")
		for _, o := range r.Executed {
			side := o.Side.String()
			if o.Swap {
				side = "swap"
			}
			executed.Row(side, o.Pair, o.Size.String(), o.OrderID)
		}
		b.WriteString(okStyle.Render("Executed"))
		b.WriteString("\n")
		b.WriteString(executed.Render())
		b.WriteString("\n")
	}

	if len(r.Skipped) > 0 {
		skipped := newTable("Side", "Symbol", "Size", "Reason")
		for _, o := range r.Skipped {
			skipped.Row(o.Side.String(), o.Symbol, o.Size.String(), o.Reason)
		}
		b.WriteString(mutedStyle.Render("Skipped"))
		b.WriteString("\n")
		b.WriteString(skipped.Render())
		b.WriteString("\n")
	}

	if len(r.Failures) > 0 {
		failed := newTable("Side", "Symbol", "Amount", "Reason")
		for _, f := range r.Failures {
			failed.Row(f.Side.String(), f.Symbol, f.Amount.StringFixed(2)+" "+f.Currency, f.Kind.String()+": "+f.Reason)
		}
		b.WriteString(failStyle.Render("Not executed"))
		b.WriteString("\n")
		b.WriteString(failed.Render())
		b.WriteString("\n")
	}

	return b.String()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}
