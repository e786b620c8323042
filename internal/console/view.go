package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"StockLens/internal/domain/models"
	"StockLens/internal/presenter"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	closeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	forecastStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
)

const footerHelp = " q quit  up/dn move  enter select  x clear  w/m/y horizon  tab next  r reload  pgup/dn scroll"

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render(padOrTrunc(" "+presenter.Title(m.state.Selection)+" ", m.width))

	pct := fmt.Sprintf("%.0f%% ", m.viewport.ScrollPercent()*100)
	gap := max(m.width-len(footerHelp)-len(pct), 0)
	footer := footerStyle.Render(padOrTrunc(footerHelp+strings.Repeat(" ", gap)+pct, m.width))

	return header + "\n" + m.viewport.View() + "\n" + footer
}

func (m Model) renderContent() string {
	var b strings.Builder
	s := m.state

	if m.lastErr != nil {
		b.WriteString(errorStyle.Render("! "+m.lastErr.Error()) + "\n\n")
	}

	b.WriteString(sectionStyle.Render("Instruments") + "\n")
	switch s.CatalogState.Status {
	case models.StatusIdle, models.StatusLoading:
		b.WriteString(dimStyle.Render("  Loading instruments...") + "\n")
	case models.StatusFailed:
		b.WriteString(errorStyle.Render("  "+errString(s.CatalogState.Err)) + "\n")
	}
	for i, opt := range s.Catalog {
		marker := "  "
		if i == m.cursor {
			marker = cursorStyle.Render("> ")
		}
		label := opt.Label
		if s.Selection.Code() == opt.Code {
			label = selectedStyle.Render(label + " *")
		}
		b.WriteString(marker + label + "\n")
	}

	b.WriteString("\n" + sectionStyle.Render("Horizon") + "  ")
	for _, h := range models.Horizons {
		if h == s.Selection.Horizon {
			b.WriteString(selectedStyle.Render("["+h.Label()+"]") + " ")
		} else {
			b.WriteString(dimStyle.Render(" "+h.Label()+" ") + " ")
		}
	}
	b.WriteString("\n\n")

	if !s.Selection.HasInstrument() {
		b.WriteString(dimStyle.Render("Select an instrument to load data.") + "\n")
		return b.String()
	}

	renderSeries(&b, s)
	renderIndicators(&b, s)
	renderHistory(&b, s)
	return b.String()
}

func renderSeries(b *strings.Builder, s models.DashboardState) {
	b.WriteString(sectionStyle.Render("Close vs forecast") + "\n")
	writeStatus(b, "history", s.HistoryState)
	writeStatus(b, "forecast", s.ForecastState)
	if len(s.Merged) == 0 {
		b.WriteString(dimStyle.Render("  no data") + "\n\n")
		return
	}
	fmt.Fprintf(b, "  %-12s %14s %14s\n", "Date", "Close Price", "Forecasted")
	for _, p := range s.Merged {
		fmt.Fprintf(b, "  %-12s %s %s\n",
			p.Date,
			closeStyle.Render(fmt.Sprintf("%14s", cell(p.ClosePrice))),
			forecastStyle.Render(fmt.Sprintf("%14s", cell(p.ForecastedClosePrice))),
		)
	}
	b.WriteString("\n")
}

func renderIndicators(b *strings.Builder, s models.DashboardState) {
	b.WriteString(sectionStyle.Render("Indicators") + "\n")
	switch {
	case s.IndicatorsState.Status == models.StatusFailed:
		b.WriteString(errorStyle.Render("  "+errString(s.IndicatorsState.Err)) + "\n\n")
		return
	case s.Indicators == nil:
		b.WriteString(dimStyle.Render("  "+presenter.LoadingIndicators) + "\n\n")
		return
	}
	for _, r := range presenter.IndicatorRows(s.Indicators) {
		v := r.Value
		if !r.Available {
			v = dimStyle.Render(v)
		}
		fmt.Fprintf(b, "  %-12s %s\n", r.Label+":", v)
	}
	b.WriteString("\n")
}

func renderHistory(b *strings.Builder, s models.DashboardState) {
	b.WriteString(sectionStyle.Render("Historical data") + "\n")
	if len(s.History) == 0 {
		b.WriteString(dimStyle.Render("  no data") + "\n")
		return
	}
	h := presenter.HistoryHeaders
	fmt.Fprintf(b, "  %-12s %12s %12s %14s %13s %13s\n", h[0], h[1], h[2], h[3], h[4], h[5])
	for _, r := range presenter.HistoryTable(s.History) {
		fmt.Fprintf(b, "  %-12s %12s %12s %14s %13s %13d\n", r.Date, r.Open, r.Close, r.High, r.Low, r.Volume)
	}
}

func writeStatus(b *strings.Builder, name string, rs models.ResourceState) {
	switch rs.Status {
	case models.StatusLoading:
		b.WriteString(dimStyle.Render("  loading "+name+"...") + "\n")
	case models.StatusFailed:
		b.WriteString(errorStyle.Render("  "+errString(rs.Err)) + "\n")
	}
}

// cell renders a gap in the merged series as a dash.
func cell(v decimal.NullDecimal) string {
	if !v.Valid {
		return "-"
	}
	return v.Decimal.StringFixed(2)
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func padOrTrunc(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}
