package console

import (
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"EnsembleView/internal/domain/models"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

const maxLogWidth = 48

var header = []string{"Ticker", "Status", "Actual", "Adaptive", "Error %", "Band", "Return %", "Points", "Last log"}

// Renderer draws the entity table of a run for a terminal.
type Renderer struct {
	ok    *color.Color
	warn  *color.Color
	bad   *color.Color
	muted *color.Color
}

func NewRenderer(useColor bool) *Renderer {
	r := &Renderer{
		ok:    color.New(color.FgGreen),
		warn:  color.New(color.FgYellow),
		bad:   color.New(color.FgRed, color.Bold),
		muted: color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{r.ok, r.warn, r.bad, r.muted} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

// Render writes one frame: the summary line followed by one row per entity.
func (r *Renderer) Render(w io.Writer, rows []models.EntityView, sum models.Summary) error {
	if _, err := fmt.Fprintf(w, "run %s  entities=%d  points=%d  avg error=%.2f%%\n",
		sum.RunID, sum.Entities, sum.TotalPoints, sum.AvgErrorPct); err != nil {
		return err
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, r.muted.Sprint("waiting for data..."))
		return err
	}

	table := tablewriter.NewTable(w, tablewriter.WithHeaderAutoFormat(tw.Off))
	table.Header(header)
	for _, v := range rows {
		if err := table.Append(r.row(v)); err != nil {
			return fmt.Errorf("append %s: %w", v.Ticker, err)
		}
	}
	return table.Render()
}

func (r *Renderer) row(v models.EntityView) []string {
	m := v.Metrics
	return []string{
		v.Ticker,
		r.status(v),
		price(m.Actual),
		price(m.Adaptive),
		fmt.Sprintf("%+.2f", m.ErrorPct),
		r.band(m.Severity),
		r.signed(m.ReturnPct),
		strconv.Itoa(m.Points),
		truncate(v.LastLog, maxLogWidth),
	}
}

func (r *Renderer) status(v models.EntityView) string {
	switch {
	case v.Error:
		return r.bad.Sprint(v.Status)
	case v.Complete:
		return r.ok.Sprint(v.Status)
	case v.Status == "":
		return r.muted.Sprint("-")
	default:
		return v.Status
	}
}

func (r *Renderer) band(s models.Severity) string {
	if s == models.SeverityOutOfBand {
		return r.warn.Sprint(string(s))
	}
	return r.ok.Sprint(string(s))
}

func (r *Renderer) signed(pct float64) string {
	s := fmt.Sprintf("%+.2f", pct)
	switch {
	case pct > 0:
		return r.ok.Sprint(s)
	case pct < 0:
		return r.bad.Sprint(s)
	default:
		return s
	}
}

func price(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	rs := []rune(s)
	return string(rs[:n-1]) + "…"
}
