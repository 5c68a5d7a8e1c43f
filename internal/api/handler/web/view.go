package web

import (
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/quantview/internal/core"
	"github.com/newthinker/quantview/internal/dashboard"
	"github.com/newthinker/quantview/internal/session"
	"github.com/newthinker/quantview/internal/upload"
)

// isoLayout is what <input type="date"> submits and displays.
const isoLayout = "2006-01-02"

var funcs = template.FuncMap{
	"isoDate": isoDate,
}

// FormView is the strategy picker and backtest parameters.
type FormView struct {
	Selector   dashboard.Selector
	StockCode  string
	StartDate  string
	EndDate    string
	CanConfirm bool
	Loading    bool
}

// ResultsView is the results region. Display selects exactly one branch.
type ResultsView struct {
	Display string
	Error   string
	Notice  string
	Metrics []dashboard.MetricCard
	Charts  []dashboard.Chart
}

// UploadView is the reference image panel.
type UploadView struct {
	State   string
	Preview template.URL
	Error   string
}

// PageData is passed to the page and all fragments.
type PageData struct {
	Title   string
	Form    FormView
	Results ResultsView
	Upload  UploadView
	// OOB marks fragments rendered as htmx out-of-band swaps.
	OOB bool
}

func newPageData(s session.State, up upload.View) PageData {
	return PageData{
		Title:   "量化回测",
		Form:    newFormView(s),
		Results: newResultsView(s),
		Upload:  newUploadView(up),
	}
}

func newFormView(s session.State) FormView {
	return FormView{
		Selector:   dashboard.NewSelector(s.Strategies, s.SelectedID),
		StockCode:  s.StockCode,
		StartDate:  s.StartDate,
		EndDate:    s.EndDate,
		CanConfirm: s.CanConfirm(),
		Loading:    s.Loading,
	}
}

func newResultsView(s session.State) ResultsView {
	v := ResultsView{Display: s.Display().String()}
	switch s.Display() {
	case session.DisplayFailure:
		v.Error = s.Error
	case session.DisplaySuccess:
		v.Metrics = dashboard.FormatMetrics(s.Result.Metrics)
		v.Charts = dashboard.ResultCharts(s.Result)
	}
	return v
}

func newUploadView(up upload.View) UploadView {
	v := UploadView{State: up.State.String(), Error: up.Error}
	if strings.HasPrefix(up.Preview, "data:image/") {
		v.Preview = template.URL(up.Preview)
	}
	return v
}

// applyForm copies submitted form fields into the session. Fields absent
// from the request are left alone; unparseable dates are ignored.
func applyForm(coord *session.Coordinator, r *http.Request) {
	form := r.PostForm

	if form.Has("strategy_id") {
		coord.SelectStrategy(dashboard.ParseSelection(form.Get("strategy_id")))
	}
	if form.Has("stock_code") {
		coord.SetStockCode(strings.TrimSpace(form.Get("stock_code")))
	}
	if form.Has("start_date") || form.Has("end_date") {
		cur := coord.Snapshot()
		start, end := cur.StartDate, cur.EndDate
		if v, ok := formDate(form.Get("start_date")); ok {
			start = v
		}
		if v, ok := formDate(form.Get("end_date")); ok {
			end = v
		}
		coord.SetDateRange(start, end)
	}
}

// formDate accepts YYYY-MM-DD or YYYYMMDD and returns YYYYMMDD.
func formDate(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(isoLayout, v); err == nil {
		return t.Format(core.DateLayout), true
	}
	if core.IsDate(v) {
		return v, true
	}
	return "", false
}

func isoDate(v string) string {
	t, err := time.Parse(core.DateLayout, v)
	if err != nil {
		return v
	}
	return t.Format(isoLayout)
}
