package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"Gin_postgres_redis_tool_tracker/apperr"
	"Gin_postgres_redis_tool_tracker/db"
	"Gin_postgres_redis_tool_tracker/models"
)

type ReportService interface {
	// ExportRequests renders the matching requests as an xlsx workbook.
	ExportRequests(ctx context.Context, f db.RequestFilter) (*bytes.Buffer, string, error)
	// DueCalendar renders one event per active checkout at its due time.
	DueCalendar(ctx context.Context) (string, error)
}

type reportService struct {
	store  db.Store
	opts   Options
	logger *zap.Logger
}

func NewReportService(store db.Store, opts Options, logger *zap.Logger) ReportService {
	return &reportService{store: store, opts: opts, logger: logger}
}

const requestsSheet = "Requests"

var requestColumns = []struct {
	title string
	width float64
}{
	{"ID", 8},
	{"Tool", 32},
	{"Scan code", 12},
	{"Category", 18},
	{"Employee", 26},
	{"Employee ID", 14},
	{"Department", 18},
	{"Status", 12},
	{"Taken", 20},
	{"Due", 20},
	{"Returned", 20},
	{"Overdue", 10},
	{"Purpose", 30},
	{"Condition before", 22},
	{"Condition after", 22},
	{"Notes", 30},
}

func (s *reportService) ExportRequests(ctx context.Context, f db.RequestFilter) (*bytes.Buffer, string, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, "", apperr.Validation("unknown status %q", f.Status)
	}
	f.All = true
	page, err := s.store.ListRequests(ctx, f)
	if err != nil {
		s.logger.Error("load requests for export failed", zap.Error(err))
		return nil, "", err
	}

	x := excelize.NewFile()
	defer x.Close()

	idx, err := x.NewSheet(requestsSheet)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, err, "create sheet")
	}
	x.SetActiveSheet(idx)
	x.DeleteSheet("Sheet1")

	headerStyle, _ := x.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	for i, c := range requestColumns {
		col := colName(i)
		x.SetColWidth(requestsSheet, col, col, c.width)
		x.SetCellValue(requestsSheet, cell(col, 1), c.title)
	}
	x.SetCellStyle(requestsSheet, "A1", cell(colName(len(requestColumns)-1), 1), headerStyle)
	x.SetPanes(requestsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for i, r := range page.Requests {
		row := i + 2
		values := []any{
			r.ID,
			r.ToolName,
			r.ToolScanCode,
			r.ToolCategory,
			r.UserName,
			deref(r.UserEmployeeID),
			r.UserDepartment,
			string(r.Status),
			s.formatTime(r.ApprovalTime),
			s.formatTime(r.ExpectedReturnTime),
			s.formatTime(r.ActualReturnTime),
			yesNo(r.Overdue),
			r.Purpose,
			r.ConditionBefore,
			r.ConditionAfter,
			r.AdminNotes,
		}
		for j, v := range values {
			x.SetCellValue(requestsSheet, cell(colName(j), row), v)
		}
	}

	buf := new(bytes.Buffer)
	if err := x.Write(buf); err != nil {
		s.logger.Error("write xlsx failed", zap.Error(err))
		return nil, "", apperr.Wrap(apperr.KindInternal, err, "write xlsx")
	}
	filename := fmt.Sprintf("requests_%s.xlsx", s.opts.Now().In(s.opts.Location).Format("20060102_1504"))
	return buf, filename, nil
}

func (s *reportService) DueCalendar(ctx context.Context) (string, error) {
	page, err := s.store.ListRequests(ctx, db.RequestFilter{Status: models.StatusApproved, All: true})
	if err != nil {
		s.logger.Error("load active requests for calendar failed", zap.Error(err))
		return "", err
	}

	now := s.opts.Now()
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//tool-tracker//due returns//EN")
	cal.SetXWRCalName("Tool returns due")

	for _, r := range page.Requests {
		if r.ExpectedReturnTime == nil {
			continue
		}
		due := r.ExpectedReturnTime.UTC()
		ev := cal.AddEvent(fmt.Sprintf("request-%d@tool-tracker", r.ID))
		ev.SetDtStampTime(now)
		ev.SetStartAt(due)
		ev.SetEndAt(due.Add(30 * time.Minute))
		summary := fmt.Sprintf("Return %s (%s)", r.ToolName, r.UserName)
		if r.Overdue {
			summary = "OVERDUE: " + summary
		}
		ev.SetSummary(summary)
		ev.SetDescription(fmt.Sprintf("Request #%d, scan code %s, taken %s", r.ID, r.ToolScanCode, s.formatTime(r.ApprovalTime)))
		ev.SetURL(s.opts.ScanURL(r.ToolScanCode))
	}
	return cal.Serialize(), nil
}

func (s *reportService) formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return s.opts.timestamp(*t)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
