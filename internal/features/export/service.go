package export

import (
	"context"
	"fmt"
	"time"

	"go-sitter/internal/features/automation"
	"go-sitter/internal/features/booking"

	"github.com/xuri/excelize/v2"
)

type Service interface {
	ExportBookings(ctx context.Context, q booking.Query) ([]byte, string, error)
	ExportExecutions(ctx context.Context, bookingID string, limit int64) ([]byte, string, error)
}

type ServiceImpl struct {
	Bookings   booking.Repository
	Executions automation.ExecutionRepository
}

func NewService(bookings booking.Repository, executions automation.ExecutionRepository) Service {
	return &ServiceImpl{Bookings: bookings, Executions: executions}
}

func (s *ServiceImpl) ExportBookings(ctx context.Context, q booking.Query) ([]byte, string, error) {
	bookings, err := s.Bookings.Query(ctx, q)
	if err != nil {
		return nil, "", err
	}

	columns := []string{"ID", "Client", "Sitter", "Service", "Start", "Duration (min)", "Status", "Price"}
	rows := make([][]interface{}, 0, len(bookings))
	for i := range bookings {
		bk := &bookings[i]
		rows = append(rows, []interface{}{
			bk.ID.Hex(),
			bk.ClientID,
			bk.SitterID,
			bk.ServiceType,
			bk.ScheduledStart.Format("2006-01-02 15:04:05"),
			bk.DurationMinutes,
			string(bk.Status),
			bk.Price,
		})
	}
	return buildWorkbook("Bookings", columns, rows)
}

func (s *ServiceImpl) ExportExecutions(ctx context.Context, bookingID string, limit int64) ([]byte, string, error) {
	executions, err := s.Executions.List(ctx, bookingID, limit)
	if err != nil {
		return nil, "", err
	}

	columns := []string{"Rule", "Booking", "Change", "Executed At", "Context"}
	rows := make([][]interface{}, 0, len(executions))
	for i := range executions {
		ex := &executions[i]
		rows = append(rows, []interface{}{
			ex.RuleID,
			ex.BookingID,
			ex.Change,
			ex.ExecutedAt.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%v", ex.Context),
		})
	}
	return buildWorkbook("Rule Executions", columns, rows)
}

func buildWorkbook(sheetName string, columns []string, rows [][]interface{}) ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, row := range rows {
		for colIdx, val := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, val)
		}
	}

	for i := range columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 18)
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("%s_%s.xlsx", sheetName, time.Now().Format("20060102_150405"))
	return buffer.Bytes(), filename, nil
}
