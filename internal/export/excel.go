package export

import (
	"context"
	"fmt"

	"machine-guard/internal/repository"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Exporter 读数历史导出器
type Exporter struct {
	readingRepo *repository.ReadingRepository
	logger      *zap.Logger
}

// NewExporter 创建导出器
func NewExporter(readingRepo *repository.ReadingRepository, logger *zap.Logger) *Exporter {
	return &Exporter{
		readingRepo: readingRepo,
		logger:      logger,
	}
}

// readingHeaders 导出表头（与特征声明顺序一致）
var readingHeaders = []string{"Device ID", "Timestamp", "Temperature", "Humidity", "Gas", "Vibration", "Current"}

// WriteWorkbook 导出设备读数历史到 .xlsx 工作簿
// deviceID 为空时导出所有设备，每设备一个工作表
func (e *Exporter) WriteWorkbook(ctx context.Context, path, deviceID string, limit int) error {
	devices := []string{deviceID}
	if deviceID == "" {
		var err error
		devices, err = e.readingRepo.ListDevices(ctx)
		if err != nil {
			return fmt.Errorf("failed to list devices: %w", err)
		}
		if len(devices) == 0 {
			return fmt.Errorf("no devices with recorded readings")
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, dev := range devices {
		sheet := dev
		if i == 0 {
			// 复用默认工作表
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return fmt.Errorf("failed to create sheet for %s: %w", dev, err)
			}
		}

		if err := e.writeSheet(ctx, f, sheet, dev, limit); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	e.logger.Info("Workbook exported",
		zap.String("path", path),
		zap.Int("devices", len(devices)),
	)
	return nil
}

// writeSheet 写入单设备的读数工作表
func (e *Exporter) writeSheet(ctx context.Context, f *excelize.File, sheet, deviceID string, limit int) error {
	records, err := e.readingRepo.GetHistory(ctx, deviceID, limit, 0)
	if err != nil {
		return fmt.Errorf("failed to fetch history for %s: %w", deviceID, err)
	}

	for col, header := range readingHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, rec := range records {
		values := []interface{}{
			rec.DeviceID,
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			rec.Temperature,
			rec.Humidity,
			rec.Gas,
			rec.Vibration,
			rec.Current,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return fmt.Errorf("failed to build cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}

	return nil
}
