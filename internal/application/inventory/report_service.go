package inventory

import (
	"context"
	"io"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/google/uuid"
)

// maxExportRows bounds a stock report export
const maxExportRows = 10000

// ReportExporter renders batch and ledger reports into a spreadsheet
type ReportExporter interface {
	WriteStockReport(w io.Writer, batches []inventory.Batch) error
	WriteAllocationReport(w io.Writer, orderID uuid.UUID, allocations []inventory.Allocation) error
}

// ReportService exports stock and allocation reports
type ReportService struct {
	batchRepo      inventory.BatchRepository
	allocationRepo inventory.AllocationRepository
	exporter       ReportExporter
}

// NewReportService creates a new ReportService
func NewReportService(batchRepo inventory.BatchRepository, allocationRepo inventory.AllocationRepository, exporter ReportExporter) *ReportService {
	return &ReportService{
		batchRepo:      batchRepo,
		allocationRepo: allocationRepo,
		exporter:       exporter,
	}
}

// ExportStock writes the batches matching filter as a stock valuation report
func (s *ReportService) ExportStock(ctx context.Context, filter inventory.BatchFilter, w io.Writer) error {
	filter.Page = 1
	filter.PageSize = maxExportRows
	batches, _, err := s.batchRepo.FindAll(ctx, filter)
	if err != nil {
		return err
	}
	return s.exporter.WriteStockReport(w, batches)
}

// ExportOrderAllocations writes the allocation ledger of an order
func (s *ReportService) ExportOrderAllocations(ctx context.Context, orderID uuid.UUID, w io.Writer) error {
	allocations, err := s.allocationRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	return s.exporter.WriteAllocationReport(w, orderID, allocations)
}
