// Package catalog carries the built-in 34-step customs clearance workflow
// definition. The database table workflow_step_templates is seeded from this
// list; at runtime the repository copy is authoritative and this slice is the
// fallback when the table is empty.
package catalog

import "github.com/tarakiga/ccas/internal/models"

type entry struct {
	number      string
	name        string
	description string
	department  string
	offsetDays  int
	critical    bool
}

var entries = []entry{
	{"1.0", "Receive shipping documents", "Receive and verify shipping documents from supplier", models.DepartmentBusinessUnit, -5, false},
	{"2.0", "Verify invoice and packing list", "Verify invoice details and packing list accuracy", models.DepartmentBusinessUnit, -4, false},
	{"3.0", "Prepare LC documentation", "Prepare Letter of Credit documentation", models.DepartmentFinance, -3, false},
	{"4.0", "LC opening", "Open Letter of Credit with bank", models.DepartmentFinance, -2, false},
	{"5.0", "DAN preparation", "Prepare Document Against Negotiation", models.DepartmentFinance, -1, false},
	{"6.0", "DAN signing", "Sign Document Against Negotiation", models.DepartmentFinance, 0, false},
	{"7.0", "Fund transfer initiation", "Initiate fund transfer for customs duties", models.DepartmentFinance, 1, false},
	{"8.0", "Bank document collection", "Collect documents from bank", models.DepartmentFinance, 2, false},
	{"9.0", "Bayan submission", "Submit customs declaration (Bayan) to customs authority", models.DepartmentCustoms, 0, true},
	{"10.0", "Customs duty payment", "Pay customs duty to customs authority", models.DepartmentCustoms, 3, true},
	{"11.0", "Bayan approval", "Receive Bayan approval from customs authority", models.DepartmentCustoms, 4, true},
	{"12.0", "VAT payment", "Pay Value Added Tax", models.DepartmentFinance, 4, false},
	{"13.0", "DO payment", "Pay for Delivery Order", models.DepartmentCustoms, 6, true},
	{"14.0", "Goods collection from port", "Collect goods from port", models.DepartmentCustoms, 7, true},
	{"15.0", "Transport to warehouse", "Transport goods to warehouse", models.DepartmentStores, 8, false},
	{"16.0", "Warehouse receipt", "Receive goods at warehouse", models.DepartmentStores, 8, false},
	{"17.0", "Physical inspection", "Conduct physical inspection of goods", models.DepartmentStores, 9, false},
	{"18.0", "Quality check", "Perform quality check on goods", models.DepartmentStores, 9, false},
	{"19.0", "Defect reporting", "Report any defects found during inspection", models.DepartmentStores, 10, false},
	{"20.0", "Inventory update", "Update inventory system with received goods", models.DepartmentStores, 10, false},
	{"21.0", "Insurance claim preparation", "Prepare insurance claim if needed", models.DepartmentFinance, 11, false},
	{"22.0", "Insurance documentation", "Complete insurance documentation", models.DepartmentFinance, 12, false},
	{"23.0", "Supplier invoice reconciliation", "Reconcile supplier invoice with received goods", models.DepartmentFinance, 13, false},
	{"24.0", "Payment processing", "Process payment to supplier", models.DepartmentFinance, 14, false},
	{"25.0", "Document archival", "Archive all shipment documents", models.DepartmentBusinessUnit, 15, false},
	{"26.0", "Compliance reporting", "Submit compliance reports to authorities", models.DepartmentCustoms, 16, false},
	{"27.0", "Cost allocation", "Allocate costs to appropriate cost centers", models.DepartmentFinance, 17, false},
	{"28.0", "Vendor performance review", "Review vendor performance for this shipment", models.DepartmentBusinessUnit, 18, false},
	{"29.0", "Customs audit preparation", "Prepare documents for potential customs audit", models.DepartmentCustoms, 19, false},
	{"30.0", "Final reconciliation", "Final reconciliation of all costs and documents", models.DepartmentFinance, 20, false},
	{"31.0", "Management reporting", "Prepare management report on shipment", models.DepartmentBusinessUnit, 21, false},
	{"32.0", "Lessons learned documentation", "Document lessons learned from shipment process", models.DepartmentBusinessUnit, 22, false},
	{"33.0", "Process improvement suggestions", "Submit process improvement suggestions", models.DepartmentBusinessUnit, 23, false},
	{"34.0", "Shipment closure", "Close shipment in system", models.DepartmentBusinessUnit, 24, false},
}

// Default returns the built-in template list in display order, active.
func Default() []models.WorkflowStepTemplate {
	templates := make([]models.WorkflowStepTemplate, 0, len(entries))
	for i, e := range entries {
		templates = append(templates, models.WorkflowStepTemplate{
			StepNumber:   e.number,
			StepName:     e.name,
			Description:  e.description,
			Department:   e.department,
			OffsetDays:   e.offsetDays,
			IsCritical:   e.critical,
			DisplayOrder: i + 1,
			IsActive:     true,
		})
	}
	return templates
}

// Size is the number of built-in steps.
func Size() int { return len(entries) }
