package layout

import (
	"errors"

	"github.com/nextfactory/nextfactory/internal/access"
)

// ErrUnknownSection is returned when a section id has no table entry.
var ErrUnknownSection = errors.New("layout: unknown section")

// Section is a top-level navigable area gated by capability flags. A user
// sees the section when they hold any flag in AnyOf.
type Section struct {
	ID       string
	Label    string
	AnyOf    []access.Capability
	Controls []Control
}

// Control is an interactive element inside a section. It is enabled only
// when the user holds every flag in AllOf.
type Control struct {
	ID    string
	Label string
	AllOf []access.Capability
}

// View is the composed output for one user.
type View struct {
	User     string        `json:"user"`
	Role     string        `json:"role"`
	Sections []SectionView `json:"sections"`
}

// SectionView lists a visible section with its enabled controls.
type SectionView struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Controls []string `json:"controls"`
}

// SectionIDs returns the ids of the composed sections in order.
func (v View) SectionIDs() []string {
	ids := make([]string, len(v.Sections))
	for i, s := range v.Sections {
		ids[i] = s.ID
	}
	return ids
}

// Section ids of the default table.
const (
	SectionDashboard            = "dashboard"
	SectionInventory            = "inventory"
	SectionSupplyChain          = "supply_chain"
	SectionSalesCRM             = "sales_crm"
	SectionAssetManagement      = "asset_management"
	SectionReporting            = "reporting"
	SectionProductionScheduling = "production_scheduling"
	SectionRealTimeData         = "real_time_data"
	SectionQuality              = "quality_management"
	SectionPerformance          = "performance_analysis"
	SectionResourceAllocation   = "resource_allocation"
	SectionProductTracking      = "product_tracking"
	SectionMaintenance          = "maintenance"
	SectionLabor                = "labor_management"
	SectionUserAdmin            = "user_administration"
)

// ShellSections are the sections the presentation shell knows how to
// render. The default table must map every one of them.
func ShellSections() []string {
	return []string{
		SectionDashboard,
		SectionInventory,
		SectionSupplyChain,
		SectionSalesCRM,
		SectionAssetManagement,
		SectionReporting,
		SectionProductionScheduling,
		SectionRealTimeData,
		SectionQuality,
		SectionPerformance,
		SectionResourceAllocation,
		SectionProductTracking,
		SectionMaintenance,
		SectionLabor,
		SectionUserAdmin,
	}
}
