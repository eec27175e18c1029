// Package catalogtest provides a hotel catalog used across package tests.
package catalogtest

import (
	"time"

	"github.com/spec-kit/service-desk/internal/catalog"
	"github.com/spec-kit/service-desk/internal/domain"
)

const (
	DeptHousekeeping int64 = 1
	DeptMaintenance  int64 = 2
	DeptFrontDesk    int64 = 3
	DeptRoomService  int64 = 4

	TypeAirConditioning int64 = 10
	TypeTowels          int64 = 11
	TypeLateCheckout    int64 = 12
	TypeFoodOrder       int64 = 13
	TypeLostItem        int64 = 14
)

func ptr(v int64) *int64 { return &v }

// Data returns the raw catalog rows.
func Data() catalog.Data {
	return catalog.Data{
		Departments: []domain.Department{
			{ID: DeptHousekeeping, Name: "Housekeeping", IsActive: true},
			{ID: DeptMaintenance, Name: "Maintenance", IsActive: true},
			{ID: DeptFrontDesk, Name: "Front Desk", IsActive: true},
			{ID: DeptRoomService, Name: "Room Service", IsActive: true},
		},
		RequestTypes: []domain.RequestType{
			{ID: TypeAirConditioning, Name: "Air conditioning", DefaultDepartmentID: ptr(DeptMaintenance), MenuPosition: 1},
			{ID: TypeTowels, Name: "Towels", DefaultDepartmentID: ptr(DeptHousekeeping), MenuPosition: 2},
			{ID: TypeLateCheckout, Name: "Late checkout", MenuPosition: 3},
			{ID: TypeFoodOrder, Name: "Food order", DefaultDepartmentID: ptr(DeptRoomService), MenuPosition: 4},
			{ID: TypeLostItem, Name: "Lost item", MenuPosition: 5},
		},
		Policies: []domain.SLAPolicy{
			{Priority: domain.TicketPriorityHigh, ResponseMinutes: 10, ResolutionMinutes: 60},
			{Priority: domain.TicketPriorityNormal, ResponseMinutes: 30, ResolutionMinutes: 120},
		},
		Overrides: []domain.SLAOverride{
			{DepartmentID: DeptMaintenance, RequestTypeID: TypeAirConditioning, Priority: domain.TicketPriorityHigh, ResponseMinutes: 5, ResolutionMinutes: 30},
			{DepartmentID: DeptFrontDesk, RequestTypeID: TypeLateCheckout, Priority: domain.TicketPriorityLow, ResponseMinutes: 60, ResolutionMinutes: 30},
			{DepartmentID: DeptHousekeeping, RequestTypeID: TypeLateCheckout, Priority: domain.TicketPriorityNormal, ResponseMinutes: 15, ResolutionMinutes: 45},
		},
		KeywordRules: []domain.KeywordRule{
			{ID: 1, Keyword: "AC", RequestTypeID: TypeAirConditioning, Weight: 2},
			{ID: 2, Keyword: "not cooling", RequestTypeID: TypeAirConditioning, Weight: 1},
			{ID: 3, Keyword: "towel", RequestTypeID: TypeTowels, Weight: 1},
			{ID: 4, Keyword: "towels", RequestTypeID: TypeTowels, Weight: 1},
			{ID: 5, Keyword: "late checkout", RequestTypeID: TypeLateCheckout, Weight: 2},
			{ID: 6, Keyword: "hungry", RequestTypeID: TypeFoodOrder, Weight: 1},
			{ID: 7, Keyword: "breakfast", RequestTypeID: TypeFoodOrder, Weight: 1},
			{ID: 8, Keyword: "wallet", RequestTypeID: TypeLostItem, Weight: 1},
		},
	}
}

// Snapshot builds the fixture snapshot. It panics on invalid fixture data.
func Snapshot() *catalog.Snapshot {
	s, err := catalog.NewSnapshot(1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Data())
	if err != nil {
		panic(err)
	}
	return s
}

// Provider wraps the fixture snapshot.
func Provider() *catalog.Provider {
	return catalog.NewStaticProvider(Snapshot())
}
