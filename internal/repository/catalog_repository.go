package repository

import (
	"context"
	"fmt"

	"github.com/spec-kit/service-desk/internal/catalog"
	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/persistence"
)

// CatalogRepository reads the configuration store. The engine never writes it.
type CatalogRepository struct {
	db persistence.DB
}

// NewCatalogRepository builds the repository.
func NewCatalogRepository(db persistence.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

var _ catalog.Loader = (*CatalogRepository)(nil)

// LoadCatalog reads every configuration table inside one read transaction
// so the snapshot is consistent.
func (r *CatalogRepository) LoadCatalog(ctx context.Context) (catalog.Data, error) {
	var data catalog.Data
	err := persistence.NewTxManager(r.db).RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if data.Departments, err = r.departments(ctx); err != nil {
			return err
		}
		if data.RequestTypes, err = r.requestTypes(ctx); err != nil {
			return err
		}
		if data.Policies, err = r.policies(ctx); err != nil {
			return err
		}
		if data.Overrides, err = r.overrides(ctx); err != nil {
			return err
		}
		data.KeywordRules, err = r.keywordRules(ctx)
		return err
	})
	if err != nil {
		return catalog.Data{}, err
	}
	return data, nil
}

func (r *CatalogRepository) departments(ctx context.Context) ([]domain.Department, error) {
	rows, err := persistence.QuerierFromCtx(ctx, r.db).Query(ctx,
		`SELECT id, name, is_active FROM departments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load departments: %w", err)
	}
	defer rows.Close()
	var out []domain.Department
	for rows.Next() {
		var d domain.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.IsActive); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) requestTypes(ctx context.Context) ([]domain.RequestType, error) {
	rows, err := persistence.QuerierFromCtx(ctx, r.db).Query(ctx,
		`SELECT id, name, default_department_id, menu_position FROM request_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load request types: %w", err)
	}
	defer rows.Close()
	var out []domain.RequestType
	for rows.Next() {
		var rt domain.RequestType
		if err := rows.Scan(&rt.ID, &rt.Name, &rt.DefaultDepartmentID, &rt.MenuPosition); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) policies(ctx context.Context) ([]domain.SLAPolicy, error) {
	rows, err := persistence.QuerierFromCtx(ctx, r.db).Query(ctx,
		`SELECT priority, response_minutes, resolution_minutes FROM sla_policies ORDER BY priority`)
	if err != nil {
		return nil, fmt.Errorf("load sla policies: %w", err)
	}
	defer rows.Close()
	var out []domain.SLAPolicy
	for rows.Next() {
		var p domain.SLAPolicy
		if err := rows.Scan(&p.Priority, &p.ResponseMinutes, &p.ResolutionMinutes); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) overrides(ctx context.Context) ([]domain.SLAOverride, error) {
	rows, err := persistence.QuerierFromCtx(ctx, r.db).Query(ctx,
		`SELECT department_id, request_type_id, priority, response_minutes, resolution_minutes
         FROM sla_overrides ORDER BY department_id, request_type_id, priority`)
	if err != nil {
		return nil, fmt.Errorf("load sla overrides: %w", err)
	}
	defer rows.Close()
	var out []domain.SLAOverride
	for rows.Next() {
		var o domain.SLAOverride
		if err := rows.Scan(&o.DepartmentID, &o.RequestTypeID, &o.Priority, &o.ResponseMinutes, &o.ResolutionMinutes); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) keywordRules(ctx context.Context) ([]domain.KeywordRule, error) {
	rows, err := persistence.QuerierFromCtx(ctx, r.db).Query(ctx,
		`SELECT id, keyword, request_type_id, weight FROM keyword_rules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load keyword rules: %w", err)
	}
	defer rows.Close()
	var out []domain.KeywordRule
	for rows.Next() {
		var k domain.KeywordRule
		if err := rows.Scan(&k.ID, &k.Keyword, &k.RequestTypeID, &k.Weight); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
