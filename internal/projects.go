package internal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/labdb"
)

// ProjectRepository implements labdb.ProjectStore: base projects, their
// released versions and the components that projects and suites cover.
type ProjectRepository struct {
	pool dbPool
}

var _ labdb.ProjectStore = (*ProjectRepository)(nil)

func NewProjectRepository(pool dbPool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

func (r *ProjectRepository) CreateProjectCategory(ctx context.Context, name string) (*labdb.ProjectCategory, error) {
	if name == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	c := &labdb.ProjectCategory{Name: name}
	err := r.pool.QueryRow(ctx, "INSERT INTO project_category (name) VALUES ($1) RETURNING id", name).Scan(&c.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert project category: %w", err), "project category", name)
	}
	return c, nil
}

func (r *ProjectRepository) CreateComponent(ctx context.Context, name, description string) (*labdb.Component, error) {
	if name == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	c := &labdb.Component{Name: name, Description: description}
	err := r.pool.QueryRow(ctx,
		"INSERT INTO components (name, description) VALUES ($1, $2) RETURNING id",
		name, description,
	).Scan(&c.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert component: %w", err), "component", name)
	}
	return c, nil
}

func scanComponent(row pgx.Rows) (labdb.Component, error) {
	var c labdb.Component
	err := row.Scan(&c.ID, &c.Name, &c.Description)
	return c, err
}

func (r *ProjectRepository) ListComponents(ctx context.Context) ([]labdb.Component, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, name, description FROM components ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query components: %w", err)
	}
	return collectRows(rows, scanComponent)
}

func (r *ProjectRepository) CreateProject(ctx context.Context, p *labdb.BaseProject) (*labdb.BaseProject, error) {
	if p == nil || p.Name == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			"INSERT INTO projects (name, category_id, description) VALUES ($1, $2, $3) RETURNING id",
			p.Name, p.CategoryID, p.Description,
		).Scan(&p.ID); err != nil {
			return mapError(fmt.Errorf("insert project: %w", err), "project", p.Name)
		}
		for _, c := range p.Components {
			if _, err := tx.Exec(ctx,
				"INSERT INTO projects_components (project_id, component_id) VALUES ($1, $2)",
				p.ID, c.ID,
			); err != nil {
				return mapError(fmt.Errorf("link component: %w", err), "component", idKey(c.ID))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetProject loads a base project by name with its components.
func (r *ProjectRepository) GetProject(ctx context.Context, name string) (*labdb.BaseProject, error) {
	var p labdb.BaseProject
	err := r.pool.QueryRow(ctx,
		"SELECT id, name, category_id, description FROM projects WHERE name = $1",
		name,
	).Scan(&p.ID, &p.Name, &p.CategoryID, &p.Description)
	if err != nil {
		return nil, mapError(err, "project", name)
	}
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.name, c.description FROM components c
			JOIN projects_components pc ON pc.component_id = c.id
			WHERE pc.project_id = $1
			ORDER BY c.name`,
		p.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("query project components: %w", err)
	}
	if p.Components, err = collectRows(rows, scanComponent); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepository) AddProjectComponent(ctx context.Context, projectID, componentID int64) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO projects_components (project_id, component_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		projectID, componentID,
	)
	if err != nil {
		return mapError(fmt.Errorf("link component: %w", err), "project", idKey(projectID))
	}
	return nil
}

func (r *ProjectRepository) CreateProjectVersion(ctx context.Context, v *labdb.Project) (*labdb.Project, error) {
	if v == nil || v.BaseProjectID == 0 {
		return nil, labdb.NewValidationError("baseProjectId", "is required")
	}
	if v.Major < 0 || v.Minor < 0 || v.Subminor < 0 {
		return nil, labdb.NewValidationError("version", "components must not be negative")
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO project_versions (project_id, major, minor, subminor, build)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
		v.BaseProjectID, v.Major, v.Minor, v.Subminor, v.Build,
	).Scan(&v.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert project version: %w", err), "project version", v.Version())
	}
	return v, nil
}

// ProjectVersions lists releases of a base project, newest first.
func (r *ProjectRepository) ProjectVersions(ctx context.Context, projectID int64) ([]labdb.Project, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, project_id, major, minor, subminor, build FROM project_versions
			WHERE project_id = $1
			ORDER BY major DESC, minor DESC, subminor DESC, build DESC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("query project versions: %w", err)
	}
	return collectRows(rows, func(row pgx.Rows) (labdb.Project, error) {
		var v labdb.Project
		err := row.Scan(&v.ID, &v.BaseProjectID, &v.Major, &v.Minor, &v.Subminor, &v.Build)
		return v, err
	})
}

func (r *ProjectRepository) AddSuiteComponent(ctx context.Context, suiteID, componentID int64) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO components_suites (component_id, testsuite_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		componentID, suiteID,
	)
	if err != nil {
		return mapError(fmt.Errorf("link suite component: %w", err), "test suite", idKey(suiteID))
	}
	return nil
}

func (r *ProjectRepository) SuiteComponents(ctx context.Context, suiteID int64) ([]labdb.Component, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.name, c.description FROM components c
			JOIN components_suites cs ON cs.component_id = c.id
			WHERE cs.testsuite_id = $1
			ORDER BY c.name`,
		suiteID,
	)
	if err != nil {
		return nil, fmt.Errorf("query suite components: %w", err)
	}
	return collectRows(rows, scanComponent)
}
