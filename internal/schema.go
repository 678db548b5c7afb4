package internal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS addressbook (
		id          BIGSERIAL PRIMARY KEY,
		firstname   TEXT NOT NULL DEFAULT '',
		lastname    TEXT NOT NULL,
		title       TEXT NOT NULL DEFAULT '',
		company     TEXT NOT NULL DEFAULT '',
		email       TEXT NOT NULL DEFAULT '',
		phone       TEXT NOT NULL DEFAULT '',
		mobile      TEXT NOT NULL DEFAULT '',
		address     TEXT NOT NULL DEFAULT '',
		city        TEXT NOT NULL DEFAULT '',
		state       TEXT NOT NULL DEFAULT '',
		postalcode  TEXT NOT NULL DEFAULT '',
		country     TEXT NOT NULL DEFAULT '',
		note        TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS auth_permission (
		id        BIGSERIAL PRIMARY KEY,
		name      TEXT NOT NULL,
		codename  TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS auth_group (
		id    BIGSERIAL PRIMARY KEY,
		name  TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS auth_group_permissions (
		group_id       BIGINT NOT NULL REFERENCES auth_group(id) ON DELETE CASCADE,
		permission_id  BIGINT NOT NULL REFERENCES auth_permission(id) ON DELETE CASCADE,
		PRIMARY KEY (group_id, permission_id)
	)`,
	`CREATE TABLE IF NOT EXISTS auth_user (
		id            BIGSERIAL PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		first_name    TEXT NOT NULL DEFAULT '',
		last_name     TEXT NOT NULL DEFAULT '',
		email         TEXT NOT NULL DEFAULT '',
		password      TEXT NOT NULL DEFAULT '',
		authservice   TEXT NOT NULL DEFAULT 'local',
		is_staff      BOOLEAN NOT NULL DEFAULT TRUE,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		is_superuser  BOOLEAN NOT NULL DEFAULT FALSE,
		last_login    TIMESTAMPTZ,
		date_joined   TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS auth_user_groups (
		user_id   BIGINT NOT NULL REFERENCES auth_user(id) ON DELETE CASCADE,
		group_id  BIGINT NOT NULL REFERENCES auth_group(id) ON DELETE CASCADE,
		PRIMARY KEY (user_id, group_id)
	)`,
	`CREATE TABLE IF NOT EXISTS auth_user_user_permissions (
		user_id        BIGINT NOT NULL REFERENCES auth_user(id) ON DELETE CASCADE,
		permission_id  BIGINT NOT NULL REFERENCES auth_permission(id) ON DELETE CASCADE,
		PRIMARY KEY (user_id, permission_id)
	)`,
	`CREATE TABLE IF NOT EXISTS auth_message (
		id       BIGSERIAL PRIMARY KEY,
		user_id  BIGINT NOT NULL REFERENCES auth_user(id) ON DELETE CASCADE,
		message  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS client_session (
		session_key   TEXT PRIMARY KEY,
		session_data  JSONB NOT NULL DEFAULT '{}',
		user_id       BIGINT REFERENCES auth_user(id) ON DELETE CASCADE,
		expire_date   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS client_session_expire_idx ON client_session (expire_date)`,
	`CREATE TABLE IF NOT EXISTS config (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL,
		value      JSONB,
		comment    TEXT NOT NULL DEFAULT '',
		user_id    BIGINT REFERENCES auth_user(id) ON DELETE SET NULL,
		parent_id  BIGINT REFERENCES config(id) ON DELETE CASCADE
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS config_parent_name_idx ON config (COALESCE(parent_id, 0), name)`,
	`CREATE TABLE IF NOT EXISTS country_codes (
		id       BIGSERIAL PRIMARY KEY,
		name     TEXT NOT NULL,
		isocode  TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS country_sets (
		id    BIGSERIAL PRIMARY KEY,
		name  TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS country_sets_countries (
		set_id   BIGINT NOT NULL REFERENCES country_sets(id) ON DELETE CASCADE,
		item_id  BIGINT NOT NULL REFERENCES country_codes(id) ON DELETE CASCADE,
		PRIMARY KEY (set_id, item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS account_ids (
		id          BIGSERIAL PRIMARY KEY,
		identifier  TEXT NOT NULL UNIQUE,
		login       TEXT NOT NULL,
		password    TEXT NOT NULL DEFAULT '',
		note        TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS language_codes (
		id       BIGSERIAL PRIMARY KEY,
		name     TEXT NOT NULL,
		isocode  TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS language_sets (
		id    BIGSERIAL PRIMARY KEY,
		name  TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS language_sets_languages (
		set_id   BIGINT NOT NULL REFERENCES language_sets(id) ON DELETE CASCADE,
		item_id  BIGINT NOT NULL REFERENCES language_codes(id) ON DELETE CASCADE,
		PRIMARY KEY (set_id, item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS addresses (
		id             BIGSERIAL PRIMARY KEY,
		address        TEXT NOT NULL,
		address2       TEXT NOT NULL DEFAULT '',
		city           TEXT NOT NULL,
		stateprovince  TEXT NOT NULL DEFAULT '',
		postalcode     TEXT NOT NULL DEFAULT '',
		country_id     BIGINT REFERENCES country_codes(id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS schedule (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL UNIQUE,
		minute        TEXT NOT NULL DEFAULT '*',
		hour          TEXT NOT NULL DEFAULT '*',
		day_of_month  TEXT NOT NULL DEFAULT '*',
		month         TEXT NOT NULL DEFAULT '*',
		day_of_week   TEXT NOT NULL DEFAULT '*',
		user_id       BIGINT REFERENCES auth_user(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS functional_area (
		id           BIGSERIAL PRIMARY KEY,
		name         TEXT NOT NULL UNIQUE,
		description  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS corporations (
		id     BIGSERIAL PRIMARY KEY,
		name   TEXT NOT NULL UNIQUE,
		notes  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS corporations_services (
		corporation_id     BIGINT NOT NULL REFERENCES corporations(id) ON DELETE CASCADE,
		functionalarea_id  BIGINT NOT NULL REFERENCES functional_area(id) ON DELETE CASCADE,
		PRIMARY KEY (corporation_id, functionalarea_id)
	)`,
	`CREATE TABLE IF NOT EXISTS contacts (
		id              BIGSERIAL PRIMARY KEY,
		prefix          TEXT NOT NULL DEFAULT '',
		firstname       TEXT NOT NULL,
		middlename      TEXT NOT NULL DEFAULT '',
		lastname        TEXT NOT NULL,
		title           TEXT NOT NULL DEFAULT '',
		email           TEXT NOT NULL DEFAULT '',
		phone           TEXT NOT NULL DEFAULT '',
		mobile          TEXT NOT NULL DEFAULT '',
		corporation_id  BIGINT REFERENCES corporations(id) ON DELETE SET NULL,
		user_id         BIGINT REFERENCES auth_user(id) ON DELETE SET NULL,
		note            TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS location (
		id            BIGSERIAL PRIMARY KEY,
		locationcode  TEXT NOT NULL UNIQUE,
		address_id    BIGINT REFERENCES addresses(id) ON DELETE SET NULL,
		contact_id    BIGINT REFERENCES contacts(id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS project_category (
		id    BIGSERIAL PRIMARY KEY,
		name  TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS components (
		id           BIGSERIAL PRIMARY KEY,
		name         TEXT NOT NULL UNIQUE,
		description  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id           BIGSERIAL PRIMARY KEY,
		name         TEXT NOT NULL UNIQUE,
		category_id  BIGINT REFERENCES project_category(id) ON DELETE SET NULL,
		description  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS projects_components (
		project_id    BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		component_id  BIGINT NOT NULL REFERENCES components(id) ON DELETE CASCADE,
		PRIMARY KEY (project_id, component_id)
	)`,
	`CREATE TABLE IF NOT EXISTS project_versions (
		id          BIGSERIAL PRIMARY KEY,
		project_id  BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		major       INTEGER NOT NULL DEFAULT 0,
		minor       INTEGER NOT NULL DEFAULT 0,
		subminor    INTEGER NOT NULL DEFAULT 0,
		build       TEXT NOT NULL DEFAULT '',
		UNIQUE (project_id, major, minor, subminor, build)
	)`,
	`CREATE TABLE IF NOT EXISTS software_category (
		id           BIGSERIAL PRIMARY KEY,
		name         TEXT NOT NULL UNIQUE,
		description  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS software (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL UNIQUE,
		category_id   BIGINT REFERENCES software_category(id) ON DELETE SET NULL,
		manufacturer  TEXT NOT NULL DEFAULT '',
		version       TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS software_variant (
		id           BIGSERIAL PRIMARY KEY,
		name         TEXT NOT NULL UNIQUE,
		description  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS software_variants (
		software_id  BIGINT NOT NULL REFERENCES software(id) ON DELETE CASCADE,
		variant_id   BIGINT NOT NULL REFERENCES software_variant(id) ON DELETE CASCADE,
		PRIMARY KEY (software_id, variant_id)
	)`,
	`CREATE TABLE IF NOT EXISTS equipment_category (
		id    BIGSERIAL PRIMARY KEY,
		name  TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS interface_type (
		id           BIGSERIAL PRIMARY KEY,
		name         TEXT NOT NULL UNIQUE,
		enumeration  INTEGER NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS networks (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		ipnetwork  CIDR,
		bridgeid   TEXT NOT NULL DEFAULT '',
		notes      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS equipment_model (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL UNIQUE,
		manufacturer  TEXT NOT NULL DEFAULT '',
		category_id   BIGINT REFERENCES equipment_category(id) ON DELETE SET NULL,
		note          TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS equipment_model_embeddedsoftware (
		equipmentmodel_id  BIGINT NOT NULL REFERENCES equipment_model(id) ON DELETE CASCADE,
		software_id        BIGINT NOT NULL REFERENCES software(id) ON DELETE CASCADE,
		PRIMARY KEY (equipmentmodel_id, software_id)
	)`,
	`CREATE TABLE IF NOT EXISTS equipment (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		model_id   BIGINT REFERENCES equipment_model(id) ON DELETE SET NULL,
		serno      TEXT NOT NULL DEFAULT '',
		parent_id  BIGINT REFERENCES equipment(id) ON DELETE SET NULL,
		owner_id   BIGINT REFERENCES auth_user(id) ON DELETE SET NULL,
		active     BOOLEAN NOT NULL DEFAULT TRUE,
		addeddate  TIMESTAMPTZ NOT NULL DEFAULT now(),
		comments   TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS capability_group (
		id    BIGSERIAL PRIMARY KEY,
		name  TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS capability_type (
		id           BIGSERIAL PRIMARY KEY,
		name         TEXT NOT NULL UNIQUE,
		value_type   SMALLINT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		group_id     BIGINT REFERENCES capability_group(id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS capability (
		id            BIGSERIAL PRIMARY KEY,
		equipment_id  BIGINT NOT NULL REFERENCES equipment(id) ON DELETE CASCADE,
		type_id       BIGINT NOT NULL REFERENCES capability_type(id) ON DELETE CASCADE,
		value         JSONB NOT NULL,
		UNIQUE (equipment_id, type_id)
	)`,
	`CREATE TABLE IF NOT EXISTS equipment_software (
		equipment_id  BIGINT NOT NULL REFERENCES equipment(id) ON DELETE CASCADE,
		software_id   BIGINT NOT NULL REFERENCES software(id) ON DELETE CASCADE,
		PRIMARY KEY (equipment_id, software_id)
	)`,
	`CREATE TABLE IF NOT EXISTS interfaces (
		id                 BIGSERIAL PRIMARY KEY,
		name               TEXT NOT NULL,
		alias              TEXT NOT NULL DEFAULT '',
		ifindex            INTEGER,
		description        TEXT NOT NULL DEFAULT '',
		macaddr            TEXT NOT NULL DEFAULT '',
		vlan               INTEGER NOT NULL DEFAULT 0,
		ipaddr             TEXT NOT NULL DEFAULT '',
		mtu                INTEGER,
		speed              BIGINT,
		status             INTEGER NOT NULL DEFAULT 0,
		interface_type_id  BIGINT REFERENCES interface_type(id) ON DELETE SET NULL,
		parent_id          BIGINT REFERENCES interfaces(id) ON DELETE SET NULL,
		equipment_id       BIGINT REFERENCES equipment(id) ON DELETE CASCADE,
		network_id         BIGINT REFERENCES networks(id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS environments (
		id        BIGSERIAL PRIMARY KEY,
		name      TEXT NOT NULL UNIQUE,
		owner_id  BIGINT REFERENCES auth_user(id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS testequipment (
		id              BIGSERIAL PRIMARY KEY,
		equipment_id    BIGINT NOT NULL REFERENCES equipment(id) ON DELETE CASCADE,
		environment_id  BIGINT NOT NULL REFERENCES environments(id) ON DELETE CASCADE,
		uut             BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (equipment_id, environment_id)
	)`,
	`CREATE TABLE IF NOT EXISTS testequipment_roles (
		testequipment_id     BIGINT NOT NULL REFERENCES testequipment(id) ON DELETE CASCADE,
		softwarecategory_id  BIGINT NOT NULL REFERENCES software_category(id) ON DELETE CASCADE,
		PRIMARY KEY (testequipment_id, softwarecategory_id)
	)`,
	`CREATE TABLE IF NOT EXISTS traps (
		id         BIGSERIAL PRIMARY KEY,
		timestamp  TIMESTAMPTZ NOT NULL,
		value      JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS test_cases (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL UNIQUE,
		purpose       TEXT NOT NULL DEFAULT '',
		passcriteria  TEXT NOT NULL DEFAULT '',
		automated     BOOLEAN NOT NULL DEFAULT TRUE,
		interactive   BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS test_cases_areas (
		testcase_id        BIGINT NOT NULL REFERENCES test_cases(id) ON DELETE CASCADE,
		functionalarea_id  BIGINT NOT NULL REFERENCES functional_area(id) ON DELETE CASCADE,
		PRIMARY KEY (testcase_id, functionalarea_id)
	)`,
	`CREATE TABLE IF NOT EXISTS test_suites (
		id       BIGSERIAL PRIMARY KEY,
		name     TEXT NOT NULL UNIQUE,
		purpose  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS test_suites_testcases (
		testsuite_id  BIGINT NOT NULL REFERENCES test_suites(id) ON DELETE CASCADE,
		testcase_id   BIGINT NOT NULL REFERENCES test_cases(id) ON DELETE CASCADE,
		PRIMARY KEY (testsuite_id, testcase_id)
	)`,
	`CREATE TABLE IF NOT EXISTS components_suites (
		component_id  BIGINT NOT NULL REFERENCES components(id) ON DELETE CASCADE,
		testsuite_id  BIGINT NOT NULL REFERENCES test_suites(id) ON DELETE CASCADE,
		PRIMARY KEY (component_id, testsuite_id)
	)`,
	`CREATE TABLE IF NOT EXISTS test_jobs (
		id              BIGSERIAL PRIMARY KEY,
		name            TEXT NOT NULL UNIQUE,
		user_id         BIGINT REFERENCES auth_user(id) ON DELETE SET NULL,
		suite_id        BIGINT REFERENCES test_suites(id) ON DELETE SET NULL,
		environment_id  BIGINT REFERENCES environments(id) ON DELETE SET NULL,
		schedule_id     BIGINT REFERENCES schedule(id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS test_results_data (
		id    BIGSERIAL PRIMARY KEY,
		data  JSONB NOT NULL,
		note  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS test_results (
		id                  BIGSERIAL PRIMARY KEY,
		objecttype          SMALLINT NOT NULL,
		testcase_id         BIGINT REFERENCES test_cases(id) ON DELETE SET NULL,
		testimplementation  TEXT NOT NULL DEFAULT '',
		tester_id           BIGINT REFERENCES auth_user(id) ON DELETE SET NULL,
		environment_id      BIGINT REFERENCES environments(id) ON DELETE SET NULL,
		parent_id           BIGINT REFERENCES test_results(id) ON DELETE CASCADE,
		starttime           TIMESTAMPTZ,
		endtime             TIMESTAMPTZ,
		arguments           TEXT NOT NULL DEFAULT '',
		result              SMALLINT NOT NULL,
		diagnostic          TEXT NOT NULL DEFAULT '',
		resultslocation     TEXT NOT NULL DEFAULT '',
		testversion         TEXT NOT NULL DEFAULT '',
		note                TEXT NOT NULL DEFAULT '',
		valid               BOOLEAN NOT NULL DEFAULT TRUE,
		data_id             BIGINT REFERENCES test_results_data(id) ON DELETE SET NULL
	)`,
	`CREATE INDEX IF NOT EXISTS test_results_parent_idx ON test_results (parent_id)`,
	`CREATE INDEX IF NOT EXISTS test_results_testcase_idx ON test_results (testcase_id, starttime DESC)`,
}

// seedStatements create the rows the stores expect to exist.
var seedStatements = []string{
	`INSERT INTO auth_group (name) VALUES ('tester') ON CONFLICT (name) DO NOTHING`,
	`INSERT INTO config (name, comment)
		SELECT 'root', 'configuration tree root'
		WHERE NOT EXISTS (SELECT 1 FROM config WHERE parent_id IS NULL AND name = 'root')`,
}

// attributeSchemaStatements renders the type and row tables for every
// attribute kind.
func attributeSchemaStatements() []string {
	var stmts []string
	seenTypes := map[string]bool{}
	for _, kind := range attributeKindOrder {
		t := attributeTables[kind]
		if !seenTypes[t.TypeTable] {
			seenTypes[t.TypeTable] = true
			stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id           BIGSERIAL PRIMARY KEY,
		name         TEXT NOT NULL UNIQUE,
		value_type   SMALLINT NOT NULL,
		description  TEXT NOT NULL DEFAULT ''
	)`, sanitizeIdentifier(t.TypeTable)))
		}
		stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id        BIGSERIAL PRIMARY KEY,
		owner_id  BIGINT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
		type_id   BIGINT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
		value     JSONB NOT NULL,
		UNIQUE (owner_id, type_id)
	)`, sanitizeIdentifier(t.AttrTable), sanitizeIdentifier(t.OwnerTable), sanitizeIdentifier(t.TypeTable)))
	}
	return stmts
}

// SchemaStatements returns the DDL for the whole schema in dependency order,
// followed by the seed rows. Every statement is idempotent.
func SchemaStatements() []string {
	stmts := make([]string, 0, len(schemaStatements)+len(seedStatements)+10)
	stmts = append(stmts, schemaStatements...)
	stmts = append(stmts, attributeSchemaStatements()...)
	return append(stmts, seedStatements...)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ApplySchema runs every DDL statement inside tx.
func ApplySchema(ctx context.Context, tx pgx.Tx) error {
	return applySchema(ctx, tx)
}

func applySchema(ctx context.Context, db execer) error {
	for i, stmt := range SchemaStatements() {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
