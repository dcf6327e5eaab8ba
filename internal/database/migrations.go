package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	`CREATE TABLE IF NOT EXISTS companies (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) NOT NULL,
		contact_name VARCHAR(255) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		status VARCHAR(50) NOT NULL DEFAULT 'active',
		tags TEXT[] NOT NULL DEFAULT '{}',
		suppliers UUID[] NOT NULL DEFAULT '{}',
		customers UUID[] NOT NULL DEFAULT '{}',
		notes TEXT,
		registered_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_companies_name ON companies(name)`,
	`CREATE INDEX IF NOT EXISTS idx_companies_suppliers ON companies USING gin (suppliers)`,
	`CREATE INDEX IF NOT EXISTS idx_companies_customers ON companies USING gin (customers)`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		role VARCHAR(50) NOT NULL DEFAULT 'user',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash VARCHAR(255) UNIQUE NOT NULL,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens(user_id)`,

	// Invites are never deleted once used; the placeholder company they
	// point at is created in the same transaction, before the invite row.
	`CREATE TABLE IF NOT EXISTS invites (
		code UUID PRIMARY KEY,
		inviting_company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		target_company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		email VARCHAR(255) NOT NULL,
		name VARCHAR(255) NOT NULL,
		contact_name VARCHAR(255) NOT NULL,
		role VARCHAR(20) NOT NULL,
		tags TEXT[] NOT NULL DEFAULT '{}',
		notes TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		used_at TIMESTAMP WITH TIME ZONE,
		used_by UUID,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_invites_inviting_company ON invites(inviting_company_id)`,

	`CREATE TABLE IF NOT EXISTS question_tags (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(100) UNIQUE NOT NULL,
		color VARCHAR(7) NOT NULL DEFAULT '#2E7D32',
		description TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS question_sections (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) NOT NULL,
		description TEXT,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS questions (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		section_id UUID REFERENCES question_sections(id) ON DELETE SET NULL,
		text TEXT NOT NULL,
		type VARCHAR(30) NOT NULL,
		required BOOLEAN NOT NULL DEFAULT FALSE,
		description TEXT,
		options TEXT[] NOT NULL DEFAULT '{}',
		validation JSONB NOT NULL DEFAULT '{}',
		tags TEXT[] NOT NULL DEFAULT '{}',
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_questions_tags ON questions USING gin (tags)`,

	`CREATE TABLE IF NOT EXISTS questionnaire_templates (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		sections JSONB NOT NULL DEFAULT '[]',
		tags TEXT[] NOT NULL DEFAULT '{}',
		created_by UUID NOT NULL,
		is_archived BOOLEAN NOT NULL DEFAULT FALSE,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_templates_tags ON questionnaire_templates USING gin (tags)`,

	`CREATE TABLE IF NOT EXISTS template_versions (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		template_id UUID NOT NULL REFERENCES questionnaire_templates(id) ON DELETE CASCADE,
		version INTEGER NOT NULL,
		changes TEXT[] NOT NULL DEFAULT '{}',
		sections JSONB NOT NULL,
		updated_by UUID NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(template_id, version)
	)`,

	`CREATE TABLE IF NOT EXISTS product_sheets (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		supplier_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		template_id UUID REFERENCES questionnaire_templates(id) ON DELETE SET NULL,
		name VARCHAR(255) NOT NULL,
		selected_tags TEXT[] NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'draft',
		due_date TIMESTAMP WITH TIME ZONE,
		access_token VARCHAR(128) UNIQUE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		sent_at TIMESTAMP WITH TIME ZONE,
		submitted_at TIMESTAMP WITH TIME ZONE,
		reminder_sent_at TIMESTAMP WITH TIME ZONE
	)`,

	`CREATE INDEX IF NOT EXISTS idx_product_sheets_supplier ON product_sheets(supplier_id)`,
	`CREATE INDEX IF NOT EXISTS idx_product_sheets_status_due ON product_sheets(status, due_date)`,

	`CREATE TABLE IF NOT EXISTS company_products (
		company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		product_sheet_id UUID NOT NULL REFERENCES product_sheets(id) ON DELETE CASCADE,
		added_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		PRIMARY KEY (company_id, product_sheet_id)
	)`,

	// Tables created before the sheet reference existed get it here, after
	// dropping index rows whose sheet is already gone.
	`DO $$
	BEGIN
		IF NOT EXISTS (
			SELECT 1 FROM pg_constraint WHERE conname = 'company_products_product_sheet_id_fkey'
		) THEN
			DELETE FROM company_products cp
			WHERE NOT EXISTS (SELECT 1 FROM product_sheets ps WHERE ps.id = cp.product_sheet_id);
			ALTER TABLE company_products ADD CONSTRAINT company_products_product_sheet_id_fkey
				FOREIGN KEY (product_sheet_id) REFERENCES product_sheets(id) ON DELETE CASCADE;
		END IF;
	END $$`,

	`CREATE TABLE IF NOT EXISTS questionnaire_responses (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		template_id UUID,
		product_sheet_id UUID NOT NULL REFERENCES product_sheets(id) ON DELETE CASCADE,
		supplier_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		sections JSONB NOT NULL DEFAULT '[]',
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		completion_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		started_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		last_updated TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		submitted_at TIMESTAMP WITH TIME ZONE,
		submitted_by UUID,
		UNIQUE(product_sheet_id, supplier_id)
	)`,

	`CREATE TABLE IF NOT EXISTS response_drafts (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		response_id UUID NOT NULL REFERENCES questionnaire_responses(id) ON DELETE CASCADE,
		question_id UUID NOT NULL,
		value JSONB,
		file_urls TEXT[] NOT NULL DEFAULT '{}',
		saved_by UUID,
		saved_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_response_drafts_response ON response_drafts(response_id, saved_at DESC)`,

	`CREATE TABLE IF NOT EXISTS supplier_answers (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		invite_code UUID NOT NULL,
		question_id UUID NOT NULL,
		value JSONB,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		type VARCHAR(50) NOT NULL,
		supplier_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		product_sheet_id UUID REFERENCES product_sheets(id) ON DELETE CASCADE,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		read_at TIMESTAMP WITH TIME ZONE
	)`,

	`CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(company_id, created_at DESC) WHERE NOT read`,

	`ALTER TABLE companies ADD COLUMN IF NOT EXISTS compliance_score INTEGER`,

	`CREATE TABLE IF NOT EXISTS compliance_records (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		category VARCHAR(100) NOT NULL,
		score INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
		recorded_by UUID NOT NULL,
		recorded_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_compliance_records_company ON compliance_records(company_id, recorded_at DESC)`,

	`CREATE TABLE IF NOT EXISTS compliance_reports (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		overall_score INTEGER NOT NULL,
		category_scores JSONB NOT NULL DEFAULT '{}',
		findings JSONB NOT NULL DEFAULT '[]',
		sheets_analyzed UUID[] NOT NULL DEFAULT '{}',
		generated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
