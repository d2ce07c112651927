// Package db owns the Postgres connection pool, the idempotent schema
// bootstrap and the LISTEN connection behind the change feed.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/lanceo/pkg/logger"
)

// NotifyChannel is the Postgres channel the change triggers publish on.
const NotifyChannel = "lanceo_changes"

// Connect opens a pool against url and pings it.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Ensure creates every table, index and trigger the backend relies on.
// Each step is safe to repeat.
func Ensure(ctx context.Context, pool *pgxpool.Pool, log logger.Logger) error {
	steps := []struct {
		name string
		sql  string
	}{
		{"extension pgcrypto", `CREATE EXTENSION IF NOT EXISTS pgcrypto`},
		{"auth_users", authUsersTable},
		{"profiles", profilesTable},
		{"projects", projectsTable},
		{"projects status values", projectStatuses},
		{"proposals", proposalsTable},
		{"messages", messagesTable},
		{"notify function", notifyFunction},
		{"profiles notify trigger", notifyTrigger("profiles")},
		{"projects notify trigger", notifyTrigger("projects")},
		{"offers counter", offersCounter},
	}
	for _, s := range steps {
		if _, err := pool.Exec(ctx, s.sql); err != nil {
			log.Error(ctx, "schema step failed", logger.String("step", s.name), logger.Error(err))
			return fmt.Errorf("ensure %s: %w", s.name, err)
		}
	}
	log.Info(ctx, "schema ensured", logger.Int("steps", len(steps)))
	return nil
}

const authUsersTable = `
CREATE TABLE IF NOT EXISTS auth_users (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
)`

const profilesTable = `
CREATE TABLE IF NOT EXISTS profiles (
	id UUID PRIMARY KEY REFERENCES auth_users(id) ON DELETE CASCADE,
	name TEXT,
	type TEXT NOT NULL DEFAULT 'freelance' CHECK (type IN ('client', 'freelance')),
	avatar_url TEXT,
	tagline TEXT,
	bio TEXT,
	location TEXT,
	hourly_rate NUMERIC,
	skills TEXT[] NOT NULL DEFAULT '{}',
	rating NUMERIC,
	reviews_count INTEGER NOT NULL DEFAULT 0,
	projects_count INTEGER NOT NULL DEFAULT 0,
	profile_completion INTEGER,
	rank TEXT,
	verified BOOLEAN NOT NULL DEFAULT FALSE,
	available BOOLEAN NOT NULL DEFAULT TRUE,
	website TEXT,
	github TEXT,
	linkedin TEXT,
	twitter TEXT,
	created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_profiles_type ON profiles(type)`

const projectsTable = `
CREATE TABLE IF NOT EXISTS projects (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	owner_id UUID REFERENCES profiles(id) ON DELETE SET NULL,
	client_id TEXT,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'closed', 'awarded')),
	budget_min NUMERIC NOT NULL DEFAULT 0,
	budget_max NUMERIC NOT NULL DEFAULT 0,
	skills TEXT[] NOT NULL DEFAULT '{}',
	offers_count INTEGER NOT NULL DEFAULT 0,
	views_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_projects_created ON projects(created_at DESC)`

// projectStatuses rewrites the life cycle values of older schemas and
// replaces their check constraint.
const projectStatuses = `
ALTER TABLE projects DROP CONSTRAINT IF EXISTS projects_status_check;
UPDATE projects SET status = CASE status WHEN 'cancelled' THEN 'closed' ELSE 'awarded' END
	WHERE status IN ('in_progress', 'completed', 'cancelled');
ALTER TABLE projects ADD CONSTRAINT projects_status_check CHECK (status IN ('open', 'closed', 'awarded'))`

const proposalsTable = `
CREATE TABLE IF NOT EXISTS proposals (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	freelancer_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	content TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'rejected')),
	created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_proposals_project ON proposals(project_id)`

const messagesTable = `
CREATE TABLE IF NOT EXISTS messages (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	sender_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	receiver_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	project_id UUID REFERENCES projects(id) ON DELETE SET NULL,
	content TEXT NOT NULL,
	read BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
)`

// The payload mirrors the realtime message shape: table, type, record and
// old_record. Postgres caps NOTIFY payloads at 8000 bytes, so oversized rows
// are sent without their records and listeners fall back to a reload.
var notifyFunction = fmt.Sprintf(`
CREATE OR REPLACE FUNCTION lanceo_notify_change() RETURNS trigger AS $$
DECLARE
	payload TEXT;
BEGIN
	payload := json_build_object(
		'table', TG_TABLE_NAME,
		'type', TG_OP,
		'record', CASE WHEN TG_OP = 'DELETE' THEN NULL ELSE row_to_json(NEW) END,
		'old_record', CASE WHEN TG_OP = 'INSERT' THEN NULL ELSE row_to_json(OLD) END
	)::text;
	IF octet_length(payload) > 7900 THEN
		payload := json_build_object('table', TG_TABLE_NAME, 'type', TG_OP)::text;
	END IF;
	PERFORM pg_notify('%s', payload);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql`, NotifyChannel)

func notifyTrigger(table string) string {
	return fmt.Sprintf(`
DROP TRIGGER IF EXISTS %[1]s_notify_change ON %[1]s;
CREATE TRIGGER %[1]s_notify_change
	AFTER INSERT OR UPDATE OR DELETE ON %[1]s
	FOR EACH ROW EXECUTE FUNCTION lanceo_notify_change()`, table)
}

const offersCounter = `
CREATE OR REPLACE FUNCTION lanceo_count_offer() RETURNS trigger AS $$
BEGIN
	UPDATE projects SET offers_count = offers_count + 1 WHERE id = NEW.project_id;
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;
DROP TRIGGER IF EXISTS proposals_count_offer ON proposals;
CREATE TRIGGER proposals_count_offer
	AFTER INSERT ON proposals
	FOR EACH ROW EXECUTE FUNCTION lanceo_count_offer()`
