package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpNilError(t *testing.T) {
	d := Dump(nil)
	if d.TopMessage != "" || d.Code != "" || len(d.Chain) != 0 {
		t.Fatalf("expected zero dump for nil error, got %+v", d)
	}
}

func TestDumpUnwrapsChainAndCode(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("connection reset"), "db: insert product")

	d := Dump(err)
	if d.Code != CodeDependency {
		t.Fatalf("expected code %s, got %s", CodeDependency, d.Code)
	}
	if d.TopMessage != err.Error() {
		t.Fatalf("expected top message %q, got %q", err.Error(), d.TopMessage)
	}
	if len(d.Chain) < 2 {
		t.Fatalf("expected the unwrapped chain, got %v", d.Chain)
	}
}

func TestDumpExtractsPgxError(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "idx_product_variants_combo",
		TableName:      "product_variants",
		Detail:         "Key (product_id, color, size) already exists.",
		Message:        "duplicate key value violates unique constraint",
	}
	err := Wrap(CodeDependency, fmt.Errorf("db: insert variants: %w", pgErr), "create product")

	d := Dump(err)
	if d.PGCode != "23505" {
		t.Fatalf("expected pg code 23505, got %q", d.PGCode)
	}
	if d.PGConstraint != "idx_product_variants_combo" {
		t.Fatalf("expected constraint name, got %q", d.PGConstraint)
	}
	if d.PGTable != "product_variants" {
		t.Fatalf("expected table name, got %q", d.PGTable)
	}
}

func TestDumpExtractsPqError(t *testing.T) {
	pqErr := &pq.Error{
		Code:       "23505",
		Constraint: "idx_product_variants_combo",
		Table:      "product_variants",
		Message:    "duplicate key value violates unique constraint",
	}
	err := fmt.Errorf("db: insert variants: %w", pqErr)

	d := Dump(err)
	if d.PGCode != "23505" {
		t.Fatalf("expected pg code 23505, got %q", d.PGCode)
	}
	if d.PGConstraint != "idx_product_variants_combo" {
		t.Fatalf("expected constraint name, got %q", d.PGConstraint)
	}
}
