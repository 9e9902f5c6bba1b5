package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected exactly one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}

func TestCatalogMigrationGuardsStock(t *testing.T) {
	assertContains(t, readMigration(t, "create_catalog"), []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CHECK (stock >= 0)",
		"DROP TABLE IF EXISTS products",
	})
}

func TestFlashSaleMigrationGuardsQuota(t *testing.T) {
	assertContains(t, readMigration(t, "create_flash_sales"), []string{
		"CREATE TABLE IF NOT EXISTS flash_sale_items",
		"REFERENCES flash_sales(id) ON DELETE CASCADE",
		"CHECK (sold >= 0 AND sold <= capacity)",
		"ux_flash_sale_items_sale_product ON flash_sale_items (flash_sale_id, product_id)",
		"CHECK (end_at > start_at)",
	})
}

func TestDiscountMigrationEnforcesSingleGrant(t *testing.T) {
	assertContains(t, readMigration(t, "create_discounts"), []string{
		"CREATE TABLE IF NOT EXISTS user_discounts",
		"ux_user_discounts_user_discount ON user_discounts (user_id, discount_id)",
		"REFERENCES users(id) ON DELETE CASCADE",
		"REFERENCES discounts(id) ON DELETE CASCADE",
	})
}

func TestOrdersMigrationCascadesOwnedRows(t *testing.T) {
	assertContains(t, readMigration(t, "create_orders"), []string{
		"REFERENCES orders(id) ON DELETE CASCADE",
		"order_id uuid NOT NULL UNIQUE",
		"flash_sale_item_id uuid",
		"REFERENCES flash_sale_items(id) ON DELETE SET NULL",
		"CHECK (qty > 0)",
	})
}

func TestCreateSQLMigrationWritesGooseTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Order Tags")
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_order_tags.sql") {
		t.Fatalf("unexpected file name %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}
