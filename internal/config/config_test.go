package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindEnvLocal_InCurrentDir(t *testing.T) {
	// Create temp directory structure
	tmpDir := t.TempDir()
	envPath := filepath.Join(tmpDir, ".env.local")
	if err := os.WriteFile(envPath, []byte("TEST=value"), 0644); err != nil {
		t.Fatal(err)
	}

	// Change to temp dir
	oldCwd, _ := os.Getwd()
	defer os.Chdir(oldCwd)
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}

	result := findEnvLocal()
	if result == "" {
		t.Error("expected to find .env.local in current directory")
	}
}

func TestFindEnvLocal_ClosestWins(t *testing.T) {
	// Create: grandparent/.env.local, grandparent/parent/.env.local, grandparent/parent/child/
	tmpDir := t.TempDir()
	parentDir := filepath.Join(tmpDir, "parent")
	childDir := filepath.Join(parentDir, "child")
	if err := os.MkdirAll(childDir, 0755); err != nil {
		t.Fatal(err)
	}

	// Create .env.local in both grandparent and parent
	if err := os.WriteFile(filepath.Join(tmpDir, ".env.local"), []byte("TEST=grandparent"), 0644); err != nil {
		t.Fatal(err)
	}
	parentEnvPath := filepath.Join(parentDir, ".env.local")
	if err := os.WriteFile(parentEnvPath, []byte("TEST=parent"), 0644); err != nil {
		t.Fatal(err)
	}

	// Change to child dir
	oldCwd, _ := os.Getwd()
	defer os.Chdir(oldCwd)
	if err := os.Chdir(childDir); err != nil {
		t.Fatal(err)
	}

	result := findEnvLocal()
	// Resolve symlinks for comparison (macOS /var -> /private/var)
	expectedResolved, _ := filepath.EvalSymlinks(parentEnvPath)
	resultResolved, _ := filepath.EvalSymlinks(result)
	if resultResolved != expectedResolved {
		t.Errorf("expected closest .env.local (%s), got %s", expectedResolved, resultResolved)
	}
}

func TestFindEnvLocal_NotFound(t *testing.T) {
	// Create temp directory with no .env.local
	tmpDir := t.TempDir()

	// Change to temp dir
	oldCwd, _ := os.Getwd()
	defer os.Chdir(oldCwd)
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}

	result := findEnvLocal()
	if result != "" {
		t.Errorf("expected empty string when no .env.local found, got %s", result)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MOMCHECK_DB_DRIVER", "sqlite")
	t.Setenv("MOMCHECK_SQLITE_PATH", "/tmp/mom.sqlite3")
	t.Setenv("MOMCHECK_BACKUP_ZIP", "/data/full.zip")
	t.Setenv("MOMCHECK_DB_PORT", "6543")
	t.Setenv("MOMCHECK_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DBDriver != DriverSQLite {
		t.Errorf("DBDriver = %q, want %q", cfg.DBDriver, DriverSQLite)
	}
	if cfg.SQLitePath != "/tmp/mom.sqlite3" {
		t.Errorf("SQLitePath = %q", cfg.SQLitePath)
	}
	if cfg.BackupZip != "/data/full.zip" {
		t.Errorf("BackupZip = %q", cfg.BackupZip)
	}
	if cfg.DBPort != 6543 {
		t.Errorf("DBPort = %d, want 6543", cfg.DBPort)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MOMCHECK_DB_PORT", "not-a-port")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestLoad_PasswordFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	pwPath := filepath.Join(tmpDir, "pw")
	if err := os.WriteFile(pwPath, []byte("s3cret\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MOMCHECK_DB_PASSWORD", "")
	t.Setenv("MOMCHECK_DB_PASSWORD_FILE", pwPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPassword != "s3cret" {
		t.Errorf("DBPassword = %q, want s3cret", cfg.DBPassword)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"postgres ok", Config{DBDriver: DriverPostgres, DBHost: "db", DBName: "momcheck"}, false},
		{"postgres without host", Config{DBDriver: DriverPostgres, DBName: "momcheck"}, true},
		{"sqlite ok", Config{DBDriver: DriverSQLite, SQLitePath: "mom.db"}, false},
		{"sqlite without path", Config{DBDriver: DriverSQLite}, true},
		{"unknown driver", Config{DBDriver: "mysql"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := Config{DBHost: "db", DBPort: 5432, DBUser: "postgres", DBPassword: "it's", DBName: "momcheck"}

	want := `host='db' port=5432 user='postgres' password='it\'s' dbname='momcheck'`
	if got := cfg.PostgresDSN(""); got != want {
		t.Errorf("PostgresDSN = %s, want %s", got, want)
	}

	wantAdmin := `host='db' port=5432 user='postgres' password='it\'s' dbname='postgres'`
	if got := cfg.PostgresDSN("postgres"); got != wantAdmin {
		t.Errorf("PostgresDSN(postgres) = %s, want %s", got, wantAdmin)
	}
}
