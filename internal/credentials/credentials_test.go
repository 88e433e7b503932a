package credentials_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ericvanlare/aimod/internal/credentials"
)

func writeCredsFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "credentials.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("writing credentials file: %v", err)
	}
	return dir
}

func TestResolve_DefaultProfile(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	dir := writeCredsFile(t, `
default_profile: personal
profiles:
  personal:
    github_token: ghp_abc123
`)

	creds, err := credentials.Resolve(dir, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if creds.GithubToken != "ghp_abc123" {
		t.Errorf("unexpected token: %q", creds.GithubToken)
	}
	if creds.HasGithubApp() {
		t.Error("expected no app credentials")
	}
}

func TestResolve_NamedProfile(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	dir := writeCredsFile(t, `
default_profile: personal
profiles:
  personal:
    github_token: ghp_abc123
  work:
    github_app_client_id: Iv1.abc
    github_app_installation_id: 12345
    github_app_private_key_path: ~/.aimod/work.pem
`)

	creds, err := credentials.Resolve(dir, "work")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !creds.HasGithubApp() {
		t.Fatal("expected app credentials")
	}
	if creds.GithubAppClientID != "Iv1.abc" || creds.GithubAppInstallationID != 12345 {
		t.Errorf("unexpected app credentials: %+v", creds)
	}
}

func TestResolve_EnvOverridesAppAuth(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_env")
	dir := writeCredsFile(t, `
default_profile: work
profiles:
  work:
    github_app_client_id: Iv1.abc
    github_app_installation_id: 12345
    github_app_private_key_path: ~/.aimod/work.pem
`)

	creds, err := credentials.Resolve(dir, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if creds.GithubToken != "ghp_env" {
		t.Errorf("expected env token, got %q", creds.GithubToken)
	}
	if creds.HasGithubApp() {
		t.Error("env token should clear app credentials")
	}
}

func TestResolve_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_env")

	creds, err := credentials.Resolve(t.TempDir(), "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if creds.GithubToken != "ghp_env" {
		t.Errorf("unexpected token: %q", creds.GithubToken)
	}
}

func TestResolve_MissingFileAndEnv(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")

	if _, err := credentials.Resolve(t.TempDir(), ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestResolve_MissingFileWithProfileRequested(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_env")

	_, err := credentials.Resolve(t.TempDir(), "work")
	if err == nil || !strings.Contains(err.Error(), "credentials file not found") {
		t.Fatalf("expected missing-file error, got %v", err)
	}
}

func TestResolve_UnknownProfile(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	dir := writeCredsFile(t, `
profiles:
  personal:
    github_token: ghp_abc123
`)

	_, err := credentials.Resolve(dir, "nope")
	if err == nil || !strings.Contains(err.Error(), `profile "nope" not found`) {
		t.Fatalf("expected unknown-profile error, got %v", err)
	}
}

func TestResolve_IncompleteAppConfig(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	dir := writeCredsFile(t, `
default_profile: work
profiles:
  work:
    github_app_client_id: Iv1.abc
`)

	_, err := credentials.Resolve(dir, "")
	if err == nil || !strings.Contains(err.Error(), "incomplete GitHub App config") {
		t.Fatalf("expected incomplete-config error, got %v", err)
	}
}
