package version

import (
	"strings"
	"testing"
)

func saveAndRestore() func() {
	origVersion, origCommit := Version, GitCommit
	return func() {
		Version = origVersion
		GitCommit = origCommit
	}
}

func TestGetVersionInfoDefaults(t *testing.T) {
	defer saveAndRestore()()
	Version = "dev"
	GitCommit = ""

	info := GetVersionInfo()
	if info.Version != "dev" {
		t.Errorf("expected version 'dev', got %q", info.Version)
	}
	if info.IsRelease {
		t.Error("dev should not be a release")
	}
}

func TestGetVersionInfoRelease(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.4.0"
	GitCommit = "0123456789abcdef"

	info := GetVersionInfo()
	if !info.IsRelease {
		t.Error("expected 1.4.0 to be a release")
	}
	if info.GitCommit != "0123456" {
		t.Errorf("expected commit truncated to 7 chars, got %q", info.GitCommit)
	}
}

func TestGetShortVersion(t *testing.T) {
	defer saveAndRestore()()
	Version = "2.0.0"
	GitCommit = "abcdef0"

	got := GetShortVersion()
	if !strings.HasPrefix(got, "2.0.0-abcdef0") {
		t.Errorf("unexpected short version %q", got)
	}
}

func TestUserAgent(t *testing.T) {
	defer saveAndRestore()()
	Version = "3.1.0"
	GitCommit = ""

	ua := UserAgent()
	if !strings.HasPrefix(ua, Product+"/3.1.0") {
		t.Errorf("unexpected user agent %q", ua)
	}
}
