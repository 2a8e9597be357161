package buildinfo

import "testing"

// Not parallel: the tests mutate package variables.
func TestString(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, BuildDate
	t.Cleanup(func() { Version, Commit, BuildDate = origVersion, origCommit, origDate })

	Version, Commit, BuildDate = "", "", ""
	if got, want := String(), "idmap dev (commit unknown, built unknown)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	Version, Commit, BuildDate = "v1.2.0", "0123456789abcdef", "2026-09-01T00:00:00Z"
	if got, want := String(), "idmap v1.2.0 (commit 0123456789ab, built 2026-09-01T00:00:00Z)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := Release(); got != "v1.2.0" {
		t.Errorf("Release() = %q, want v1.2.0", got)
	}
}
