package scanner

import (
	"context"
	"testing"

	"github.com/liam-witterick/repoguard/internal/findings"
	"github.com/liam-witterick/repoguard/internal/workspace"
)

func TestConfigScannerRules(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		ruleID   string
		severity findings.Severity
	}{
		{"tls verify disabled yaml", "app.yaml", "verify_ssl: false\n", "tls-verify-disabled", findings.SeverityHigh},
		{"wildcard cors", "settings.toml", `allowed_origins = "*"` + "\n", "wildcard-cors", findings.SeverityMedium},
		{"debug enabled env", ".env", "DEBUG=true\n", "debug-enabled", findings.SeverityMedium},
		{"bind all interfaces", "server.conf", "listen = 0.0.0.0:8080\n", "bind-all-interfaces", findings.SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, root, tt.file, tt.content)

			s := &ConfigScanner{}
			raw, err := s.Run(context.Background(), workspace.Local(root))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			found := false
			for _, f := range raw {
				if f.RuleID == tt.ruleID {
					found = true
					if f.Severity != string(tt.severity) {
						t.Errorf("expected %s severity, got %s", tt.severity, f.Severity)
					}
					if f.Line != 1 {
						t.Errorf("expected line 1, got %d", f.Line)
					}
				}
			}
			if !found {
				t.Errorf("expected a %s finding in %s", tt.ruleID, tt.file)
			}
		})
	}
}

func TestConfigScannerIgnoresSourceFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "debug = true\n")
	writeFile(t, root, "app.py", "DEBUG = True\n")

	s := &ConfigScanner{}
	raw, err := s.Run(context.Background(), workspace.Local(root))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw) != 0 {
		t.Errorf("expected no findings outside config files, got %d", len(raw))
	}
}

func TestConfigScannerCleanConfig(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.yaml", "host: 10.0.0.5\ndebug: false\nverify_ssl: true\n")

	s := &ConfigScanner{}
	raw, err := s.Run(context.Background(), workspace.Local(root))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw) != 0 {
		t.Errorf("expected no findings for clean config, got %d", len(raw))
	}
}
