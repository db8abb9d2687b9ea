package analysis

import (
	"errors"
	"testing"
)

func TestParseResponseResults(t *testing.T) {
	data := []byte(`{
		"results": [
			{"rule_id": "sql-injection", "message": "string concatenation in query", "file": "db/users.py", "line": 42, "severity": "high"},
			{"rule_id": "weak-hash", "message": "md5 used for passwords", "file": "auth/hash.py", "severity": "MEDIUM"}
		]
	}`)

	results, err := ParseResponse(data)
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].RuleID != "sql-injection" || results[0].Line != 42 {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	if results[1].Line != 0 {
		t.Errorf("missing line should decode as zero, got %d", results[1].Line)
	}
}

func TestParseResponseErrorEnvelope(t *testing.T) {
	data := []byte(`{"error": {"kind": "unsupported_language", "message": "no analyzer for this repository"}}`)

	_, err := ParseResponse(data)
	if err == nil {
		t.Fatal("expected error from error envelope")
	}

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected *ServiceError, got %T", err)
	}
	if svcErr.Kind != "unsupported_language" {
		t.Errorf("unexpected error kind: %s", svcErr.Kind)
	}
}

func TestParseResponseEmpty(t *testing.T) {
	results, err := ParseResponse([]byte(`{"results": []}`))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestParseResponseInvalidJSON(t *testing.T) {
	if _, err := ParseResponse([]byte("not json")); err == nil {
		t.Error("expected parse error for invalid JSON")
	}
}
