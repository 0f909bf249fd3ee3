package sorting

import (
	"testing"
)

func TestValidatePathWithinBase(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		basePath  string
		expectErr bool
		expected  string
	}{
		{"valid relative path", "config.yaml", "/app", false, "/app/config.yaml"},
		{"valid nested path", "configs/app.yaml", "/app", false, "/app/configs/app.yaml"},
		{"path traversal attempt", "../../../etc/passwd", "/app", true, ""},
		{"absolute path within base", "/app/config.yaml", "/app", false, "/app/config.yaml"},
		{"absolute path outside base", "/etc/passwd", "/app", true, ""},
		{"empty path", "", "/app", true, ""},
		{"empty base", "config.yaml", "", true, ""},
		{"complex traversal", "configs/../../../etc/passwd", "/app", true, ""},
		{"normalized safe path", "configs/./app.yaml", "/app", false, "/app/configs/app.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidatePathWithinBase(tt.path, tt.basePath)
			if tt.expectErr && err == nil {
				t.Errorf("expected error for path: %s, base: %s", tt.path, tt.basePath)
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error for path %s, base %s: %v", tt.path, tt.basePath, err)
			}
			if !tt.expectErr && result != tt.expected {
				t.Errorf("expected result %s, got %s", tt.expected, result)
			}
		})
	}
}
