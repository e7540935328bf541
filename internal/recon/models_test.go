package recon

import "testing"

func TestParseRunMode(t *testing.T) {
	tests := []struct {
		input   string
		want    RunMode
		wantErr bool
	}{
		{input: "test", want: RunModeTest},
		{input: "full", want: RunModeFull},
		{input: "", wantErr: true},
		{input: "tets", wantErr: true},
		{input: "FULL", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRunMode(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q, got mode %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRunMode(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseRunMode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseMatchScope(t *testing.T) {
	tests := []struct {
		input   string
		want    MatchScope
		wantErr bool
	}{
		{input: "authoritative", want: ScopeAuthoritative},
		{input: "merged", want: ScopeMerged},
		{input: "", wantErr: true},
		{input: "everything", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMatchScope(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q, got scope %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMatchScope(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseMatchScope(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
