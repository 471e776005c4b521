package reports

import (
	"testing"
)

func TestValidateLimit(t *testing.T) {
	tests := []struct {
		name          string
		limit         int
		wantErr       bool
		wantErrString string
	}{
		{name: "unset", limit: 0},
		{name: "minimum", limit: 1},
		{name: "maximum", limit: MaxListLimit},
		{
			name:          "negative",
			limit:         -5,
			wantErr:       true,
			wantErrString: "limit parameter (-5) must be at least 1",
		},
		{
			name:          "too large",
			limit:         MaxListLimit + 1,
			wantErr:       true,
			wantErrString: "limit parameter (2001) exceeds maximum allowed value (2000)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLimit(tt.limit)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateLimit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErrString != "" && err.Error() != tt.wantErrString {
				t.Errorf("ValidateLimit() error = %q, want %q", err.Error(), tt.wantErrString)
			}
		})
	}
}

func TestLimitResults(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name          string
		limit         int
		wantLen       int
		wantTruncated bool
	}{
		{name: "no limit", limit: 0, wantLen: 5},
		{name: "smaller limit", limit: 2, wantLen: 2, wantTruncated: true},
		{name: "exact limit", limit: 5, wantLen: 5},
		{name: "larger limit", limit: 10, wantLen: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LimitResults(items, tt.limit)
			if len(got.Items) != tt.wantLen {
				t.Errorf("len(Items) = %d, want %d", len(got.Items), tt.wantLen)
			}
			if got.Total != len(items) {
				t.Errorf("Total = %d, want %d", got.Total, len(items))
			}
			if got.Truncated != tt.wantTruncated {
				t.Errorf("Truncated = %v, want %v", got.Truncated, tt.wantTruncated)
			}
		})
	}
}

func TestLimitResultsEmpty(t *testing.T) {
	got := LimitResults([]string{}, 3)
	if len(got.Items) != 0 || got.Total != 0 || got.Truncated {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestBuildListQuery(t *testing.T) {
	tests := []struct {
		filter string
		limit  int
		want   string
	}{
		{
			filter: "FolderName = 'Sales'",
			want:   "SELECT Id, Name, DeveloperName, FolderName, Format, Description, LastRunDate FROM Report WHERE FolderName = 'Sales' LIMIT 200",
		},
		{
			filter: "Name LIKE '%Pipeline%'",
			limit:  50,
			want:   "SELECT Id, Name, DeveloperName, FolderName, Format, Description, LastRunDate FROM Report WHERE Name LIKE '%Pipeline%' LIMIT 50",
		},
	}

	for _, tt := range tests {
		if got := BuildListQuery(tt.filter, tt.limit); got != tt.want {
			t.Errorf("BuildListQuery(%q, %d) = %q, want %q", tt.filter, tt.limit, got, tt.want)
		}
	}
}
