package models

import (
	"errors"
	"testing"
)

func TestSearchQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   *SearchQuery
		want    int
		wantErr bool
	}{
		{"empty query", &SearchQuery{Query: "  "}, 0, true},
		{"sets default", &SearchQuery{Query: "x"}, DefaultNumResults, false},
		{"caps at max", &SearchQuery{Query: "x", NumResults: 200}, MaxNumResults, false},
		{"negative becomes one", &SearchQuery{Query: "x", NumResults: -3}, 1, false},
		{"keeps in range", &SearchQuery{Query: "x", NumResults: 7}, 7, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidQuery) {
					t.Errorf("expected ErrInvalidQuery, got %v", err)
				}
				return
			}
			if tt.query.NumResults != tt.want {
				t.Errorf("NumResults = %d, want %d", tt.query.NumResults, tt.want)
			}
		})
	}
}

func TestSearchQuery_Wants(t *testing.T) {
	all := &SearchQuery{Query: "x"}
	if !all.Wants("Anything") {
		t.Error("empty filter should accept every collection")
	}
	some := &SearchQuery{Query: "x", Collections: []string{"FinalTestament"}}
	if !some.Wants("FinalTestament") || some.Wants("RashadAllMedia") {
		t.Error("filter should accept only listed collections")
	}
}
