package mongodb

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		wantErr bool
	}{
		{"empty means match all", "", 0, false},
		{"whitespace means match all", "   ", 0, false},
		{"empty object", "{}", 0, false},
		{"simple filter", `{"status": "active"}`, 1, false},
		{"operator filter", `{"age": {"$gt": 21}}`, 1, false},
		{"extended json", `{"_id": {"$oid": "507f1f77bcf86cd799439011"}}`, 1, false},
		{"malformed", `{"status":`, 0, true},
		{"not a document", `[1, 2]`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseFilter("query", tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ParseFilter() should fail")
				}
				if !errors.Is(err, ErrValidation) {
					t.Errorf("parse failure should wrap ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFilter() unexpected error: %v", err)
			}
			if len(doc) != tt.wantLen {
				t.Errorf("ParseFilter() returned %d elements, expected %d", len(doc), tt.wantLen)
			}
		})
	}
}

func TestParseFilter_PreservesKeyOrder(t *testing.T) {
	doc, err := ParseFilter("sort", `{"a": 1, "b": -1, "c": 1}`)
	if err != nil {
		t.Fatalf("ParseFilter() unexpected error: %v", err)
	}

	want := []string{"a", "b", "c"}
	if len(doc) != len(want) {
		t.Fatalf("ParseFilter() returned %d elements, expected %d", len(doc), len(want))
	}
	for i, key := range want {
		if doc[i].Key != key {
			t.Errorf("element %d key = %q, expected %q (order must be preserved)", i, doc[i].Key, key)
		}
	}
}

func TestParsePipeline(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantStages int
		wantErr    bool
	}{
		{"empty", "", 0, false},
		{"empty array", "[]", 0, false},
		{"single stage", `[{"$match": {"x": 1}}]`, 1, false},
		{"multi stage", `[{"$match": {"x": 1}}, {"$group": {"_id": "$y"}}]`, 2, false},
		{"bare document rejected", `{"$match": {"x": 1}}`, 0, true},
		{"malformed", `[{"$match":`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stages, err := ParsePipeline(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ParsePipeline() should fail")
				}
				if !errors.Is(err, ErrValidation) {
					t.Errorf("parse failure should wrap ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePipeline() unexpected error: %v", err)
			}
			if len(stages) != tt.wantStages {
				t.Errorf("ParsePipeline() returned %d stages, expected %d", len(stages), tt.wantStages)
			}
		})
	}
}

func TestParsePipeline_PreservesStageOrder(t *testing.T) {
	stages, err := ParsePipeline(`[{"$match": {"x": 1}}, {"$sort": {"y": -1}}, {"$limit": 5}]`)
	if err != nil {
		t.Fatalf("ParsePipeline() unexpected error: %v", err)
	}

	want := []string{"$match", "$sort", "$limit"}
	if len(stages) != len(want) {
		t.Fatalf("ParsePipeline() returned %d stages, expected %d", len(stages), len(want))
	}
	for i, op := range want {
		if stages[i][0].Key != op {
			t.Errorf("stage %d = %q, expected %q (stage order must be preserved)", i, stages[i][0].Key, op)
		}
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"empty uses default", "", 10, false},
		{"whitespace uses default", "  ", 10, false},
		{"zero uses default", "0", 10, false},
		{"in range", "25", 25, false},
		{"at cap", "100", 100, false},
		{"above cap clamped", "5000", 100, false},
		{"negative rejected", "-1", 0, true},
		{"not a number", "ten", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClampLimit(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ClampLimit() should fail")
				}
				if !errors.Is(err, ErrValidation) {
					t.Errorf("limit failure should wrap ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ClampLimit() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ClampLimit(%q) = %d, expected %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFindParams_RequiresNames(t *testing.T) {
	tests := []struct {
		name       string
		database   string
		collection string
	}{
		{"missing database", "", "users"},
		{"whitespace database", "   ", "users"},
		{"missing collection", "app", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFindParams(tt.database, tt.collection, "", "", "", "")
			if !errors.Is(err, ErrValidation) {
				t.Errorf("missing name should be a validation error, got %v", err)
			}
		})
	}
}

func TestParseFindParams_FullRequest(t *testing.T) {
	p, err := ParseFindParams("app", "users",
		`{"status": "active"}`, `{"name": 1, "_id": 0}`, `{"age": -1}`, "50")
	if err != nil {
		t.Fatalf("ParseFindParams() unexpected error: %v", err)
	}

	if p.Database != "app" || p.Collection != "users" {
		t.Errorf("names not carried through: %+v", p)
	}
	if p.Limit != 50 {
		t.Errorf("Limit = %d, expected 50", p.Limit)
	}
	if len(p.Filter) != 1 || p.Filter[0].Key != "status" {
		t.Errorf("Filter not parsed: %v", p.Filter)
	}
	if len(p.Projection) != 2 || p.Projection[0].Key != "name" {
		t.Errorf("Projection not parsed in order: %v", p.Projection)
	}
	if len(p.Sort) != 1 || p.Sort[0].Key != "age" {
		t.Errorf("Sort not parsed: %v", p.Sort)
	}
}

func TestParseCountParams_InvalidFilter(t *testing.T) {
	_, err := ParseCountParams("app", "users", `{"broken":`)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("invalid filter should be a validation error, got %v", err)
	}
}

func TestParseAggregateParams(t *testing.T) {
	p, err := ParseAggregateParams("app", "events", `[{"$match": {"kind": "click"}}]`)
	if err != nil {
		t.Fatalf("ParseAggregateParams() unexpected error: %v", err)
	}
	if len(p.Pipeline) != 1 {
		t.Errorf("Pipeline length = %d, expected 1", len(p.Pipeline))
	}

	if _, err := ParseAggregateParams("app", "events", `{"$match": {}}`); !errors.Is(err, ErrValidation) {
		t.Errorf("bare document pipeline should be a validation error, got %v", err)
	}
}

func TestSortDocumentRoundTrip(t *testing.T) {
	// A compound sort must reach the driver as ordered pairs.
	sort, err := ParseFilter("sort", `{"a": 1, "b": -1}`)
	if err != nil {
		t.Fatalf("ParseFilter() unexpected error: %v", err)
	}
	want := bson.D{{Key: "a", Value: int32(1)}, {Key: "b", Value: int32(-1)}}
	if len(sort) != 2 || sort[0].Key != want[0].Key || sort[1].Key != want[1].Key {
		t.Errorf("sort = %v, expected ordered pairs [(a,1),(b,-1)]", sort)
	}
}

func TestWithCommas(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-5400, "-5,400"},
	}
	for _, tt := range tests {
		if got := withCommas(tt.in); got != tt.want {
			t.Errorf("withCommas(%d) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}
