package id

import (
	"testing"
)

func TestNew(t *testing.T) {
	a := New(KindItem)
	b := New(KindItem)
	if !IsUUID(a) {
		t.Errorf("expected UUID, got %q", a)
	}
	if a == b {
		t.Errorf("expected distinct ids, got %q twice", a)
	}
}

func TestSequential(t *testing.T) {
	gen := Sequential()
	tests := []struct {
		kind Kind
		want string
	}{
		{KindItem, "item-1"},
		{KindItem, "item-2"},
		{KindBucket, "bucket-1"},
		{KindItem, "item-3"},
	}
	for _, tt := range tests {
		if got := gen(tt.kind); got != tt.want {
			t.Errorf("gen(%s) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestIsUUID(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"550e8400-e29b-41d4-a716-446655440000", true},
		{"550E8400-E29B-41D4-A716-446655440000", true},
		{"col_1", false},
		{"", false},
		{"550e8400-e29b-41d4-a716", false},
	}
	for _, tt := range tests {
		if got := IsUUID(tt.input); got != tt.want {
			t.Errorf("IsUUID(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestShort(t *testing.T) {
	if got := Short("550e8400-e29b-41d4-a716-446655440000"); got != "550e8400" {
		t.Errorf("Short(uuid) = %q", got)
	}
	if got := Short("col_1"); got != "col_1" {
		t.Errorf("Short(col_1) = %q", got)
	}
}

func TestMatchPrefix(t *testing.T) {
	candidates := []string{"550e8400-aaaa", "550e9999-bbbb", "col_1", "col_10"}

	tests := []struct {
		name    string
		prefix  string
		want    string
		wantErr bool
	}{
		{name: "unique prefix", prefix: "550e84", want: "550e8400-aaaa"},
		{name: "exact beats prefix", prefix: "col_1", want: "col_1"},
		{name: "ambiguous", prefix: "550e", wantErr: true},
		{name: "no match", prefix: "zzz", wantErr: true},
		{name: "empty", prefix: " ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MatchPrefix(tt.prefix, candidates)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MatchPrefix(%q) error = %v, wantErr %v", tt.prefix, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("MatchPrefix(%q) = %q, want %q", tt.prefix, got, tt.want)
			}
		})
	}
}
