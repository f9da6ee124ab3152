package services

import "testing"

func TestIsHealthy(t *testing.T) {
	cases := []struct {
		condition string
		want      bool
	}{
		{"Healthy", true},
		{"healthy", true},
		{"HEALTHY", true},
		{"Healthy (no visible disease)", true},
		{"Late Blight", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsHealthy(tc.condition); got != tc.want {
			t.Errorf("IsHealthy(%q) = %v, want %v", tc.condition, got, tc.want)
		}
	}
}

func TestMedicinesForHealthyIsEmpty(t *testing.T) {
	s := NewCatalogService()

	medicines := s.MedicinesFor("Healthy")
	if medicines == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(medicines) != 0 {
		t.Errorf("healthy condition must yield no medicines, got %d", len(medicines))
	}
}

func TestMedicinesForKeywordMatch(t *testing.T) {
	s := NewCatalogService()

	medicines := s.MedicinesFor("Late Blight (Phytophthora infestans)")
	if len(medicines) == 0 {
		t.Fatal("expected blight medicines")
	}
	for _, m := range medicines {
		if m.Name == "" || m.Price == "" || m.URL == "" {
			t.Errorf("incomplete medicine entry: %+v", m)
		}
	}
}

func TestMedicinesForUnknownUsesGenericTreatment(t *testing.T) {
	s := NewCatalogService()

	medicines := s.MedicinesFor("Mystery Lesions")
	if len(medicines) == 0 {
		t.Error("unrecognized condition should fall back to the generic treatment")
	}
}

func TestVideosFor(t *testing.T) {
	s := NewCatalogService()

	if videos := s.VideosFor("Tomato"); len(videos) == 0 {
		t.Error("expected videos for a cataloged crop")
	}
	if videos := s.VideosFor("tomato"); len(videos) == 0 {
		t.Error("crop lookup must be case-insensitive")
	}
	if videos := s.VideosFor("dragonfruit"); videos == nil || len(videos) != 0 {
		t.Errorf("unknown crop must yield empty non-nil slice, got %#v", videos)
	}
	if videos := s.VideosFor(""); videos == nil || len(videos) != 0 {
		t.Errorf("empty crop must yield empty non-nil slice, got %#v", videos)
	}
}
