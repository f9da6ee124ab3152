package services

import (
	"strings"

	"crop-advisor-service/models"
)

// CatalogService matches diagnosed conditions to marketplace medicines and
// identified crops to educational videos. The catalog is a static seed; a
// healthy condition never yields medicines.
type CatalogService struct{}

// NewCatalogService creates a new catalog service
func NewCatalogService() *CatalogService {
	return &CatalogService{}
}

// IsHealthy reports whether a condition means no treatment is needed.
// The comparison is case-insensitive and ignores a parenthetical suffix.
func IsHealthy(condition string) bool {
	condition = strings.TrimSpace(strings.SplitN(condition, " (", 2)[0])
	return strings.EqualFold(condition, "healthy")
}

// MedicinesFor returns marketplace products for a diagnosed condition.
// Healthy or unrecognized conditions yield the generic fallback or nothing.
func (s *CatalogService) MedicinesFor(condition string) []models.Medicine {
	if condition == "" || IsHealthy(condition) {
		return []models.Medicine{}
	}

	key := strings.ToLower(condition)
	for keyword, medicines := range medicinesByKeyword {
		if strings.Contains(key, keyword) {
			return medicines
		}
	}
	return genericTreatment
}

// VideosFor returns educational videos for an identified crop.
func (s *CatalogService) VideosFor(cropType string) []models.RelatedVideo {
	if cropType == "" {
		return []models.RelatedVideo{}
	}
	if videos, ok := videosByCrop[strings.ToLower(cropType)]; ok {
		return videos
	}
	return []models.RelatedVideo{}
}

var medicinesByKeyword = map[string][]models.Medicine{
	"blight": {
		{Name: "Copper Oxychloride 50% WP", Price: "₹420 / 500g", URL: "https://market.cropadvisor.example/copper-oxychloride"},
		{Name: "Mancozeb 75% WP", Price: "₹310 / 500g", URL: "https://market.cropadvisor.example/mancozeb"},
	},
	"rust": {
		{Name: "Propiconazole 25% EC", Price: "₹560 / 250ml", URL: "https://market.cropadvisor.example/propiconazole"},
	},
	"mildew": {
		{Name: "Sulphur 80% WDG", Price: "₹260 / 1kg", URL: "https://market.cropadvisor.example/sulphur-wdg"},
	},
	"aphid": {
		{Name: "Imidacloprid 17.8% SL", Price: "₹380 / 250ml", URL: "https://market.cropadvisor.example/imidacloprid"},
		{Name: "Neem Oil 1500 ppm", Price: "₹240 / 500ml", URL: "https://market.cropadvisor.example/neem-oil"},
	},
	"borer": {
		{Name: "Chlorantraniliprole 18.5% SC", Price: "₹920 / 150ml", URL: "https://market.cropadvisor.example/chlorantraniliprole"},
	},
	"blast": {
		{Name: "Tricyclazole 75% WP", Price: "₹480 / 250g", URL: "https://market.cropadvisor.example/tricyclazole"},
	},
	"wilt": {
		{Name: "Carbendazim 50% WP", Price: "₹290 / 500g", URL: "https://market.cropadvisor.example/carbendazim"},
	},
}

var genericTreatment = []models.Medicine{
	{Name: "Neem Oil 1500 ppm", Price: "₹240 / 500ml", URL: "https://market.cropadvisor.example/neem-oil"},
}

var videosByCrop = map[string][]models.RelatedVideo{
	"tomato": {
		{Title: "Managing Tomato Blight", ThumbnailURL: "https://videos.cropadvisor.example/thumbs/tomato-blight.jpg", VideoURL: "https://videos.cropadvisor.example/tomato-blight"},
		{Title: "Tomato Staking and Pruning Basics", ThumbnailURL: "https://videos.cropadvisor.example/thumbs/tomato-pruning.jpg", VideoURL: "https://videos.cropadvisor.example/tomato-pruning"},
	},
	"wheat": {
		{Title: "Spotting Wheat Rust Early", ThumbnailURL: "https://videos.cropadvisor.example/thumbs/wheat-rust.jpg", VideoURL: "https://videos.cropadvisor.example/wheat-rust"},
	},
	"rice": {
		{Title: "Rice Blast Prevention in Paddies", ThumbnailURL: "https://videos.cropadvisor.example/thumbs/rice-blast.jpg", VideoURL: "https://videos.cropadvisor.example/rice-blast"},
	},
	"potato": {
		{Title: "Late Blight: What to Do This Week", ThumbnailURL: "https://videos.cropadvisor.example/thumbs/potato-blight.jpg", VideoURL: "https://videos.cropadvisor.example/potato-blight"},
	},
	"maize": {
		{Title: "Fall Armyworm Control in Maize", ThumbnailURL: "https://videos.cropadvisor.example/thumbs/maize-armyworm.jpg", VideoURL: "https://videos.cropadvisor.example/maize-armyworm"},
	},
}
