package model

import "fmt"

type GarmentType string

const (
	GarmentUpper GarmentType = "upper"
	GarmentLower GarmentType = "lower"
)

func (g GarmentType) Valid() bool {
	return g == GarmentUpper || g == GarmentLower
}

func ParseGarmentType(s string) (GarmentType, error) {
	g := GarmentType(s)
	if !g.Valid() {
		return "", fmt.Errorf("invalid garment type %q", s)
	}
	return g, nil
}

type WardrobeItem struct {
	ID   string      `json:"id"`
	URI  string      `json:"uri"`
	Type GarmentType `json:"type"`
}

// WornState 每个部位当前穿着的单品 ID，空字符串表示未穿
type WornState struct {
	Upper string `json:"upper,omitempty"`
	Lower string `json:"lower,omitempty"`
}

func (w WornState) Get(slot GarmentType) string {
	switch slot {
	case GarmentUpper:
		return w.Upper
	case GarmentLower:
		return w.Lower
	}
	return ""
}

func (w *WornState) Set(slot GarmentType, id string) {
	switch slot {
	case GarmentUpper:
		w.Upper = id
	case GarmentLower:
		w.Lower = id
	}
}

func (w WornState) Empty() bool {
	return w.Upper == "" && w.Lower == ""
}

// ProcessedImage 试穿合成结果
type ProcessedImage struct {
	URL    string      `json:"url"`
	ItemID string      `json:"item_id"`
	Type   GarmentType `json:"type"`
}
