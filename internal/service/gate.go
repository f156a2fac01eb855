package service

import (
	"fmt"

	"fitroom/internal/model"
)

type Feature string

const (
	FeatureChat  Feature = "chat"
	FeatureTryOn Feature = "try-on"
)

// ModelSource 提供当前模特照片
type ModelSource interface {
	Current() *model.ModelImage
}

// Gate 聊天和试穿都要求先有模特照片
type Gate struct {
	images ModelSource
}

func NewGate(images ModelSource) *Gate {
	return &Gate{images: images}
}

func (g *Gate) CanEnter(feature Feature) bool {
	switch feature {
	case FeatureChat, FeatureTryOn:
		return g.images.Current() != nil
	}
	return true
}

func (g *Gate) Check(feature Feature) error {
	if !g.CanEnter(feature) {
		return fmt.Errorf("%w: %s", ErrModelRequired, feature)
	}
	return nil
}
