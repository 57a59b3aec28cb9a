package srs

import (
	"fmt"
	"time"
)

// Params はスケジューラの調整値です。ゼロ値のフィールドはデフォルト値で補完されます。
type Params struct {
	InitialEase    float64       // 新規カードのイーズファクター
	MinEase        float64       // イーズファクターの下限
	FirstInterval  time.Duration // 1回目の合格後の間隔
	SecondInterval time.Duration // 2回連続合格後の間隔
	LapseInterval  time.Duration // 不合格時の再出題までの間隔
	MaxInterval    time.Duration // 間隔の上限
}

// DefaultParams は SM-2 に準じた標準値を返します。
func DefaultParams() Params {
	return Params{
		InitialEase:    2.5,
		MinEase:        1.3,
		FirstInterval:  24 * time.Hour,
		SecondInterval: 6 * 24 * time.Hour,
		LapseInterval:  10 * time.Minute,
		MaxInterval:    365 * 24 * time.Hour,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.InitialEase == 0 {
		p.InitialEase = d.InitialEase
	}
	if p.MinEase == 0 {
		p.MinEase = d.MinEase
	}
	if p.FirstInterval == 0 {
		p.FirstInterval = d.FirstInterval
	}
	if p.SecondInterval == 0 {
		p.SecondInterval = d.SecondInterval
	}
	if p.LapseInterval == 0 {
		p.LapseInterval = d.LapseInterval
	}
	if p.MaxInterval == 0 {
		p.MaxInterval = d.MaxInterval
	}
	return p
}

// Validate は間隔が単調に伸びる前提を満たしているかを検証します。
func (p Params) Validate() error {
	switch {
	case p.MinEase < 1.0:
		return fmt.Errorf("%w: min ease %.2f must be >= 1.0", ErrInvalidParams, p.MinEase)
	case p.InitialEase < p.MinEase:
		return fmt.Errorf("%w: initial ease %.2f is below min ease %.2f", ErrInvalidParams, p.InitialEase, p.MinEase)
	case p.LapseInterval <= 0:
		return fmt.Errorf("%w: lapse interval must be positive", ErrInvalidParams)
	case p.FirstInterval < p.LapseInterval:
		return fmt.Errorf("%w: first interval %s is shorter than lapse interval %s", ErrInvalidParams, p.FirstInterval, p.LapseInterval)
	case p.SecondInterval < p.FirstInterval:
		return fmt.Errorf("%w: second interval %s is shorter than first interval %s", ErrInvalidParams, p.SecondInterval, p.FirstInterval)
	case p.MaxInterval < p.SecondInterval:
		return fmt.Errorf("%w: max interval %s is shorter than second interval %s", ErrInvalidParams, p.MaxInterval, p.SecondInterval)
	}
	return nil
}
