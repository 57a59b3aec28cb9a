package srs

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidRating は評価値が 1〜5 の範囲外、または整数でない場合に返されます。
var ErrInvalidRating = errors.New("srs: invalid performance rating")

// ErrInvalidParams はスケジューラのパラメータが不正な場合に返されます。
var ErrInvalidParams = errors.New("srs: invalid scheduler parameters")

// Rating は復習時にユーザーが付ける想起の出来 (1〜5) です。
type Rating int

const (
	RatingBlackout Rating = iota + 1 // 1: 全く思い出せなかった
	RatingPoor                       // 2: 答えを見て思い出した
	RatingHard                       // 3: 苦労して思い出した
	RatingGood                       // 4: 少し迷って思い出した
	RatingEasy                       // 5: 即答できた
)

const (
	MinRating = RatingBlackout
	MaxRating = RatingEasy
)

// IsValid は r が 1〜5 の範囲内かを返します。
func (r Rating) IsValid() bool {
	return r >= MinRating && r <= MaxRating
}

// Passed は合格 (3以上) とみなす評価かを返します。
func (r Rating) Passed() bool {
	return r >= RatingHard
}

func (r Rating) String() string {
	switch r {
	case RatingBlackout:
		return "blackout"
	case RatingPoor:
		return "poor"
	case RatingHard:
		return "hard"
	case RatingGood:
		return "good"
	case RatingEasy:
		return "easy"
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// ParseRating は整数を検証して Rating に変換します。
func ParseRating(v int) (Rating, error) {
	r := Rating(v)
	if !r.IsValid() {
		return 0, fmt.Errorf("%w: %d is outside %d-%d", ErrInvalidRating, v, MinRating, MaxRating)
	}
	return r, nil
}

// UnmarshalJSON は JSON の整数のみを受け付けます。
// 範囲チェックはスケジューラ側で行うため、ここでは型のみを検証します。
func (r *Rating) UnmarshalJSON(data []byte) error {
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %s is not an integer", ErrInvalidRating, data)
	}
	*r = Rating(v)
	return nil
}
