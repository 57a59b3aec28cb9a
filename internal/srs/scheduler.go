// Package srs は間隔反復 (spaced repetition) による次回復習日の計算を行います。
// DB や時計には依存せず、(現在の状態, 評価, 現在時刻) から新しい状態を返す純粋な関数です。
package srs

import (
	"fmt"
	"time"
)

const (
	MinDifficulty = 0
	MaxDifficulty = 5
)

// State はカード1枚分のスケジューリング状態です。
type State struct {
	Difficulty   int
	ReviewCount  int
	Streak       int // 連続合格回数。不合格で0に戻る
	EaseFactor   float64
	Interval     time.Duration // 直近に計算した間隔
	LastReviewed *time.Time
	NextReview   time.Time
}

// Unreviewed は一度も復習されていないかを返します。
func (s State) Unreviewed() bool {
	return s.ReviewCount == 0
}

// IsDue は now の時点で復習対象かを返します。
func (s State) IsDue(now time.Time) bool {
	return !s.NextReview.After(now)
}

// Scheduler は Params に基づいて復習結果を反映します。
type Scheduler struct {
	params Params
}

// NewScheduler はゼロ値をデフォルトで補完し、検証したうえで Scheduler を返します。
func NewScheduler(p Params) (*Scheduler, error) {
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{params: p}, nil
}

// Params は補完済みのパラメータを返します。
func (s *Scheduler) Params() Params {
	return s.params
}

// NewState は作成直後 (未復習) のカードの状態を返します。作成時点で復習対象になります。
func (s *Scheduler) NewState(now time.Time) State {
	return State{
		Difficulty: MinDifficulty,
		EaseFactor: s.params.InitialEase,
		NextReview: now,
	}
}

// Review は評価 rating を state に適用した新しい状態を返します。
// rating が不正な場合は ErrInvalidRating を返し、state はそのまま返します。
func (s *Scheduler) Review(state State, rating Rating, now time.Time) (State, error) {
	if !rating.IsValid() {
		return state, fmt.Errorf("%w: %d is outside %d-%d", ErrInvalidRating, int(rating), MinRating, MaxRating)
	}

	next := state
	next.ReviewCount = state.ReviewCount + 1
	reviewedAt := now
	next.LastReviewed = &reviewedAt
	next.Difficulty = clampDifficulty(clampDifficulty(state.Difficulty) + difficultyDelta(rating))
	next.EaseFactor = s.nextEase(state.EaseFactor, rating)

	if rating.Passed() {
		next.Interval = s.passInterval(state, next.EaseFactor)
		next.Streak = state.Streak + 1
	} else {
		next.Interval = s.params.LapseInterval
		next.Streak = 0
	}
	next.NextReview = now.Add(next.Interval)
	return next, nil
}

func (s *Scheduler) passInterval(state State, ease float64) time.Duration {
	var interval time.Duration
	switch {
	case state.Streak <= 0:
		interval = s.params.FirstInterval
	case state.Streak == 1:
		interval = s.params.SecondInterval
	default:
		prev := state.Interval
		if prev < s.params.SecondInterval {
			prev = s.params.SecondInterval
		}
		interval = time.Duration(float64(prev) * ease).Round(time.Second)
	}
	if interval > s.params.MaxInterval {
		interval = s.params.MaxInterval
	}
	return interval
}

// nextEase は SM-2 の式でイーズファクターを更新します (q は 1〜5)。
func (s *Scheduler) nextEase(current float64, rating Rating) float64 {
	if current == 0 {
		current = s.params.InitialEase
	}
	miss := float64(MaxRating - rating)
	ease := current + 0.1 - miss*(0.08+miss*0.02)
	if ease < s.params.MinEase {
		ease = s.params.MinEase
	}
	return ease
}

// difficultyDelta: 1→+2, 2→+1, 3→0, 4→-1, 5→-2
func difficultyDelta(r Rating) int {
	return int(RatingHard - r)
}

func clampDifficulty(d int) int {
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}
