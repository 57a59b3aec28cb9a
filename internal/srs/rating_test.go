package srs_test

import (
	"encoding/json"
	"testing"

	"go_flashcard_study/internal/srs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRating_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    srs.Rating
		wantErr bool
	}{
		{name: "整数", body: `{"performanceRating":4}`, want: srs.RatingGood},
		{name: "範囲外の整数は型としては受け付ける", body: `{"performanceRating":6}`, want: srs.Rating(6)},
		{name: "負数", body: `{"performanceRating":-1}`, want: srs.Rating(-1)},
		{name: "文字列", body: `{"performanceRating":"invalid"}`, wantErr: true},
		{name: "小数", body: `{"performanceRating":4.5}`, wantErr: true},
		{name: "真偽値", body: `{"performanceRating":true}`, wantErr: true},
		{name: "未指定はゼロ", body: `{}`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req struct {
				PerformanceRating srs.Rating `json:"performanceRating"`
			}
			err := json.Unmarshal([]byte(tt.body), &req)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, srs.ErrInvalidRating)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.PerformanceRating)
		})
	}
}

func TestParseRating(t *testing.T) {
	for v := 1; v <= 5; v++ {
		r, err := srs.ParseRating(v)
		require.NoError(t, err)
		assert.True(t, r.IsValid())
	}
	for _, v := range []int{-1, 0, 6, 10} {
		_, err := srs.ParseRating(v)
		assert.ErrorIs(t, err, srs.ErrInvalidRating)
	}
}

func TestRating_Passed(t *testing.T) {
	assert.False(t, srs.RatingBlackout.Passed())
	assert.False(t, srs.RatingPoor.Passed())
	assert.True(t, srs.RatingHard.Passed())
	assert.True(t, srs.RatingEasy.Passed())
	assert.Equal(t, "good", srs.RatingGood.String())
	assert.Equal(t, "Rating(9)", srs.Rating(9).String())
}
