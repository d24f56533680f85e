package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestValidatePostInput(t *testing.T) {
	tests := []struct {
		name         string
		in           PostInput
		requireImage bool
		wantFields   []string
	}{
		{"valid create", PostInput{Title: "Abcd", Content: "Efgh", ImageURL: ptr("images/a.png")}, true, nil},
		{"valid update without image", PostInput{Title: "Abcd", Content: "Efgh"}, false, nil},
		{"short title", PostInput{Title: "abc", Content: "Efgh", ImageURL: ptr("images/a.png")}, true, []string{"title"}},
		{"whitespace padded title", PostInput{Title: "  ab  ", Content: "Efgh"}, false, []string{"title"}},
		{"short title and content", PostInput{Title: "abc", Content: "xy", ImageURL: ptr("images/a.png")}, true, []string{"title", "content"}},
		{"missing image on create", PostInput{Title: "Abcd", Content: "Efgh"}, true, []string{"imageUrl"}},
		{"blank image on update", PostInput{Title: "Abcd", Content: "Efgh", ImageURL: ptr(" ")}, false, []string{"imageUrl"}},
		{"multibyte runes count once", PostInput{Title: "ééé", Content: "Efgh"}, false, []string{"title"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePostInput(tt.in, tt.requireImage)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			got := make([]string, 0, len(verr.Fields))
			for _, f := range verr.Fields {
				got = append(got, f.Field)
			}
			assert.Equal(t, tt.wantFields, got)
		})
	}
}

func TestOffset(t *testing.T) {
	tests := []struct{ page, size, wantPage, wantOffset int }{
		{1, 2, 1, 0},
		{2, 2, 2, 2},
		{3, 10, 3, 20},
		{0, 2, 1, 0},
		{-4, 2, 1, 0},
	}
	for _, tt := range tests {
		page, offset := Offset(tt.page, tt.size)
		assert.Equal(t, tt.wantPage, page)
		assert.Equal(t, tt.wantOffset, offset)
	}
}

func TestOffset_DoesNotOverflow(t *testing.T) {
	for _, size := range []int{1, 2, 3, 10, 1000} {
		for _, p := range []int{math.MaxInt, math.MaxInt / 2, 4611686018427387905} {
			page, offset := Offset(p, size)
			assert.GreaterOrEqual(t, offset, 0, "page=%d size=%d", p, size)
			assert.GreaterOrEqual(t, page, 1)
			assert.LessOrEqual(t, page, p)
			// Une page au-delà de la fin reste au-delà de la fin
			assert.GreaterOrEqual(t, offset, math.MaxInt/2-size)
		}
	}
}

func TestIsOwnedBy(t *testing.T) {
	p := &Post{Creator: Creator{ID: "u1"}}
	assert.True(t, p.IsOwnedBy("u1"))
	assert.False(t, p.IsOwnedBy("u2"))
	assert.False(t, (&Post{}).IsOwnedBy(""))
}

func TestInternalError(t *testing.T) {
	cause := assert.AnError
	err := Internal("save post", cause)
	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "save post")
}
