package binding

import (
	"testing"

	"agency/internal/docstore"
	"github.com/stretchr/testify/assert"
)

func TestMemoRebuildsOnlyWhenDepsChange(t *testing.T) {
	var memo Memo[*docstore.Query]
	builds := 0
	build := func(category string) func() *docstore.Query {
		return func() *docstore.Query {
			builds++
			return docstore.Collection("talents").Where("category", category)
		}
	}

	first := MemoizeQuery(&memo, build("model"), "model")
	second := MemoizeQuery(&memo, build("model"), "model")
	assert.Same(t, first, second)
	assert.Equal(t, 1, builds)

	third := MemoizeQuery(&memo, build("artist"), "artist")
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, builds)
}

func TestMemoKeepsNilDescriptor(t *testing.T) {
	var memo Memo[*docstore.DocRef]
	uid := ""
	build := func() *docstore.DocRef {
		if uid == "" {
			return nil
		}
		return docstore.Doc("users", uid)
	}

	assert.Nil(t, MemoizeDoc(&memo, build, uid))
	uid = "u1"
	ref := MemoizeDoc(&memo, build, uid)
	if assert.NotNil(t, ref) {
		assert.Equal(t, "users/u1", ref.Path())
	}
}

func TestSameDep(t *testing.T) {
	tags := []string{"a", "b"}
	config := map[string]int{"a": 1}
	type filter struct {
		Category string
		Limit    int
	}
	type loose struct {
		Value any
	}

	cases := []struct {
		name  string
		left  any
		right any
		want  bool
	}{
		{name: "equal strings", left: "model", right: "model", want: true},
		{name: "different strings", left: "model", right: "artist", want: false},
		{name: "both nil", left: nil, right: nil, want: true},
		{name: "nil and value", left: nil, right: 0, want: false},
		{name: "different types", left: 1, right: int64(1), want: false},
		{name: "same slice", left: tags, right: tags, want: true},
		{name: "equal slice contents", left: tags, right: []string{"a", "b"}, want: false},
		{name: "resliced", left: tags, right: tags[:1], want: false},
		{name: "same map", left: config, right: config, want: true},
		{name: "equal map contents", left: config, right: map[string]int{"a": 1}, want: false},
		{name: "comparable struct", left: filter{"model", 3}, right: filter{"model", 3}, want: true},
		{name: "uncomparable interface field", left: loose{tags}, right: loose{tags}, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, sameDep(tc.left, tc.right))
		})
	}
}
