package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsCJK(t *testing.T) {
	assert.True(t, ContainsCJK("ラーメン"))
	assert.True(t, ContainsCJK("go 言語"))
	assert.True(t, ContainsCJK("한국어"))
	assert.False(t, ContainsCJK("golang tips"))
	assert.False(t, ContainsCJK(""))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, escapeLike(`c:\dir`))
}
