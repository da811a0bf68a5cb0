package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuestions(t *testing.T) {
	got := parseQuestions(`{"questions":["Q1","Q2","Q3"]}`)
	assert.Equal(t, []string{"Q1", "Q2", "Q3"}, got)
}

func TestParseQuestions_TruncatesToLimit(t *testing.T) {
	got := parseQuestions(`{"questions":["Q1","Q2","Q3","Q4","Q5"]}`)
	assert.Equal(t, []string{"Q1", "Q2", "Q3"}, got)
}

func TestParseQuestions_MalformedContent(t *testing.T) {
	assert.Equal(t, []string{}, parseQuestions(`not json at all`))
	assert.Equal(t, []string{}, parseQuestions(`{"other":"shape"}`))
}
