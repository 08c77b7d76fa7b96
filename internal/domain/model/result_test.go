package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerpResult_Record(t *testing.T) {
	ok := &SerpResult{
		Keyword:             "golang",
		Country:             "us",
		URL:                 "https://www.google.com/search?q=golang&gl=us&hl=en&num=20&pws=0",
		PeopleAlsoAsk:       []string{"Is Go easy?", "Who uses Go?"},
		PeopleAlsoSearchFor: nil,
		PAACount:            2,
		Status:              StatusOK,
		PAASelectors:        []string{".related-question-pair span"},
		PASFSelectors:       []string{"a.ggLgoc"},
	}
	assert.Equal(t, []string{
		"golang",
		"US",
		ok.URL,
		"Is Go easy? • Who uses Go?",
		"(not found with a.ggLgoc)",
		"2",
		"0",
	}, ok.Record())
	assert.Len(t, Columns(), len(ok.Record()))
}

func TestSerpResult_Placeholders(t *testing.T) {
	timeout := &SerpResult{Status: StatusTimeout}
	assert.Equal(t, "(timeout)", timeout.PAAText())
	assert.Equal(t, "(timeout)", timeout.PASFText())

	failed := &SerpResult{Status: StatusError, Error: "net::ERR_NAME_NOT_RESOLVED"}
	assert.Equal(t, "(error: net::ERR_NAME_NOT_RESOLVED)", failed.PAAText())
	assert.Equal(t, "(error)", failed.PASFText())
}

func TestQuestionDocs(t *testing.T) {
	now := time.Now()
	r := &SerpResult{
		Keyword:             "Golang",
		Country:             "US",
		PeopleAlsoAsk:       []string{"a?", "b?"},
		PeopleAlsoSearchFor: []string{"c"},
		ExtractedAt:         now,
	}
	docs := QuestionDocs("run-1", r)
	assert.Len(t, docs, 3)
	assert.Equal(t, KindPAA, docs[0].Kind)
	assert.Equal(t, 2, docs[1].Position)
	assert.Equal(t, KindPASF, docs[2].Kind)
	assert.Equal(t, "us", docs[2].Country)

	// 相同内容得到相同ID
	again := QuestionDocs("run-2", r)
	assert.Equal(t, docs[0].GetID(), again[0].GetID())
	assert.NotEqual(t, docs[0].GetID(), docs[1].GetID())
}

func TestProgress_Fraction(t *testing.T) {
	assert.Equal(t, 0.5, Progress{Index: 2, Total: 4}.Fraction())
	assert.Equal(t, 0.0, Progress{Index: 2}.Fraction())
}

func TestSerpResult_MarshalJSON(t *testing.T) {
	r := &SerpResult{
		Keyword:       "golang",
		Country:       "US",
		PeopleAlsoAsk: []string{"a", "b"},
		PAACount:      2,
		Status:        StatusOK,
		PASFSelectors: []string{"a.ggLgoc"},
	}
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "a • b", m["paa_text"])
	assert.Equal(t, "(not found with a.ggLgoc)", m["pasf_text"])
	assert.Equal(t, "golang", m["keyword"])
	assert.EqualValues(t, 2, m["paa_count"])

	var back SerpResult
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"a", "b"}, back.PeopleAlsoAsk)
}
